package engine

// Option configures an Engine.
type Option func(*Engine)

// WithoutCosmetic makes the engine skip element hiding and scriptlet rules.
// URLCosmeticResources then always returns empty resources.
func WithoutCosmetic() Option {
	return func(e *Engine) {
		e.noCosmetic = true
	}
}
