package scriptlet

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anfragment/zenfilter/internal/hostmatch"
	"github.com/anfragment/zenfilter/internal/logger"
	baserule "github.com/anfragment/zenfilter/internal/rule"
)

// Resolver stores scriptlets by hostname and renders the injection for a page.
//
// AddRule must not be called concurrently with other methods. Once all rules are added,
// InjectionFor is safe for concurrent use.
type Resolver struct {
	scriptlets *hostmatch.HostMatcher[*Scriptlet]
	exceptions *hostmatch.HostMatcher[*Scriptlet]
}

func NewResolver() *Resolver {
	return &Resolver{
		scriptlets: hostmatch.NewHostMatcher[*Scriptlet](),
		exceptions: hostmatch.NewHostMatcher[*Scriptlet](),
	}
}

// AddRule parses a line and adds the resulting scriptlet. The returned error is a *baserule.ParseError.
func (r *Resolver) AddRule(line string) (*Scriptlet, error) {
	s, err := Parse(line)
	if err != nil {
		return nil, err
	}
	if err := r.Add(s); err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidDomain, err)
	}
	return s, nil
}

// Add adds a parsed scriptlet.
func (r *Resolver) Add(s *Scriptlet) error {
	if s == nil {
		return errors.New("scriptlet is nil")
	}

	store := r.scriptlets
	if s.Exception {
		store = r.exceptions
	}
	if err := store.AddPrimaryRule(s.Hostnames, s); err != nil {
		return fmt.Errorf("add scriptlet %q: %w", s.RawRule, err)
	}
	return nil
}

// Len returns the number of scriptlets and exceptions.
func (r *Resolver) Len() (scriptlets, exceptions int) {
	return r.scriptlets.Len(), r.exceptions.Len()
}

// InjectionFor returns the source injecting the hostname's scriptlets in list order.
// It returns an empty string when no scriptlets apply.
func (r *Resolver) InjectionFor(hostname string) (string, error) {
	scriptlets := r.scriptlets.GetSpecific(hostname)
	if len(scriptlets) == 0 {
		return "", nil
	}

	cancelled := make(map[string]struct{})
	for _, exception := range r.exceptions.Get(hostname) {
		if exception.CancelsAll() {
			log.Printf("scriptlets disabled for %q by %q", logger.Redacted(hostname), exception.RawRule)
			return "", nil
		}
		cancelled[exception.key()] = struct{}{}
	}

	var injection strings.Builder
	seen := make(map[string]struct{}, len(scriptlets))
	var injected int
	for _, s := range scriptlets {
		key := s.key()
		if _, ok := cancelled[key]; ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if injected > 0 {
			injection.WriteByte('\n')
		}
		if err := s.GenerateInjection(&injection); err != nil {
			return "", fmt.Errorf("generate injection for scriptlet %q: %w", s.Name, err)
		}
		injected++
	}
	log.Printf("got %d scriptlets for %q", injected, logger.Redacted(hostname))

	return injection.String(), nil
}
