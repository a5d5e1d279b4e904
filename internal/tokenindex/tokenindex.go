// Package tokenindex implements a build-once lookup table that buckets items by a token.
//
// Items are added with the token they were indexed under, or with an empty token to land in the
// catch-all bucket, which is visited by every query. An Index has no mutating methods and is safe
// for concurrent use.
package tokenindex

// Builder accumulates items before the index is built. It is not safe for concurrent use.
type Builder[T any] struct {
	buckets  map[string][]T
	catchAll []T
	n        int
}

// NewBuilder returns an empty builder.
func NewBuilder[T any]() *Builder[T] {
	return &Builder[T]{
		buckets: make(map[string][]T),
	}
}

// Add appends the item to the bucket for token. An empty token selects the catch-all bucket.
func (b *Builder[T]) Add(token string, item T) {
	b.n++
	if token == "" {
		b.catchAll = append(b.catchAll, item)
		return
	}
	b.buckets[token] = append(b.buckets[token], item)
}

// BucketLen returns the number of items currently under the token.
// Callers use it to prefer the least populated of several candidate tokens.
func (b *Builder[T]) BucketLen(token string) int {
	return len(b.buckets[token])
}

// Build returns the finished index. The builder must not be used afterwards.
func (b *Builder[T]) Build() *Index[T] {
	idx := &Index[T]{
		buckets:  b.buckets,
		catchAll: b.catchAll,
		n:        b.n,
	}
	b.buckets = nil
	b.catchAll = nil
	return idx
}

// Index is the read-only result of a Builder.
type Index[T any] struct {
	buckets  map[string][]T
	catchAll []T
	n        int
}

// Candidates calls yield for every item bucketed under one of tokens, then for every item in the
// catch-all bucket. Repeated tokens are visited once. Iteration stops when yield returns false.
func (idx *Index[T]) Candidates(tokens []string, yield func(T) bool) {
	if idx == nil {
		return
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		bucket, ok := idx.buckets[token]
		if !ok {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		for _, item := range bucket {
			if !yield(item) {
				return
			}
		}
	}
	for _, item := range idx.catchAll {
		if !yield(item) {
			return
		}
	}
}

// Len returns the total number of items in the index.
func (idx *Index[T]) Len() int {
	if idx == nil {
		return 0
	}
	return idx.n
}

// Buckets returns the number of token buckets, excluding the catch-all bucket.
func (idx *Index[T]) Buckets() int {
	if idx == nil {
		return 0
	}
	return len(idx.buckets)
}

// CatchAllLen returns the number of items in the catch-all bucket.
func (idx *Index[T]) CatchAllLen() int {
	if idx == nil {
		return 0
	}
	return len(idx.catchAll)
}
