// Package hostmatch stores data under lists of hostname patterns and retrieves it by hostname.
//
// A pattern "example.com" matches the hostname itself and all of its subdomains. A pattern
// "example.*" matches example under any suffix. Patterns prefixed with ~ exclude the hostnames
// they match. Results are returned in insertion order.
package hostmatch

import (
	"errors"
	"slices"
	"strings"
)

var (
	errNoEmptyPattern = errors.New("empty patterns are not allowed")
)

// HostMatcher is built once and then queried. Add methods must not be called concurrently with
// other methods; once building is done, Get methods are safe for concurrent use.
type HostMatcher[T any] struct {
	primaryStore   *trieStore[T]
	exclusionStore *trieStore[T]
	generic        []entry[T]
	next           int
}

func NewHostMatcher[T any]() *HostMatcher[T] {
	return &HostMatcher[T]{
		primaryStore:   newTrieStore[T](),
		exclusionStore: newTrieStore[T](),
	}
}

// AddPrimaryRule stores data under the comma-separated hostname patterns.
// An empty list, or a list made only of ~exclusions, makes the data generic.
func (hm *HostMatcher[T]) AddPrimaryRule(hostnamePatterns string, data T) error {
	var patterns []string
	if len(hostnamePatterns) > 0 {
		patterns = strings.Split(hostnamePatterns, ",")
	}
	for _, pattern := range patterns {
		if len(pattern) == 0 || pattern == "~" {
			return errNoEmptyPattern
		}
	}

	ordinal := hm.next
	hm.next++

	included := false
	for _, pattern := range patterns {
		if pattern[0] == '~' {
			hm.addPattern(hm.exclusionStore, pattern[1:], ordinal, data)
		} else {
			included = true
			hm.addPattern(hm.primaryStore, pattern, ordinal, data)
		}
	}
	if !included {
		hm.generic = append(hm.generic, entry[T]{ordinal: ordinal, data: data})
	}

	return nil
}

// addPattern stores a pattern so that it matches both the hostname and its subdomains.
func (hm *HostMatcher[T]) addPattern(store *trieStore[T], pattern string, ordinal int, data T) {
	store.Add(pattern, ordinal, data)
	if !strings.HasPrefix(pattern, "*.") {
		store.Add("*."+pattern, ordinal, data)
	}
}

// GetSpecific returns the data stored under patterns matching the hostname, minus excluded data.
func (hm *HostMatcher[T]) GetSpecific(hostname string) []T {
	excluded := hm.excluded(hostname)

	var matches []entry[T]
	seen := make(map[int]struct{})
	hm.primaryStore.Get(hostname, func(e entry[T]) {
		if _, ok := seen[e.ordinal]; ok {
			return
		}
		seen[e.ordinal] = struct{}{}
		if _, ok := excluded[e.ordinal]; ok {
			return
		}
		matches = append(matches, e)
	})
	slices.SortFunc(matches, func(a, b entry[T]) int {
		return a.ordinal - b.ordinal
	})

	res := make([]T, len(matches))
	for i, e := range matches {
		res[i] = e.data
	}
	return res
}

// GetGeneric returns the generic data, minus data excluded for the hostname.
func (hm *HostMatcher[T]) GetGeneric(hostname string) []T {
	excluded := hm.excluded(hostname)

	res := make([]T, 0, len(hm.generic))
	for _, e := range hm.generic {
		if _, ok := excluded[e.ordinal]; ok {
			continue
		}
		res = append(res, e.data)
	}
	return res
}

// Get returns the generic and the specific data for the hostname, in insertion order.
func (hm *HostMatcher[T]) Get(hostname string) []T {
	excluded := hm.excluded(hostname)

	var matches []entry[T]
	seen := make(map[int]struct{})
	add := func(e entry[T]) {
		if _, ok := seen[e.ordinal]; ok {
			return
		}
		seen[e.ordinal] = struct{}{}
		if _, ok := excluded[e.ordinal]; ok {
			return
		}
		matches = append(matches, e)
	}
	for _, e := range hm.generic {
		add(e)
	}
	hm.primaryStore.Get(hostname, add)
	slices.SortFunc(matches, func(a, b entry[T]) int {
		return a.ordinal - b.ordinal
	})

	res := make([]T, len(matches))
	for i, e := range matches {
		res[i] = e.data
	}
	return res
}

// Len returns the number of rules added to the matcher.
func (hm *HostMatcher[T]) Len() int {
	return hm.next
}

func (hm *HostMatcher[T]) excluded(hostname string) map[int]struct{} {
	excluded := make(map[int]struct{})
	hm.exclusionStore.Get(hostname, func(e entry[T]) {
		excluded[e.ordinal] = struct{}{}
	})
	return excluded
}
