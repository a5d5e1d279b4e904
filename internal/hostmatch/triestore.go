package hostmatch

import (
	"strings"
)

type node[T any] struct {
	children map[string]*node[T]
	data     []entry[T]
}

// entry pairs the stored data with its insertion ordinal.
type entry[T any] struct {
	ordinal int
	data    T
}

func (n *node[T]) findOrAddChild(segment string) *node[T] {
	if n.children == nil {
		newChild := &node[T]{}
		n.children = map[string]*node[T]{
			segment: newChild,
		}
		return newChild
	}

	existingChild, ok := n.children[segment]
	if ok {
		return existingChild
	}

	newChild := &node[T]{}
	n.children[segment] = newChild
	return newChild
}

func (n *node[T]) collectMatchingData(segments []string, isWildcard bool, visit func(entry[T])) {
	if len(segments) == 0 {
		for _, e := range n.data {
			visit(e)
		}
		return
	}

	if isWildcard {
		// Wildcards can consume as many segments as possible.
		n.collectMatchingData(segments[1:], true, visit)
	}

	if wildcardChild, ok := n.children["*"]; ok {
		wildcardChild.collectMatchingData(segments[1:], true, visit)
	}
	if exactChild, ok := n.children[segments[0]]; ok {
		exactChild.collectMatchingData(segments[1:], false, visit)
	}
}

// trieStore maps hostname patterns to data. Each * label matches one or more hostname labels.
//
// Add must not be called concurrently with other methods. Once all patterns are added, Get is
// safe for concurrent use.
type trieStore[T any] struct {
	root *node[T]
}

func newTrieStore[T any]() *trieStore[T] {
	return &trieStore[T]{
		root: &node[T]{},
	}
}

func (ts *trieStore[T]) Add(hostnamePattern string, ordinal int, data T) {
	segments := strings.Split(hostnamePattern, ".")

	node := ts.root
	for _, segment := range segments {
		node = node.findOrAddChild(segment)
	}
	node.data = append(node.data, entry[T]{ordinal: ordinal, data: data})
}

func (ts *trieStore[T]) Get(hostname string, visit func(entry[T])) {
	segments := strings.Split(hostname, ".")
	ts.root.collectMatchingData(segments, false, visit)
}
