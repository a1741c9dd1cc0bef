// Package dsa provides the data structures behind the lexical retrieval index.
// Uses go-radix for a compressed prefix tree (radix tree).
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie wraps go-radix as a typed term dictionary.
// Shared prefixes ("spring", "springboot") are stored once.
//
// Time Complexity: O(k) per lookup where k is key length
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates a new empty radix tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces the value stored under key.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// Search looks up a key in the tree.
func (t *Trie[V]) Search(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// WalkPrefix calls fn for every key starting with prefix, in lexical order.
// Returning true from fn stops the walk.
func (t *Trie[V]) WalkPrefix(prefix string, fn func(key string, value V) bool) {
	t.tree.WalkPrefix(prefix, func(k string, v interface{}) bool {
		val, ok := v.(V)
		if !ok {
			return false
		}
		return fn(k, val)
	})
}
