// Package kvstore holds the latest value for each key.
//
// Store is safe for concurrent use. Writes are last-write-wins and reads never
// block on writers.
package kvstore

import (
	"slices"
	"sync"
)

// Store maps keys to their most recently written value.
type Store struct {
	m sync.Map // string -> string
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// Update inserts or replaces the value for key.
func (s *Store) Update(key, value string) {
	s.m.Store(key, value)
}

// GetValue returns the current value for key.
// The boolean is false when the key was never written, so callers can tell
// an absent key from one set to the empty string.
func (s *Store) GetValue(key string) (string, bool) {
	v, ok := s.m.Load(key)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	n := 0
	s.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Keys returns a sorted snapshot of the stored keys.
func (s *Store) Keys() []string {
	keys := make([]string, 0)
	s.m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	slices.Sort(keys)
	return keys
}
