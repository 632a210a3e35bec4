package state

import "sync"

// Store is an identity-keyed state store. Commands key per-instance state by
// their own identity and per-camera state by the camera, so state survives
// exactly as long as its owner and never leaks across owners. Eviction is
// explicit via Remove or Clear.
type Store[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	init    func(key K) V
}

// StoreOption configures a Store at construction time.
type StoreOption[K comparable, V any] func(s *Store[K, V])

// WithInit supplies the constructor used to lazily build an entry the first
// time Get sees a key. Without it, Get materializes the zero value.
//
// Parameters:
//   - init: constructor invoked with the missing key
//
// Returns:
//   - StoreOption: option function to apply
func WithInit[K comparable, V any](init func(key K) V) StoreOption[K, V] {
	return func(s *Store[K, V]) {
		s.init = init
	}
}

// NewStore creates an empty identity-keyed state store.
//
// Parameters:
//   - options: variadic StoreOption functions
//
// Returns:
//   - *Store[K, V]: the new store
func NewStore[K comparable, V any](options ...StoreOption[K, V]) *Store[K, V] {
	s := &Store[K, V]{
		entries: make(map[K]V),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get returns the state for key, lazily constructing it on first access.
//
// Parameters:
//   - key: the owner identity
//
// Returns:
//   - V: the stored (or newly constructed) state
func (s *Store[K, V]) Get(key K) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.entries[key]; ok {
		return v
	}
	var v V
	if s.init != nil {
		v = s.init(key)
	}
	s.entries[key] = v
	return v
}

// Peek returns the state for key without constructing a missing entry.
//
// Parameters:
//   - key: the owner identity
//
// Returns:
//   - V: the stored state, or the zero value
//   - bool: true when an entry exists
func (s *Store[K, V]) Peek(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	return v, ok
}

// Set stores state for key, replacing any existing entry.
//
// Parameters:
//   - key: the owner identity
//   - value: the state to store
func (s *Store[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
}

// Remove evicts the entry for key and returns it.
//
// Parameters:
//   - key: the owner identity
//
// Returns:
//   - V: the removed state, or the zero value
//   - bool: true when an entry existed
func (s *Store[K, V]) Remove(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return v, ok
}

// Clear evicts every entry, invoking fn (when non-nil) on each before removal
// so owners can release held resources.
//
// Parameters:
//   - fn: optional per-entry teardown
func (s *Store[K, V]) Clear(fn func(key K, value V)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.entries {
		if fn != nil {
			fn(k, v)
		}
		delete(s.entries, k)
	}
}

// Len returns the number of stored entries.
//
// Returns:
//   - int: the entry count
func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
