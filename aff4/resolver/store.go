package resolver

import (
	"sort"
	"sync"

	"github.com/aff4-go/aff4/aff4/rdfvalue"
)

// Store is the triple store backing a Resolver (spec §4.C): a
// subject/attribute/value map, grounded on
// original_source/pyaff4/pyaff4/data_store.py's MemoryDataStore.Add/
// Set/Get. Add accumulates repeated values for a (subject, attribute)
// pair into a slice; Set always replaces.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]Value
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string]map[string][]Value)}
}

// Add appends value to the (subject, attribute) slot, preserving any
// values already recorded there.
func (s *Store) Add(subject, attribute rdfvalue.URN, value Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(subject)[attribute.String()] = append(s.bucket(subject)[attribute.String()], value)
}

// Set replaces the (subject, attribute) slot with a single value.
func (s *Store) Set(subject, attribute rdfvalue.URN, value Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(subject)[attribute.String()] = []Value{value}
}

func (s *Store) bucket(subject rdfvalue.URN) map[string][]Value {
	key := subject.String()
	b, ok := s.data[key]
	if !ok {
		b = make(map[string][]Value)
		s.data[key] = b
	}
	return b
}

// Get returns the first value set for (subject, attribute), if any.
func (s *Store) Get(subject, attribute rdfvalue.URN) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals, ok := s.data[subject.String()][attribute.String()]
	if !ok || len(vals) == 0 {
		return Value{}, false
	}
	return vals[0], true
}

// GetAll returns every value recorded for (subject, attribute).
func (s *Store) GetAll(subject, attribute rdfvalue.URN) []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vals := s.data[subject.String()][attribute.String()]
	return append([]Value(nil), vals...)
}

// DeleteSubject removes every triple naming subject.
func (s *Store) DeleteSubject(subject rdfvalue.URN) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, subject.String())
}

// Subjects returns every subject URN the store has at least one triple
// for, sorted for deterministic iteration (e.g. when dumping Turtle).
func (s *Store) Subjects() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Attributes returns the attribute predicates recorded for subject,
// sorted for deterministic iteration.
func (s *Store) Attributes(subject string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.data[subject]
	out := make([]string, 0, len(bucket))
	for k := range bucket {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RawValues returns the values recorded for (subject, attribute) given
// as raw strings, used by the Turtle dumper which already has sorted
// subject/attribute keys in hand.
func (s *Store) RawValues(subject, attribute string) []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Value(nil), s.data[subject][attribute]...)
}
