package graph

import (
	"encoding/json"
	"maps"
	"slices"
)

// Set is an unordered collection of dependency paths.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	s.Add(items...)

	return s
}

// Add inserts items. Add on a nil set panics, so callers initialize sets
// with [NewSet] or [Set.Union].
func (s Set) Add(items ...string) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Has reports whether item is in the set.
func (s Set) Has(item string) bool {
	_, ok := s[item]

	return ok
}

// Union returns s with every item of o added, allocating s if nil.
func (s Set) Union(o Set) Set {
	if len(o) == 0 {
		return s
	}

	if s == nil {
		s = make(Set, len(o))
	}

	for item := range o {
		s[item] = struct{}{}
	}

	return s
}

// Clone returns a copy of s, or nil for an empty set.
func (s Set) Clone() Set {
	if len(s) == 0 {
		return nil
	}

	return maps.Clone(s)
}

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// MarshalYAML encodes the set as a sorted sequence.
func (s Set) MarshalYAML() (any, error) { return s.Sorted(), nil }

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) { return json.Marshal(s.Sorted()) }
