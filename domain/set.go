package domain

import (
	"encoding/json"
	"sort"
)

// IDSet is a set of user ids. It is stored as a json object keyed by member id
// ({"id1": true, "id2": true}), so a member can never appear twice.
type IDSet map[string]bool

// NewIDSet returns a set holding the given ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Has reports whether id is a member.
func (s IDSet) Has(id string) bool {
	return s[id]
}

// Add inserts id and reports whether the set changed.
func (s *IDSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	if *s == nil {
		*s = make(IDSet)
	}
	(*s)[id] = true
	return true
}

// Remove deletes id and reports whether the set changed.
func (s *IDSet) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(*s, id)
	return true
}

// Set makes id a member if member is true and removes it otherwise.
// It reports whether the set changed.
func (s *IDSet) Set(id string, member bool) bool {
	if member {
		return s.Add(id)
	}
	return s.Remove(id)
}

// Toggle removes id if present, adds it otherwise, and returns the new membership.
func (s *IDSet) Toggle(id string) bool {
	if s.Remove(id) {
		return false
	}
	s.Add(id)
	return true
}

// Len returns the number of members.
func (s IDSet) Len() int {
	return len(s)
}

// Slice returns the members in ascending order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id, ok := range s {
		if ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON writes an empty object instead of null for an empty set.
func (s IDSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]bool(s))
}
