package model

import "slices"

// FaultID identifies a mutant in the external fault catalogue.
type FaultID string

// Fault is an opaque reference to a mutant. It is owned by the catalogue and
// never mutated here.
type Fault struct {
	ID          FaultID `yaml:"id" json:"id"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string  `yaml:"location,omitempty" json:"location,omitempty"`
}

// SortFaultIDs returns ids in ascending order without duplicates.
func SortFaultIDs(ids []FaultID) []FaultID {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)

	return slices.Compact(sorted)
}

// FaultSet is a set of fault identifiers.
type FaultSet map[FaultID]struct{}

// NewFaultSet builds a set from ids.
func NewFaultSet(ids ...FaultID) FaultSet {
	set := make(FaultSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

// Add inserts id.
func (s FaultSet) Add(id FaultID) {
	s[id] = struct{}{}
}

// Has reports membership.
func (s FaultSet) Has(id FaultID) bool {
	_, ok := s[id]
	return ok
}

// Union adds every member of other.
func (s FaultSet) Union(other FaultSet) {
	for id := range other {
		s[id] = struct{}{}
	}
}

// Sorted returns the members in ascending order.
func (s FaultSet) Sorted() []FaultID {
	ids := make([]FaultID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}
