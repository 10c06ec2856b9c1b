package domain

import (
	"maps"
	"slices"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
)

type killEntry struct {
	assertion assertion.Assertion
	faults    m.FaultSet
}

// KillMap maps candidate assertions to the faults they detect. Faults that
// are detected by running the test at all (timeouts, new exceptions) are
// kept apart: they need no assertion.
type KillMap struct {
	entries map[string]*killEntry
	forced  m.FaultSet
}

// NewKillMap returns an empty kill map.
func NewKillMap() *KillMap {
	return &KillMap{
		entries: make(map[string]*killEntry),
		forced:  m.NewFaultSet(),
	}
}

// Add records that a detects id. Assertions are identified by key, so the
// same check derived from two faults lands in one entry.
func (km *KillMap) Add(a assertion.Assertion, id m.FaultID) {
	entry, ok := km.entries[a.Key()]
	if !ok {
		entry = &killEntry{assertion: a, faults: m.NewFaultSet()}
		km.entries[a.Key()] = entry
	}

	entry.faults.Add(id)
}

// Kill records id as detected without an assertion.
func (km *KillMap) Kill(id m.FaultID) {
	km.forced.Add(id)
}

// Remove drops id from the kill set of a. An entry left without faults is
// dropped as a candidate.
func (km *KillMap) Remove(a assertion.Assertion, id m.FaultID) {
	entry, ok := km.entries[a.Key()]
	if !ok {
		return
	}

	delete(entry.faults, id)

	if len(entry.faults) == 0 {
		delete(km.entries, a.Key())
	}
}

// Drop removes a as a candidate.
func (km *KillMap) Drop(a assertion.Assertion) {
	delete(km.entries, a.Key())
}

// Candidates lists every candidate assertion ordered by key.
func (km *KillMap) Candidates() []assertion.Assertion {
	out := make([]assertion.Assertion, 0, len(km.entries))
	for _, k := range slices.Sorted(maps.Keys(km.entries)) {
		out = append(out, km.entries[k].assertion)
	}

	return out
}

// Len is the number of candidates.
func (km *KillMap) Len() int {
	return len(km.entries)
}

// Faults returns the kill set of a. The set must not be modified.
func (km *KillMap) Faults(a assertion.Assertion) m.FaultSet {
	if entry, ok := km.entries[a.Key()]; ok {
		return entry.faults
	}

	return nil
}

// Forced returns the faults detected without an assertion.
func (km *KillMap) Forced() m.FaultSet {
	return km.forced
}

// Detectable is the union of all kill sets.
func (km *KillMap) Detectable() m.FaultSet {
	out := m.NewFaultSet()
	for _, entry := range km.entries {
		out.Union(entry.faults)
	}

	return out
}

// Covered is every fault detected by some candidate or by running the test.
func (km *KillMap) Covered() m.FaultSet {
	out := km.Detectable()
	out.Union(km.forced)

	return out
}

// CoveredBy is the set of faults detected when only chosen is kept.
func (km *KillMap) CoveredBy(chosen []assertion.Assertion) m.FaultSet {
	out := m.NewFaultSet()
	out.Union(km.forced)

	for _, a := range chosen {
		out.Union(km.Faults(a))
	}

	return out
}

// Entries renders the kill map for reports, marking the chosen assertions.
func (km *KillMap) Entries(chosen []assertion.Assertion) []m.KillEntry {
	picked := make(map[string]bool, len(chosen))
	for _, a := range chosen {
		picked[a.Key()] = true
	}

	out := make([]m.KillEntry, 0, len(km.entries))

	for _, a := range km.Candidates() {
		out = append(out, m.KillEntry{
			Assertion: a.Render(),
			Position:  a.Position(),
			Faults:    km.Faults(a).Sorted(),
			Chosen:    picked[a.Key()],
		})
	}

	return out
}

// DropRedundantNullChecks removes every non-null check whose faults are all
// detected by another candidate on the same statement about the same
// variable. Checks that a variable is nil are kept. It returns the number of
// dropped candidates.
func (km *KillMap) DropRedundantNullChecks() int {
	dropped := 0

	for _, a := range km.Candidates() {
		if null, ok := a.(assertion.Null); !ok || null.IsNull {
			continue
		}

		faults := km.Faults(a)

		for _, other := range km.Candidates() {
			if other.Kind() == assertion.KindNull || other.Position() != a.Position() ||
				!assertion.References(other, a.Source()) {
				continue
			}

			if subset(faults, km.Faults(other)) {
				km.Drop(a)
				dropped++

				break
			}
		}
	}

	return dropped
}

func subset(a, b m.FaultSet) bool {
	for id := range a {
		if !b.Has(id) {
			return false
		}
	}

	return true
}
