// Package trace holds the observations of a single execution, keyed by
// statement position and variable. Traces are assembled by a Builder and are
// immutable once frozen, so one baseline trace can be compared against any
// number of mutant traces concurrently.
package trace

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
)

var (
	// ErrKindMismatch is returned when an observation is added to a trace of another kind.
	ErrKindMismatch = errors.New("observation kind mismatch")
	// ErrFrozen is returned when a frozen builder is reused.
	ErrFrozen = errors.New("trace builder already frozen")
)

// Key addresses one entry of a trace.
type Key struct {
	Position int
	Variable m.VarRef
}

func compareKeys(a, b Key) int {
	switch {
	case a.Position != b.Position:
		return a.Position - b.Position
	case a.Variable.Less(b.Variable):
		return -1
	case b.Variable.Less(a.Variable):
		return 1
	}

	return 0
}

// Trace maps (position, variable) to the single observation of one kind
// captured during one execution.
type Trace struct {
	kind    m.ObservationKind
	entries map[Key]observation.Observation
}

// Kind is the observation kind stored in the trace.
func (t *Trace) Kind() m.ObservationKind {
	return t.kind
}

// Len is the number of entries.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}

	return len(t.entries)
}

// Get returns the observation recorded for v at position.
func (t *Trace) Get(position int, v m.VarRef) (observation.Observation, bool) {
	if t == nil {
		return nil, false
	}

	obs, ok := t.entries[Key{Position: position, Variable: v}]

	return obs, ok
}

// Keys lists the entries in position order.
func (t *Trace) Keys() []Key {
	if t == nil {
		return nil
	}

	return slices.SortedFunc(maps.Keys(t.entries), compareKeys)
}

// Clone returns a deep copy of t.
func (t *Trace) Clone() *Trace {
	if t == nil {
		return nil
	}

	entries := make(map[Key]observation.Observation, len(t.entries))
	for k, obs := range t.entries {
		entries[k] = observation.Clone(obs)
	}

	return &Trace{kind: t.kind, entries: entries}
}

// Diff returns the assertions that distinguish t from other, with expected
// values taken from t. Entries present in only one trace are ignored.
func (t *Trace) Diff(other *Trace) []assertion.Assertion {
	if t == nil || other == nil || t.kind != other.kind {
		return nil
	}

	var out []assertion.Assertion

	for _, k := range t.Keys() {
		theirs, ok := other.entries[k]
		if !ok {
			continue
		}

		out = append(out, observation.Diff(k.Position, k.Variable, t.entries[k], theirs)...)
	}

	return assertion.Dedupe(out)
}

// IsDetectedBy reports whether a fails when replayed against the values
// stored in t. An assertion about a fact t did not observe is never detected.
func (t *Trace) IsDetectedBy(a assertion.Assertion) bool {
	if t == nil || a.Kind().ObservationKind() != t.kind {
		return false
	}

	if _, ok := t.Get(a.Position(), a.Source()); !ok {
		return false
	}

	probe := &probeScope{inner: traceScope{trace: t, position: a.Position()}}
	passed := a.Evaluate(probe)

	return !probe.missing && !passed
}

// AllAssertions returns an assertion for every fact recorded in t.
func (t *Trace) AllAssertions() []assertion.Assertion {
	var out []assertion.Assertion

	for _, k := range t.Keys() {
		out = append(out, observation.Assertions(k.Position, k.Variable, t.entries[k])...)
	}

	return assertion.Dedupe(out)
}

// Builder accumulates the entries of one trace for one execution. It is not
// safe for concurrent use; each execution owns its own builder.
type Builder struct {
	kind    m.ObservationKind
	entries map[Key]observation.Observation
}

// NewBuilder starts a trace of the given kind.
func NewBuilder(kind m.ObservationKind) *Builder {
	return &Builder{kind: kind, entries: map[Key]observation.Observation{}}
}

// Add records obs for v at position, replacing any earlier entry.
func (b *Builder) Add(position int, v m.VarRef, obs observation.Observation) error {
	if b.entries == nil {
		return ErrFrozen
	}

	if obs.Kind() != b.kind {
		return fmt.Errorf("%w: %s trace got %s", ErrKindMismatch, b.kind, obs.Kind())
	}

	b.entries[Key{Position: position, Variable: v}] = obs

	return nil
}

// Freeze returns the finished trace. The builder cannot be used afterwards.
func (b *Builder) Freeze() *Trace {
	t := &Trace{kind: b.kind, entries: b.entries}
	if t.entries == nil {
		t.entries = map[Key]observation.Observation{}
	}

	b.entries = nil

	return t
}
