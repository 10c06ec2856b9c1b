// Package observation models the facts that can be recorded about one
// variable at one program point, one value per capture pass.
package observation

import (
	"maps"
	"slices"

	m "assay.dev/pkg/assay/internal/model"
)

// Observation is implemented only by the kinds in this package. Values are
// immutable once constructed.
type Observation interface {
	Kind() m.ObservationKind

	sealed()
}

// Primitive is a captured scalar or string.
type Primitive struct {
	Value m.Value
}

// Null records whether a reference held no object.
type Null struct {
	IsNull bool
}

// Comparison records Equal and Compare results against other live variables
// of a compatible type.
type Comparison struct {
	equals  map[m.VarRef]bool
	compare map[m.VarRef]int
}

// Inspector records accessor results by accessor name.
type Inspector struct {
	results map[string]m.Value
}

// Field records public data member values by member name.
type Field struct {
	values map[string]m.Value
}

func (Primitive) sealed()  {}
func (Null) sealed()       {}
func (Comparison) sealed() {}
func (Inspector) sealed()  {}
func (Field) sealed()      {}

func (Primitive) Kind() m.ObservationKind  { return m.ObservePrimitive }
func (Null) Kind() m.ObservationKind       { return m.ObserveNull }
func (Comparison) Kind() m.ObservationKind { return m.ObserveComparison }
func (Inspector) Kind() m.ObservationKind  { return m.ObserveInspector }
func (Field) Kind() m.ObservationKind      { return m.ObserveField }

// NewComparison copies the given results. Compare results are normalized to
// their sign.
func NewComparison(equals map[m.VarRef]bool, compare map[m.VarRef]int) Comparison {
	c := Comparison{
		equals:  maps.Clone(equals),
		compare: make(map[m.VarRef]int, len(compare)),
	}

	if c.equals == nil {
		c.equals = map[m.VarRef]bool{}
	}

	for v, r := range compare {
		c.compare[v] = sign(r)
	}

	return c
}

// EqualsWith returns the Equal result recorded against other.
func (c Comparison) EqualsWith(other m.VarRef) (bool, bool) {
	r, ok := c.equals[other]
	return r, ok
}

// CompareWith returns the Compare result recorded against other.
func (c Comparison) CompareWith(other m.VarRef) (int, bool) {
	r, ok := c.compare[other]
	return r, ok
}

// Others lists every variable compared against, ordered.
func (c Comparison) Others() []m.VarRef {
	seen := make(map[m.VarRef]struct{}, len(c.equals)+len(c.compare))
	for v := range c.equals {
		seen[v] = struct{}{}
	}

	for v := range c.compare {
		seen[v] = struct{}{}
	}

	others := slices.Collect(maps.Keys(seen))
	slices.SortFunc(others, func(a, b m.VarRef) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}

		return 0
	})

	return others
}

// IsEmpty reports whether nothing was recorded.
func (c Comparison) IsEmpty() bool {
	return len(c.equals) == 0 && len(c.compare) == 0
}

// NewInspector copies the given accessor results.
func NewInspector(results map[string]m.Value) Inspector {
	return Inspector{results: cloneValues(results)}
}

// Result returns the value recorded for an accessor.
func (i Inspector) Result(name string) (m.Value, bool) {
	v, ok := i.results[name]
	return v, ok
}

// Names lists the recorded accessors, sorted.
func (i Inspector) Names() []string {
	return slices.Sorted(maps.Keys(i.results))
}

// NewField copies the given member values.
func NewField(values map[string]m.Value) Field {
	return Field{values: cloneValues(values)}
}

// Value returns the recorded member value.
func (f Field) Value(name string) (m.Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Names lists the recorded members, sorted.
func (f Field) Names() []string {
	return slices.Sorted(maps.Keys(f.values))
}

// Clone returns a deep copy of o.
func Clone(o Observation) Observation {
	switch obs := o.(type) {
	case Primitive, Null:
		return obs
	case Comparison:
		return NewComparison(obs.equals, obs.compare)
	case Inspector:
		return NewInspector(obs.results)
	case Field:
		return NewField(obs.values)
	}

	return o
}

func cloneValues(values map[string]m.Value) map[string]m.Value {
	if values == nil {
		return map[string]m.Value{}
	}

	return maps.Clone(values)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}

	return 0
}
