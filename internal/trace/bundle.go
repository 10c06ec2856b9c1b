package trace

import (
	"log/slog"
	"maps"
	"slices"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
)

// Bundle holds one Trace per observation kind for a single execution.
// The zero Bundle is empty and usable.
type Bundle struct {
	traces map[m.ObservationKind]*Trace
}

// NewBundle groups traces by kind. A later trace replaces an earlier one of the same kind.
func NewBundle(traces ...*Trace) Bundle {
	b := Bundle{traces: make(map[m.ObservationKind]*Trace, len(traces))}
	for _, t := range traces {
		if t != nil {
			b.traces[t.kind] = t
		}
	}

	return b
}

// Trace returns the trace of the given kind.
func (b Bundle) Trace(kind m.ObservationKind) (*Trace, bool) {
	t, ok := b.traces[kind]
	return t, ok
}

// Kinds lists the kinds present, ordered.
func (b Bundle) Kinds() []m.ObservationKind {
	return slices.Sorted(maps.Keys(b.traces))
}

// IsEmpty reports whether no observation was captured.
func (b Bundle) IsEmpty() bool {
	for _, t := range b.traces {
		if t.Len() > 0 {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of b.
func (b Bundle) Clone() Bundle {
	out := Bundle{traces: make(map[m.ObservationKind]*Trace, len(b.traces))}
	for kind, t := range b.traces {
		out.traces[kind] = t.Clone()
	}

	return out
}

// Diff diffs every kind present in both bundles, with b as the reference.
func (b Bundle) Diff(other Bundle) []assertion.Assertion {
	var out []assertion.Assertion

	for _, kind := range b.Kinds() {
		theirs, ok := other.Trace(kind)
		if !ok {
			continue
		}

		out = append(out, b.traces[kind].Diff(theirs)...)
	}

	return assertion.Dedupe(out)
}

// IsDetectedBy reports whether a fails against the values recorded in b.
func (b Bundle) IsDetectedBy(a assertion.Assertion) bool {
	t, ok := b.Trace(a.Kind().ObservationKind())
	if !ok {
		return false
	}

	return t.IsDetectedBy(a)
}

// AllAssertions returns an assertion for every fact in every trace.
func (b Bundle) AllAssertions() []assertion.Assertion {
	var out []assertion.Assertion

	for _, kind := range b.Kinds() {
		out = append(out, b.traces[kind].AllAssertions()...)
	}

	return assertion.Dedupe(out)
}

// ScopeAt exposes the values observed after the statement at position.
func (b Bundle) ScopeAt(position int) assertion.Scope {
	return bundleScope{bundle: b, position: position}
}

// BundleBuilder collects every capture pass of one execution. It implements
// observation.Sink and is owned by exactly one execution.
type BundleBuilder struct {
	builders map[m.ObservationKind]*Builder
}

// NewBundleBuilder returns a builder with one trace builder per kind.
func NewBundleBuilder() *BundleBuilder {
	bb := &BundleBuilder{builders: make(map[m.ObservationKind]*Builder, len(m.ObservationKinds))}
	for _, kind := range m.ObservationKinds {
		bb.builders[kind] = NewBuilder(kind)
	}

	return bb
}

// Record adds obs to the trace of its kind.
func (bb *BundleBuilder) Record(position int, v m.VarRef, obs observation.Observation) {
	builder, ok := bb.builders[obs.Kind()]
	if !ok {
		slog.Warn("Dropping observation of unknown kind", "kind", obs.Kind().String(), "position", position)
		return
	}

	if err := builder.Add(position, v, obs); err != nil {
		slog.Warn("Dropping observation", "position", position, "variable", v.String(), "error", err)
	}
}

// Freeze returns the finished bundle.
func (bb *BundleBuilder) Freeze() Bundle {
	traces := make([]*Trace, 0, len(bb.builders))
	for _, kind := range m.ObservationKinds {
		traces = append(traces, bb.builders[kind].Freeze())
	}

	return NewBundle(traces...)
}
