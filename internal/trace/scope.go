package trace

import (
	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
)

// traceScope answers only the lookups backed by its own trace kind.
type traceScope struct {
	trace    *Trace
	position int
}

func (s traceScope) lookup(kind m.ObservationKind, v m.VarRef) (observation.Observation, bool) {
	if s.trace == nil || s.trace.kind != kind {
		return nil, false
	}

	return s.trace.Get(s.position, v)
}

func (s traceScope) Primitive(v m.VarRef) (m.Value, bool) {
	obs, ok := s.lookup(m.ObservePrimitive, v)
	if !ok {
		return m.Value{}, false
	}

	p, ok := obs.(observation.Primitive)

	return p.Value, ok
}

func (s traceScope) IsNull(v m.VarRef) (bool, bool) {
	obs, ok := s.lookup(m.ObserveNull, v)
	if !ok {
		return false, false
	}

	n, ok := obs.(observation.Null)

	return n.IsNull, ok
}

func (s traceScope) Equals(v, other m.VarRef) (bool, bool) {
	obs, ok := s.lookup(m.ObserveComparison, v)
	if !ok {
		return false, false
	}

	c, ok := obs.(observation.Comparison)
	if !ok {
		return false, false
	}

	return c.EqualsWith(other)
}

func (s traceScope) Compare(v, other m.VarRef) (int, bool) {
	obs, ok := s.lookup(m.ObserveComparison, v)
	if !ok {
		return 0, false
	}

	c, ok := obs.(observation.Comparison)
	if !ok {
		return 0, false
	}

	return c.CompareWith(other)
}

func (s traceScope) Inspect(v m.VarRef, inspector string) (m.Value, bool) {
	obs, ok := s.lookup(m.ObserveInspector, v)
	if !ok {
		return m.Value{}, false
	}

	i, ok := obs.(observation.Inspector)
	if !ok {
		return m.Value{}, false
	}

	return i.Result(inspector)
}

func (s traceScope) Field(v m.VarRef, field string) (m.Value, bool) {
	obs, ok := s.lookup(m.ObserveField, v)
	if !ok {
		return m.Value{}, false
	}

	f, ok := obs.(observation.Field)
	if !ok {
		return m.Value{}, false
	}

	return f.Value(field)
}

// bundleScope routes each lookup to the trace of the matching kind.
type bundleScope struct {
	bundle   Bundle
	position int
}

func (s bundleScope) at(kind m.ObservationKind) traceScope {
	t, _ := s.bundle.Trace(kind)
	return traceScope{trace: t, position: s.position}
}

func (s bundleScope) Primitive(v m.VarRef) (m.Value, bool) {
	return s.at(m.ObservePrimitive).Primitive(v)
}

func (s bundleScope) IsNull(v m.VarRef) (bool, bool) {
	return s.at(m.ObserveNull).IsNull(v)
}

func (s bundleScope) Equals(v, other m.VarRef) (bool, bool) {
	return s.at(m.ObserveComparison).Equals(v, other)
}

func (s bundleScope) Compare(v, other m.VarRef) (int, bool) {
	return s.at(m.ObserveComparison).Compare(v, other)
}

func (s bundleScope) Inspect(v m.VarRef, inspector string) (m.Value, bool) {
	return s.at(m.ObserveInspector).Inspect(v, inspector)
}

func (s bundleScope) Field(v m.VarRef, field string) (m.Value, bool) {
	return s.at(m.ObserveField).Field(v, field)
}

// probeScope remembers whether any lookup came back empty.
type probeScope struct {
	inner   assertion.Scope
	missing bool
}

func (p *probeScope) note(ok bool) {
	if !ok {
		p.missing = true
	}
}

func (p *probeScope) Primitive(v m.VarRef) (m.Value, bool) {
	r, ok := p.inner.Primitive(v)
	p.note(ok)

	return r, ok
}

func (p *probeScope) IsNull(v m.VarRef) (bool, bool) {
	r, ok := p.inner.IsNull(v)
	p.note(ok)

	return r, ok
}

func (p *probeScope) Equals(v, other m.VarRef) (bool, bool) {
	r, ok := p.inner.Equals(v, other)
	p.note(ok)

	return r, ok
}

func (p *probeScope) Compare(v, other m.VarRef) (int, bool) {
	r, ok := p.inner.Compare(v, other)
	p.note(ok)

	return r, ok
}

func (p *probeScope) Inspect(v m.VarRef, inspector string) (m.Value, bool) {
	r, ok := p.inner.Inspect(v, inspector)
	p.note(ok)

	return r, ok
}

func (p *probeScope) Field(v m.VarRef, field string) (m.Value, bool) {
	r, ok := p.inner.Field(v, field)
	p.note(ok)

	return r, ok
}
