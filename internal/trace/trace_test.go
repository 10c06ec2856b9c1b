package trace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
)

var (
	v1 = m.NewVarRef(1, "*Stack")
	v2 = m.NewVarRef(2, "int")
	v3 = m.NewVarRef(3, "*Stack")
)

func bundle(t *testing.T, record func(b *BundleBuilder)) Bundle {
	t.Helper()

	bb := NewBundleBuilder()
	record(bb)

	return bb.Freeze()
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(m.ObservePrimitive)
	require.NoError(t, b.Add(2, v2, observation.Primitive{Value: m.Int(1)}))
	require.NoError(t, b.Add(2, v2, observation.Primitive{Value: m.Int(5)}))

	err := b.Add(2, v2, observation.Null{})
	require.ErrorIs(t, err, ErrKindMismatch)

	tr := b.Freeze()
	require.Equal(t, 1, tr.Len())

	obs, ok := tr.Get(2, v2)
	require.True(t, ok)
	require.Equal(t, observation.Primitive{Value: m.Int(5)}, obs)

	require.ErrorIs(t, b.Add(3, v3, observation.Primitive{}), ErrFrozen)
	require.Equal(t, 1, tr.Len())
}

func TestDiffPrimitiveScenario(t *testing.T) {
	baseline := bundle(t, func(b *BundleBuilder) {
		b.Record(2, v2, observation.Primitive{Value: m.Int(5)})
	})
	mutant := bundle(t, func(b *BundleBuilder) {
		b.Record(2, v2, observation.Primitive{Value: m.Int(0)})
	})

	out := baseline.Diff(mutant)
	require.Len(t, out, 1)
	require.Equal(t, "v2 == 5", out[0].Render())
	require.Equal(t, 2, out[0].Position())

	require.True(t, mutant.IsDetectedBy(out[0]))
	require.False(t, baseline.IsDetectedBy(out[0]))
}

func TestDiffIgnoresOneSidedEntries(t *testing.T) {
	baseline := bundle(t, func(b *BundleBuilder) {
		b.Record(1, v1, observation.Null{IsNull: false})
		b.Record(2, v2, observation.Primitive{Value: m.Int(5)})
	})
	mutant := bundle(t, func(b *BundleBuilder) {
		b.Record(1, v1, observation.Null{IsNull: false})
	})

	require.Empty(t, baseline.Diff(mutant))
}

func TestIsDetectedByRequiresObservedFact(t *testing.T) {
	mutant := bundle(t, func(b *BundleBuilder) {
		b.Record(3, v3, observation.NewComparison(map[m.VarRef]bool{v1: true}, nil))
		b.Record(3, v3, observation.NewInspector(map[string]m.Value{"Len": m.Int(2)}))
	})

	tests := []struct {
		name      string
		assertion assertion.Assertion
		detected  bool
	}{
		{"differing equals", assertion.Equals{At: 3, Var: v3, Other: v1, Expected: false}, true},
		{"matching equals", assertion.Equals{At: 3, Var: v3, Other: v1, Expected: true}, false},
		{"unobserved compare", assertion.Compare{At: 3, Var: v3, Other: v1, Expected: 0}, false},
		{"unobserved inspector", assertion.Inspector{At: 3, Var: v3, Method: "Size", Expected: m.Int(2)}, false},
		{"differing inspector", assertion.Inspector{At: 3, Var: v3, Method: "Len", Expected: m.Int(3)}, true},
		{"other position", assertion.Inspector{At: 2, Var: v3, Method: "Len", Expected: m.Int(3)}, false},
		{"missing kind", assertion.Primitive{At: 3, Var: v3, Expected: m.Int(3)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.detected, mutant.IsDetectedBy(tt.assertion))
		})
	}
}

func TestAllAssertions(t *testing.T) {
	b := bundle(t, func(b *BundleBuilder) {
		b.Record(1, v1, observation.Null{IsNull: false})
		b.Record(2, v2, observation.Primitive{Value: m.Int(5)})
		b.Record(1, v1, observation.NewField(map[string]m.Value{"Top": m.Int(4)}))
	})

	var rendered []string
	for _, a := range b.AllAssertions() {
		rendered = append(rendered, a.Render())
	}

	require.Equal(t, []string{"v1.Top == 4", "v1 != nil", "v2 == 5"}, rendered)

	for _, a := range b.AllAssertions() {
		require.True(t, a.Evaluate(b.ScopeAt(a.Position())), a.Render())
		require.False(t, b.IsDetectedBy(a))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := bundle(t, func(b *BundleBuilder) {
		b.Record(2, v2, observation.Primitive{Value: m.Int(5)})
	})

	c := b.Clone()
	require.Equal(t, b.Kinds(), c.Kinds())

	orig, _ := b.Trace(m.ObservePrimitive)
	cloned, _ := c.Trace(m.ObservePrimitive)
	require.NotSame(t, orig, cloned)
	require.Equal(t, orig.Keys(), cloned.Keys())
}

func TestEmptyBundle(t *testing.T) {
	var b Bundle

	require.True(t, b.IsEmpty())
	require.Empty(t, b.AllAssertions())
	require.False(t, b.IsDetectedBy(assertion.Null{At: 0, Var: v1}))
	require.True(t, NewBundleBuilder().Freeze().IsEmpty())
}
