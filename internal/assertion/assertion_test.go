package assertion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "assay.dev/pkg/assay/internal/model"
)

type variables map[int]string

func (vs variables) Variable(position int) (m.VarRef, bool) {
	typ, ok := vs[position]
	if !ok {
		return m.VarRef{}, false
	}

	return m.NewVarRef(position, typ), true
}

type pair struct{ a, b m.VarRef }

type named struct {
	v    m.VarRef
	name string
}

type fakeScope struct {
	primitives map[m.VarRef]m.Value
	nulls      map[m.VarRef]bool
	equals     map[pair]bool
	compares   map[pair]int
	inspectors map[named]m.Value
	fields     map[named]m.Value
}

func (s fakeScope) Primitive(v m.VarRef) (m.Value, bool) {
	r, ok := s.primitives[v]
	return r, ok
}

func (s fakeScope) IsNull(v m.VarRef) (bool, bool) {
	r, ok := s.nulls[v]
	return r, ok
}

func (s fakeScope) Equals(v, other m.VarRef) (bool, bool) {
	r, ok := s.equals[pair{v, other}]
	return r, ok
}

func (s fakeScope) Compare(v, other m.VarRef) (int, bool) {
	r, ok := s.compares[pair{v, other}]
	return r, ok
}

func (s fakeScope) Inspect(v m.VarRef, name string) (m.Value, bool) {
	r, ok := s.inspectors[named{v, name}]
	return r, ok
}

func (s fakeScope) Field(v m.VarRef, name string) (m.Value, bool) {
	r, ok := s.fields[named{v, name}]
	return r, ok
}

var (
	stack  = m.NewVarRef(0, "*Stack")
	other  = m.NewVarRef(1, "*Stack")
	size   = m.NewVarRef(2, "int")
	label  = m.NewVarRef(3, "string")
	ratio  = m.NewVarRef(4, "float64")
	count  = m.NewVarRef(5, "int")
	vars   = variables{0: "*Stack", 1: "*Stack", 2: "int", 3: "string", 4: "float64", 5: "int"}
	sample = fakeScope{
		primitives: map[m.VarRef]m.Value{size: m.Int(5), label: m.String("top"), ratio: m.Float(math.Copysign(0, -1))},
		nulls:      map[m.VarRef]bool{stack: false, other: true},
		equals:     map[pair]bool{{stack, other}: false, {size, count}: true},
		compares:   map[pair]int{{stack, other}: 1, {size, count}: 0},
		inspectors: map[named]m.Value{{stack, "Len"}: m.Int(3), {stack, "IsEmpty"}: m.Bool(false), {stack, "Load"}: m.Float(0)},
		fields:     map[named]m.Value{{stack, "Cap"}: m.Uint(8), {stack, "Ratio"}: m.Float(math.NaN())},
	}
)

func candidates() []Assertion {
	return []Assertion{
		Primitive{At: 2, Var: size, Expected: m.Int(5)},
		Primitive{At: 2, Var: size, Expected: m.Int(-7)},
		Primitive{At: 3, Var: label, Expected: m.String("top")},
		Null{At: 1, Var: stack, IsNull: false},
		Null{At: 1, Var: other, IsNull: true},
		Equals{At: 1, Var: stack, Other: other, Expected: false},
		Equals{At: 1, Var: stack, Other: other, Expected: true},
		Compare{At: 1, Var: stack, Other: other, Expected: 1},
		Compare{At: 1, Var: stack, Other: other, Expected: -1},
		Inspector{At: 2, Var: stack, Method: "Len", Expected: m.Int(3)},
		Inspector{At: 2, Var: stack, Method: "IsEmpty", Expected: m.Bool(false)},
		Field{At: 2, Var: stack, Name: "Cap", Expected: m.Uint(8)},
		Field{At: 2, Var: stack, Name: "Ratio", Expected: m.Float(math.NaN())},
		Field{At: 2, Var: stack, Name: "Missing", Expected: m.Int(1)},
		Primitive{At: 4, Var: ratio, Expected: m.Float(math.Copysign(0, -1))},
		Primitive{At: 4, Var: ratio, Expected: m.Float(0)},
		Primitive{At: 4, Var: ratio, Expected: m.Float(math.NaN())},
		Equals{At: 5, Var: size, Other: count, Expected: true},
		Equals{At: 5, Var: size, Other: count, Expected: false},
		Compare{At: 5, Var: size, Other: count, Expected: 0},
		Compare{At: 5, Var: size, Other: count, Expected: -1},
		Inspector{At: 2, Var: stack, Method: "Load", Expected: m.Float(0)},
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		assertion Assertion
		want      string
	}{
		{Primitive{At: 2, Var: size, Expected: m.Int(5)}, "v2 == 5"},
		{Null{At: 1, Var: stack, IsNull: true}, "v0 == nil"},
		{Null{At: 1, Var: stack, IsNull: false}, "v0 != nil"},
		{Equals{At: 1, Var: stack, Other: other, Expected: true}, "v0.Equal(v1)"},
		{Equals{At: 1, Var: stack, Other: other, Expected: false}, "!v0.Equal(v1)"},
		{Compare{At: 1, Var: stack, Other: other, Expected: -1}, "v0.Compare(v1) == -1"},
		{Inspector{At: 2, Var: stack, Method: "Len", Expected: m.Int(3)}, "v0.Len() == 3"},
		{Field{At: 2, Var: stack, Name: "Cap", Expected: m.Uint(8)}, "v0.Cap == uint64(8)"},
		{Primitive{At: 4, Var: ratio, Expected: m.Float(math.NaN())}, "math.IsNaN(float64(v4))"},
		{Primitive{At: 4, Var: ratio, Expected: m.Float(math.Copysign(0, -1))}, "math.Signbit(float64(v4)) && v4 == 0"},
		{Primitive{At: 4, Var: ratio, Expected: m.Float(2.5)}, "v4 == 2.5"},
		{Field{At: 2, Var: stack, Name: "Ratio", Expected: m.Float(0)}, "!math.Signbit(float64(v0.Ratio)) && v0.Ratio == 0"},
		{Equals{At: 5, Var: size, Other: count, Expected: true}, "v2 == v5"},
		{Equals{At: 5, Var: size, Other: count, Expected: false}, "v2 != v5"},
		{Compare{At: 5, Var: size, Other: count, Expected: 1}, "cmp.Compare(v2, v5) == 1"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			require.Equal(t, tt.want, tt.assertion.Render())
		})
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	for _, a := range candidates() {
		t.Run(a.Render(), func(t *testing.T) {
			parsed, err := Parse(a.Render(), a.Position(), vars)
			require.NoError(t, err)

			assert.Equal(t, a.Key(), parsed.Key())
			assert.Equal(t, a.Evaluate(sample), parsed.Evaluate(sample))
			assert.Equal(t, a.Evaluate(fakeScope{}), parsed.Evaluate(fakeScope{}))
		})
	}
}

func TestEvaluate(t *testing.T) {
	want := []bool{
		true, false, true, true, true, true, false, true, false, true, true, true, true, false,
		true, false, false, true, false, true, false, true,
	}

	for i, a := range candidates() {
		assert.Equal(t, want[i], a.Evaluate(sample), a.Render())
	}
}

// TestFloatChecksAgreeWithGo evaluates each rendered check as the Go code
// written next to it and compares the result with Evaluate.
func TestFloatChecksAgreeWithGo(t *testing.T) {
	negZero := math.Copysign(0, -1)

	tests := []struct {
		expected m.Value
		render   string
		check    func(v4 float64) bool
	}{
		{m.Float(math.NaN()), "math.IsNaN(float64(v4))", func(v4 float64) bool { return math.IsNaN(float64(v4)) }},
		{m.Float(negZero), "math.Signbit(float64(v4)) && v4 == 0", func(v4 float64) bool { return math.Signbit(float64(v4)) && v4 == 0 }},
		{m.Float(0), "!math.Signbit(float64(v4)) && v4 == 0", func(v4 float64) bool { return !math.Signbit(float64(v4)) && v4 == 0 }},
		{m.Float(1.5), "v4 == 1.5", func(v4 float64) bool { return v4 == 1.5 }},
		{m.Float(math.Inf(-1)), "v4 == math.Inf(-1)", func(v4 float64) bool { return v4 == math.Inf(-1) }},
	}

	actuals := []float64{math.NaN(), negZero, 0, 1.5, math.Inf(-1)}

	for _, tt := range tests {
		t.Run(tt.render, func(t *testing.T) {
			a := Primitive{At: 4, Var: ratio, Expected: tt.expected}
			require.Equal(t, tt.render, a.Render())

			parsed, err := Parse(a.Render(), 4, vars)
			require.NoError(t, err)
			require.Equal(t, a.Key(), parsed.Key())

			for _, actual := range actuals {
				scope := fakeScope{primitives: map[m.VarRef]m.Value{ratio: m.Float(actual)}}
				assert.Equal(t, tt.check(actual), a.Evaluate(scope), "v4 = %v", actual)
				assert.Equal(t, tt.check(actual), parsed.Evaluate(scope), "v4 = %v", actual)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		text string
		err  error
	}{
		{"v2 >", ErrSyntax},
		{"v2 < 5", ErrSyntax},
		{"x == 5", ErrSyntax},
		{"v2 == y", ErrSyntax},
		{"-v0.Equal(v1)", ErrSyntax},
		{"v0.Compare(v1) == 1.5", ErrSyntax},
		{"v9 == 5", ErrUnresolvedVariable},
		{"v0.Equal(v9)", ErrUnresolvedVariable},
		{"v2 != 5", ErrSyntax},
		{"cmp.Compare(v2) == 1", ErrSyntax},
		{"math.Signbit(float64(v4)) && v2 == 0", ErrSyntax},
		{"math.Signbit(float64(v4)) && v4 == 1", ErrSyntax},
		{"math.IsNaN(float64(v9))", ErrUnresolvedVariable},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := Parse(tt.text, 2, vars)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestCopyForOffset(t *testing.T) {
	shifted := variables{10: "*Stack", 11: "*Stack", 12: "int"}

	a := Compare{At: 1, Var: stack, Other: other, Expected: 1}
	copied, err := a.CopyForOffset(shifted, 10)
	require.NoError(t, err)
	require.Equal(t, Compare{At: 11, Var: m.NewVarRef(10, "*Stack"), Other: m.NewVarRef(11, "*Stack"), Expected: 1}, copied)

	_, err = Primitive{At: 3, Var: label, Expected: m.String("x")}.CopyForOffset(shifted, 10)
	require.ErrorIs(t, err, ErrUnresolvedVariable)

	_, err = Primitive{At: 2, Var: size, Expected: m.Int(1)}.CopyForOffset(variables{12: "string"}, 10)
	require.ErrorIs(t, err, ErrUnresolvedVariable)
}

func TestKeyOrderingAndDedupe(t *testing.T) {
	as := []Assertion{
		Primitive{At: 10, Var: m.NewVarRef(10, "int"), Expected: m.Int(1)},
		Primitive{At: 2, Var: size, Expected: m.Int(5)},
		Null{At: 1, Var: stack},
		Primitive{At: 2, Var: size, Expected: m.Int(5)},
	}

	out := Dedupe(as)
	require.Len(t, out, 3)
	require.Equal(t, 1, out[0].Position())
	require.Equal(t, 2, out[1].Position())
	require.Equal(t, 10, out[2].Position())

	require.True(t, References(Equals{At: 1, Var: stack, Other: other}, other))
	require.False(t, References(Null{At: 1, Var: stack}, other))
}

func TestKindObservationKind(t *testing.T) {
	require.Equal(t, m.ObserveComparison, KindEquals.ObservationKind())
	require.Equal(t, m.ObserveComparison, KindCompare.ObservationKind())
	require.Equal(t, m.ObserveNull, KindNull.ObservationKind())
	require.Equal(t, m.ObserveField, KindField.ObservationKind())
}
