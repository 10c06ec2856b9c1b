package observation

import (
	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
)

// Diff returns the assertions that witness a difference between ref and
// other for variable v at statement at. Expected values always come from ref.
// Observations of different kinds never produce assertions.
func Diff(at int, v m.VarRef, ref, other Observation) []assertion.Assertion {
	var out []assertion.Assertion

	switch r := ref.(type) {
	case Primitive:
		o, ok := other.(Primitive)
		if ok && !r.Value.Equal(o.Value) {
			out = append(out, assertion.Primitive{At: at, Var: v, Expected: r.Value})
		}

	case Null:
		o, ok := other.(Null)
		if ok && r.IsNull != o.IsNull {
			out = append(out, assertion.Null{At: at, Var: v, IsNull: r.IsNull})
		}

	case Comparison:
		o, ok := other.(Comparison)
		if !ok {
			break
		}

		for _, peer := range r.Others() {
			if want, ok := r.EqualsWith(peer); ok {
				if got, ok := o.EqualsWith(peer); ok && got != want {
					out = append(out, assertion.Equals{At: at, Var: v, Other: peer, Expected: want})
				}
			}

			if want, ok := r.CompareWith(peer); ok {
				if got, ok := o.CompareWith(peer); ok && got != want {
					out = append(out, assertion.Compare{At: at, Var: v, Other: peer, Expected: want})
				}
			}
		}

	case Inspector:
		o, ok := other.(Inspector)
		if !ok {
			break
		}

		for _, name := range r.Names() {
			want, _ := r.Result(name)
			if got, ok := o.Result(name); ok && !got.Equal(want) {
				out = append(out, assertion.Inspector{At: at, Var: v, Method: name, Expected: want})
			}
		}

	case Field:
		o, ok := other.(Field)
		if !ok {
			break
		}

		for _, name := range r.Names() {
			want, _ := r.Value(name)
			if got, ok := o.Value(name); ok && !got.Equal(want) {
				out = append(out, assertion.Field{At: at, Var: v, Name: name, Expected: want})
			}
		}
	}

	return out
}

// Assertions returns one assertion for every fact recorded in obs.
func Assertions(at int, v m.VarRef, obs Observation) []assertion.Assertion {
	var out []assertion.Assertion

	switch o := obs.(type) {
	case Primitive:
		out = append(out, assertion.Primitive{At: at, Var: v, Expected: o.Value})

	case Null:
		out = append(out, assertion.Null{At: at, Var: v, IsNull: o.IsNull})

	case Comparison:
		for _, peer := range o.Others() {
			if r, ok := o.EqualsWith(peer); ok {
				out = append(out, assertion.Equals{At: at, Var: v, Other: peer, Expected: r})
			}

			if r, ok := o.CompareWith(peer); ok {
				out = append(out, assertion.Compare{At: at, Var: v, Other: peer, Expected: r})
			}
		}

	case Inspector:
		for _, name := range o.Names() {
			r, _ := o.Result(name)
			out = append(out, assertion.Inspector{At: at, Var: v, Method: name, Expected: r})
		}

	case Field:
		for _, name := range o.Names() {
			r, _ := o.Value(name)
			out = append(out, assertion.Field{At: at, Var: v, Name: name, Expected: r})
		}
	}

	return out
}
