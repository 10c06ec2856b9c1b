package assertion

import (
	"fmt"
	"math"

	m "assay.dev/pkg/assay/internal/model"
)

// Primitive checks that a variable holds an exact scalar value.
type Primitive struct {
	At       int
	Var      m.VarRef
	Expected m.Value
}

// Null checks whether a variable holds no object.
type Null struct {
	At     int
	Var    m.VarRef
	IsNull bool
}

// Equals checks the result of Var.Equal(Other).
type Equals struct {
	At       int
	Var      m.VarRef
	Other    m.VarRef
	Expected bool
}

// Compare checks the sign of Var.Compare(Other): -1, 0 or 1.
type Compare struct {
	At       int
	Var      m.VarRef
	Other    m.VarRef
	Expected int
}

// Inspector checks the value returned by a side-effect free accessor.
type Inspector struct {
	At       int
	Var      m.VarRef
	Method   string
	Expected m.Value
}

// Field checks the value of a public data member.
type Field struct {
	At       int
	Var      m.VarRef
	Name     string
	Expected m.Value
}

func (Primitive) sealed() {}
func (Null) sealed()      {}
func (Equals) sealed()    {}
func (Compare) sealed()   {}
func (Inspector) sealed() {}
func (Field) sealed()     {}

func (Primitive) Kind() Kind { return KindPrimitive }
func (Null) Kind() Kind      { return KindNull }
func (Equals) Kind() Kind    { return KindEquals }
func (Compare) Kind() Kind   { return KindCompare }
func (Inspector) Kind() Kind { return KindInspector }
func (Field) Kind() Kind     { return KindField }

func (a Primitive) Position() int { return a.At }
func (a Null) Position() int      { return a.At }
func (a Equals) Position() int    { return a.At }
func (a Compare) Position() int   { return a.At }
func (a Inspector) Position() int { return a.At }
func (a Field) Position() int     { return a.At }

func (a Primitive) Source() m.VarRef { return a.Var }
func (a Null) Source() m.VarRef      { return a.Var }
func (a Equals) Source() m.VarRef    { return a.Var }
func (a Compare) Source() m.VarRef   { return a.Var }
func (a Inspector) Source() m.VarRef { return a.Var }
func (a Field) Source() m.VarRef     { return a.Var }

func (a Primitive) ReferencedVariables() []m.VarRef { return []m.VarRef{a.Var} }
func (a Null) ReferencedVariables() []m.VarRef      { return []m.VarRef{a.Var} }
func (a Equals) ReferencedVariables() []m.VarRef    { return []m.VarRef{a.Var, a.Other} }
func (a Compare) ReferencedVariables() []m.VarRef   { return []m.VarRef{a.Var, a.Other} }
func (a Inspector) ReferencedVariables() []m.VarRef { return []m.VarRef{a.Var} }
func (a Field) ReferencedVariables() []m.VarRef     { return []m.VarRef{a.Var} }

func (a Primitive) Evaluate(scope Scope) bool {
	got, ok := scope.Primitive(a.Var)
	return ok && got.Equal(a.Expected)
}

func (a Null) Evaluate(scope Scope) bool {
	got, ok := scope.IsNull(a.Var)
	return ok && got == a.IsNull
}

func (a Equals) Evaluate(scope Scope) bool {
	got, ok := scope.Equals(a.Var, a.Other)
	return ok && got == a.Expected
}

func (a Compare) Evaluate(scope Scope) bool {
	got, ok := scope.Compare(a.Var, a.Other)
	return ok && got == a.Expected
}

func (a Inspector) Evaluate(scope Scope) bool {
	got, ok := scope.Inspect(a.Var, a.Method)
	return ok && got.Equal(a.Expected)
}

func (a Field) Evaluate(scope Scope) bool {
	got, ok := scope.Field(a.Var, a.Name)
	return ok && got.Equal(a.Expected)
}

func (a Primitive) Render() string {
	return valueCheck(a.Var.Name(), a.Expected)
}

func (a Null) Render() string {
	if a.IsNull {
		return a.Var.Name() + " == nil"
	}

	return a.Var.Name() + " != nil"
}

func (a Equals) Render() string {
	if a.Var.Builtin() {
		op := "=="
		if !a.Expected {
			op = "!="
		}

		return fmt.Sprintf("%s %s %s", a.Var.Name(), op, a.Other.Name())
	}

	call := fmt.Sprintf("%s.Equal(%s)", a.Var.Name(), a.Other.Name())
	if a.Expected {
		return call
	}

	return "!" + call
}

func (a Compare) Render() string {
	if a.Var.Builtin() {
		return fmt.Sprintf("cmp.Compare(%s, %s) == %d", a.Var.Name(), a.Other.Name(), a.Expected)
	}

	return fmt.Sprintf("%s.Compare(%s) == %d", a.Var.Name(), a.Other.Name(), a.Expected)
}

func (a Inspector) Render() string {
	return valueCheck(fmt.Sprintf("%s.%s()", a.Var.Name(), a.Method), a.Expected)
}

func (a Field) Render() string {
	return valueCheck(fmt.Sprintf("%s.%s", a.Var.Name(), a.Name), a.Expected)
}

// valueCheck renders expr against want so that Go agrees with Value.Equal:
// NaN matches NaN and a zero matches only the zero of the same sign.
func valueCheck(expr string, want m.Value) string {
	if want.Kind == m.KindFloat {
		switch {
		case math.IsNaN(want.F):
			return fmt.Sprintf("math.IsNaN(float64(%s))", expr)
		case want.F == 0 && math.Signbit(want.F):
			return fmt.Sprintf("math.Signbit(float64(%s)) && %s == 0", expr, expr)
		case want.F == 0:
			return fmt.Sprintf("!math.Signbit(float64(%s)) && %s == 0", expr, expr)
		}
	}

	return fmt.Sprintf("%s == %s", expr, want.Literal())
}

func (a Primitive) Key() string {
	return key(a.At, KindPrimitive, a.ReferencedVariables(), a.Expected.Literal())
}

func (a Null) Key() string {
	return key(a.At, KindNull, a.ReferencedVariables(), fmt.Sprint(a.IsNull))
}

func (a Equals) Key() string {
	return key(a.At, KindEquals, a.ReferencedVariables(), fmt.Sprint(a.Expected))
}

func (a Compare) Key() string {
	return key(a.At, KindCompare, a.ReferencedVariables(), fmt.Sprint(a.Expected))
}

func (a Inspector) Key() string {
	return key(a.At, KindInspector, a.ReferencedVariables(), a.Method+"()="+a.Expected.Literal())
}

func (a Field) Key() string {
	return key(a.At, KindField, a.ReferencedVariables(), a.Name+"="+a.Expected.Literal())
}

func (a Primitive) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	return Primitive{At: a.At + offset, Var: v, Expected: a.Expected}, nil
}

func (a Null) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	return Null{At: a.At + offset, Var: v, IsNull: a.IsNull}, nil
}

func (a Equals) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	other, err := resolve(tc, a.Other, offset)
	if err != nil {
		return nil, err
	}

	return Equals{At: a.At + offset, Var: v, Other: other, Expected: a.Expected}, nil
}

func (a Compare) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	other, err := resolve(tc, a.Other, offset)
	if err != nil {
		return nil, err
	}

	return Compare{At: a.At + offset, Var: v, Other: other, Expected: a.Expected}, nil
}

func (a Inspector) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	return Inspector{At: a.At + offset, Var: v, Method: a.Method, Expected: a.Expected}, nil
}

func (a Field) CopyForOffset(tc VariableResolver, offset int) (Assertion, error) {
	v, err := resolve(tc, a.Var, offset)
	if err != nil {
		return nil, err
	}

	return Field{At: a.At + offset, Var: v, Name: a.Name, Expected: a.Expected}, nil
}
