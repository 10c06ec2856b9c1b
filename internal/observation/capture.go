package observation

import (
	"cmp"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	m "assay.dev/pkg/assay/internal/model"
)

// DefaultInspectorPrefixes selects accessors that are conventionally free of
// side effects.
var DefaultInspectorPrefixes = []string{"Get", "Is", "Has", "Len", "Size", "Count"}

// Sink receives captured observations. trace.BundleBuilder implements it.
type Sink interface {
	Record(position int, v m.VarRef, obs Observation)
}

// Live is a variable visible at a program point together with its runtime value.
type Live struct {
	Ref   m.VarRef
	Value any
}

// Capturer classifies runtime values into observations. It holds no
// per-execution state and may be shared between concurrent executions.
type Capturer struct {
	inspectorPrefixes []string
}

// NewCapturer returns a Capturer that treats exported zero-argument methods
// starting with one of prefixes as inspectors.
func NewCapturer(prefixes ...string) *Capturer {
	if len(prefixes) == 0 {
		prefixes = DefaultInspectorPrefixes
	}

	return &Capturer{inspectorPrefixes: prefixes}
}

// Capture runs every capture pass for target after the statement at position.
// live holds the other variables visible at that point; target itself is
// skipped when comparing. A pass or single read that panics records nothing
// and does not stop the remaining passes.
func (c *Capturer) Capture(sink Sink, position int, target Live, live []Live) {
	if target.Ref.IsVoid() {
		return
	}

	rv := reflect.ValueOf(target.Value)

	c.pass(sink, position, target.Ref, m.ObserveNull, func() (Observation, bool) {
		return captureNull(rv)
	})

	if isNil(rv) {
		return
	}

	c.pass(sink, position, target.Ref, m.ObservePrimitive, func() (Observation, bool) {
		v, ok := scalar(rv)
		return Primitive{Value: v}, ok
	})

	c.pass(sink, position, target.Ref, m.ObserveField, func() (Observation, bool) {
		return c.captureFields(position, target.Ref, rv)
	})

	c.pass(sink, position, target.Ref, m.ObserveInspector, func() (Observation, bool) {
		return c.captureInspectors(position, target.Ref, rv)
	})

	c.pass(sink, position, target.Ref, m.ObserveComparison, func() (Observation, bool) {
		return c.captureComparisons(position, target, rv, live)
	})
}

func (c *Capturer) pass(sink Sink, position int, v m.VarRef, kind m.ObservationKind, capture func() (Observation, bool)) {
	obs, ok := guard(position, v, kind.String(), capture)
	if ok {
		sink.Record(position, v, obs)
	}
}

// guard runs read and converts a panic into "nothing observed".
func guard[T any](position int, v m.VarRef, what string, read func() (T, bool)) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Capture failed", "position", position, "variable", v.String(), "read", what, "panic", fmt.Sprint(r))

			var zero T

			result, ok = zero, false
		}
	}()

	return read()
}

func captureNull(rv reflect.Value) (Observation, bool) {
	if !rv.IsValid() {
		return Null{IsNull: true}, true
	}

	if !nillable(rv.Kind()) {
		return nil, false
	}

	return Null{IsNull: rv.IsNil()}, true
}

func (c *Capturer) captureFields(position int, v m.VarRef, rv reflect.Value) (Observation, bool) {
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	values := map[string]m.Value{}
	typ := rv.Type()

	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		value, ok := guard(position, v, "field "+field.Name, func() (m.Value, bool) {
			return scalar(rv.Field(i))
		})
		if ok {
			values[field.Name] = value
		}
	}

	if len(values) == 0 {
		return nil, false
	}

	return NewField(values), true
}

func (c *Capturer) captureInspectors(position int, v m.VarRef, rv reflect.Value) (Observation, bool) {
	results := map[string]m.Value{}
	typ := rv.Type()

	for i := range typ.NumMethod() {
		method := typ.Method(i)
		if !c.isInspector(method) {
			continue
		}

		value, ok := guard(position, v, "inspector "+method.Name, func() (m.Value, bool) {
			out := rv.Method(i).Call(nil)
			return scalar(out[0])
		})
		if ok {
			results[method.Name] = value
		}
	}

	if len(results) == 0 {
		return nil, false
	}

	return NewInspector(results), true
}

func (c *Capturer) isInspector(method reflect.Method) bool {
	// The receiver is the first input of a method obtained from a type.
	if !method.IsExported() || method.Type.NumIn() != 1 || method.Type.NumOut() != 1 {
		return false
	}

	if !scalarKind(method.Type.Out(0).Kind()) {
		return false
	}

	for _, prefix := range c.inspectorPrefixes {
		if strings.HasPrefix(method.Name, prefix) {
			return true
		}
	}

	return false
}

func (c *Capturer) captureComparisons(position int, target Live, rv reflect.Value, live []Live) (Observation, bool) {
	equals := map[m.VarRef]bool{}
	compare := map[m.VarRef]int{}
	operators := target.Ref.Builtin()

	for _, peer := range live {
		if !target.Ref.CompatibleWith(peer.Ref) {
			continue
		}

		prv := reflect.ValueOf(peer.Value)
		if isNil(prv) {
			continue
		}

		if r, ok := guard(position, target.Ref, "equal "+peer.Ref.Name(), func() (bool, bool) {
			return equalValues(rv, prv, operators)
		}); ok {
			equals[peer.Ref] = r
		}

		if r, ok := guard(position, target.Ref, "compare "+peer.Ref.Name(), func() (int, bool) {
			return compareValues(rv, prv, operators)
		}); ok {
			compare[peer.Ref] = r
		}
	}

	obs := NewComparison(equals, compare)

	return obs, !obs.IsEmpty()
}

// equalValues compares builtin scalars with == and everything else through an
// Equal method, matching how the check is rendered.
func equalValues(a, b reflect.Value, operators bool) (bool, bool) {
	if operators {
		if a.Type() != b.Type() || !a.Comparable() {
			return false, false
		}

		return a.Equal(b), true
	}

	if method := a.MethodByName("Equal"); method.IsValid() {
		mt := method.Type()
		if mt.NumIn() == 1 && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool && b.Type().AssignableTo(mt.In(0)) {
			return method.Call([]reflect.Value{b})[0].Bool(), true
		}
	}

	return false, false
}

func compareValues(a, b reflect.Value, operators bool) (int, bool) {
	if !operators {
		if method := a.MethodByName("Compare"); method.IsValid() {
			mt := method.Type()
			if mt.NumIn() == 1 && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Int && b.Type().AssignableTo(mt.In(0)) {
				return int(method.Call([]reflect.Value{b})[0].Int()), true
			}
		}

		return 0, false
	}

	if a.Type() != b.Type() {
		return 0, false
	}

	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint()), true
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float()), true
	case reflect.String:
		return cmp.Compare(a.String(), b.String()), true
	default:
		return 0, false
	}
}

func scalar(rv reflect.Value) (m.Value, bool) {
	switch rv.Kind() {
	case reflect.Bool:
		return m.Bool(rv.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return m.Int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return m.Uint(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return m.Float(rv.Float()), true
	case reflect.String:
		return m.String(rv.String()), true
	default:
		return m.Value{}, false
	}
}

func scalarKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func nillable(kind reflect.Kind) bool {
	switch kind {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}

func isNil(rv reflect.Value) bool {
	return !rv.IsValid() || (nillable(rv.Kind()) && rv.IsNil())
}
