// Package assertion defines the closed set of checkable predicates attached
// to test statements. Every variant renders to a Go expression that Parse
// turns back into an equal assertion, and evaluates against a Scope with the
// same result as the rendered expression would.
package assertion

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	m "assay.dev/pkg/assay/internal/model"
)

var (
	// ErrUnresolvedVariable is returned when a referenced variable does not
	// exist (or has a different type) in the target test case.
	ErrUnresolvedVariable = errors.New("unresolved variable")
	// ErrSyntax is returned by Parse for text that is not a rendered check.
	ErrSyntax = errors.New("not a rendered assertion")
)

// Kind enumerates the assertion variants.
type Kind int

const (
	// KindPrimitive checks a scalar value.
	KindPrimitive Kind = iota
	// KindNull checks nullness.
	KindNull
	// KindEquals checks the Equal relation between two variables.
	KindEquals
	// KindCompare checks the Compare result between two variables.
	KindCompare
	// KindInspector checks an accessor result.
	KindInspector
	// KindField checks a public field value.
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindNull:
		return "null"
	case KindEquals:
		return "equals"
	case KindCompare:
		return "compare"
	case KindInspector:
		return "inspector"
	case KindField:
		return "field"
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// ObservationKind is the capture pass whose trace can confirm or refute an
// assertion of this kind.
func (k Kind) ObservationKind() m.ObservationKind {
	switch k {
	case KindPrimitive:
		return m.ObservePrimitive
	case KindNull:
		return m.ObserveNull
	case KindEquals, KindCompare:
		return m.ObserveComparison
	case KindInspector:
		return m.ObserveInspector
	case KindField:
		return m.ObserveField
	}

	panic(fmt.Sprintf("assertion: unhandled kind %d", int(k)))
}

// Scope exposes the values observed at one program point of one execution.
// The second result is false when nothing was observed.
type Scope interface {
	Primitive(v m.VarRef) (m.Value, bool)
	IsNull(v m.VarRef) (bool, bool)
	Equals(v, other m.VarRef) (bool, bool)
	Compare(v, other m.VarRef) (int, bool)
	Inspect(v m.VarRef, inspector string) (m.Value, bool)
	Field(v m.VarRef, field string) (m.Value, bool)
}

// VariableResolver looks up the variable defined by the statement at position.
type VariableResolver interface {
	Variable(position int) (m.VarRef, bool)
}

// Assertion is implemented only by the variants in this package.
type Assertion interface {
	Kind() Kind
	// Position is the statement the assertion is attached to.
	Position() int
	// Source is the variable the assertion is about.
	Source() m.VarRef
	ReferencedVariables() []m.VarRef
	Evaluate(scope Scope) bool
	Render() string
	CopyForOffset(tc VariableResolver, offset int) (Assertion, error)
	// Key is the stable identity used for deduplication and deterministic ordering.
	Key() string

	sealed()
}

func key(at int, kind Kind, vars []m.VarRef, detail string) string {
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.String())
	}

	return fmt.Sprintf("%08d|%s|%s|%s", at, kind, strings.Join(names, ","), detail)
}

func resolve(tc VariableResolver, v m.VarRef, offset int) (m.VarRef, error) {
	target, ok := tc.Variable(v.Position + offset)
	if !ok || target.Type != v.Type {
		return m.VarRef{}, fmt.Errorf("%w: %s at offset %d", ErrUnresolvedVariable, v, offset)
	}

	return target, nil
}

// Sort orders assertions by Key.
func Sort(as []Assertion) {
	slices.SortFunc(as, func(a, b Assertion) int {
		return strings.Compare(a.Key(), b.Key())
	})
}

// Dedupe sorts as and removes entries with duplicate keys.
func Dedupe(as []Assertion) []Assertion {
	Sort(as)

	return slices.CompactFunc(as, func(a, b Assertion) bool {
		return a.Key() == b.Key()
	})
}

// References reports whether a refers to v.
func References(a Assertion, v m.VarRef) bool {
	return slices.Contains(a.ReferencedVariables(), v)
}
