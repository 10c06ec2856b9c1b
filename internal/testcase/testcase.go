// Package testcase holds the statement sequence that oracle synthesis
// annotates with assertions.
package testcase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
)

// Action runs a statement in-process. args holds the values of the
// statement's Uses, in the same order.
type Action func(ctx context.Context, args []any) (any, error)

// Statement is one step of a test case.
type Statement struct {
	// Code is the call or expression executed by the statement.
	Code string
	// ReturnType is the declared type of the produced value, empty or
	// m.VoidType when nothing is produced.
	ReturnType string
	// Uses lists the positions of earlier statements whose values this one
	// consumes, receiver first.
	Uses []int
	// ExpectsError marks a statement the test declares may fail.
	ExpectsError bool
	// Action is only set for in-process execution.
	Action Action

	assertions []assertion.Assertion
}

// Assertions returns the checks attached to the statement, ordered by key.
func (s *Statement) Assertions() []assertion.Assertion {
	return slices.Clone(s.assertions)
}

// TestCase is an ordered list of statements. Only the synthesis pipeline
// mutates it, and only by adding or removing assertions.
type TestCase struct {
	Name       string
	statements []*Statement
}

// New builds a test case. Statements are copied; assertions carried by the
// given statements are dropped.
func New(name string, statements ...Statement) *TestCase {
	tc := &TestCase{Name: name, statements: make([]*Statement, 0, len(statements))}
	for _, s := range statements {
		s.Uses = slices.Clone(s.Uses)
		s.assertions = nil
		tc.statements = append(tc.statements, &s)
	}

	return tc
}

// Len is the number of statements.
func (tc *TestCase) Len() int {
	return len(tc.statements)
}

// LastPosition is the position of the final statement, or -1 when empty.
func (tc *TestCase) LastPosition() int {
	return len(tc.statements) - 1
}

// Statement returns the statement at position, or nil when out of range.
func (tc *TestCase) Statement(position int) *Statement {
	if position < 0 || position >= len(tc.statements) {
		return nil
	}

	return tc.statements[position]
}

// ReturnValue is the reference produced by the statement at position. It is
// void for statements that produce nothing.
func (tc *TestCase) ReturnValue(position int) m.VarRef {
	s := tc.Statement(position)
	if s == nil {
		return m.VarRef{Position: position, Type: m.VoidType}
	}

	typ := s.ReturnType
	if typ == "" {
		typ = m.VoidType
	}

	return m.NewVarRef(position, typ)
}

// Variable resolves the non-void value produced at position.
func (tc *TestCase) Variable(position int) (m.VarRef, bool) {
	v := tc.ReturnValue(position)
	if v.IsVoid() {
		return m.VarRef{}, false
	}

	return v, true
}

// Affected lists the non-void values the statement at position consumes.
// A void call is assumed to affect its receiver and arguments.
func (tc *TestCase) Affected(position int) []m.VarRef {
	s := tc.Statement(position)
	if s == nil {
		return nil
	}

	var out []m.VarRef

	for _, use := range s.Uses {
		if use >= position {
			continue
		}

		if v, ok := tc.Variable(use); ok && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}

	return out
}

// Live lists the non-void values defined at or before position.
func (tc *TestCase) Live(position int) []m.VarRef {
	var out []m.VarRef

	for i := 0; i <= position && i < len(tc.statements); i++ {
		if v, ok := tc.Variable(i); ok {
			out = append(out, v)
		}
	}

	return out
}

// AddAssertion attaches a to the statement at a.Position(). Every referenced
// variable must exist and be defined no later than that statement. Adding an
// assertion with the key of an attached one is a no-op.
func (tc *TestCase) AddAssertion(a assertion.Assertion) error {
	s := tc.Statement(a.Position())
	if s == nil {
		return fmt.Errorf("%w: statement %d out of range", assertion.ErrUnresolvedVariable, a.Position())
	}

	for _, v := range a.ReferencedVariables() {
		got, ok := tc.Variable(v.Position)
		if !ok || got != v || v.Position > a.Position() {
			return fmt.Errorf("%w: %s at statement %d", assertion.ErrUnresolvedVariable, v, a.Position())
		}
	}

	k := a.Key()
	i, found := slices.BinarySearchFunc(s.assertions, k, func(e assertion.Assertion, k string) int {
		return strings.Compare(e.Key(), k)
	})

	if found {
		return nil
	}

	s.assertions = slices.Insert(s.assertions, i, a)

	return nil
}

// RemoveAssertions drops every attached assertion.
func (tc *TestCase) RemoveAssertions() {
	for _, s := range tc.statements {
		s.assertions = nil
	}
}

// RemoveAssertionsFrom drops the assertions on statements at or after
// position and returns how many were removed.
func (tc *TestCase) RemoveAssertionsFrom(position int) int {
	removed := 0

	for i := max(position, 0); i < len(tc.statements); i++ {
		removed += len(tc.statements[i].assertions)
		tc.statements[i].assertions = nil
	}

	return removed
}

// AssertionsAt returns the assertions on the statement at position.
func (tc *TestCase) AssertionsAt(position int) []assertion.Assertion {
	s := tc.Statement(position)
	if s == nil {
		return nil
	}

	return s.Assertions()
}

// Assertions returns every attached assertion in position then key order.
func (tc *TestCase) Assertions() []assertion.Assertion {
	var out []assertion.Assertion
	for _, s := range tc.statements {
		out = append(out, s.assertions...)
	}

	return out
}

// Clone returns a deep copy. Assertions are re-bound to the copy's variables.
func (tc *TestCase) Clone() *TestCase {
	out := &TestCase{Name: tc.Name, statements: make([]*Statement, 0, len(tc.statements))}
	for _, s := range tc.statements {
		c := *s
		c.Uses = slices.Clone(s.Uses)
		c.assertions = nil
		out.statements = append(out.statements, &c)
	}

	for _, a := range tc.Assertions() {
		copied, err := a.CopyForOffset(out, 0)
		if err != nil {
			// Variables are identical in the copy, so this cannot happen.
			panic(err)
		}

		out.statements[copied.Position()].assertions = append(out.statements[copied.Position()].assertions, copied)
	}

	return out
}

// Code renders the test body with one require.True check per assertion.
func (tc *TestCase) Code() string {
	var sb strings.Builder

	for i, s := range tc.statements {
		if v, ok := tc.Variable(i); ok {
			fmt.Fprintf(&sb, "%s := %s", v.Name(), s.Code)
		} else {
			sb.WriteString(s.Code)
		}

		if s.ExpectsError {
			sb.WriteString(" // may fail")
		}

		sb.WriteByte('\n')

		for _, a := range s.assertions {
			fmt.Fprintf(&sb, "require.True(t, %s)\n", a.Render())
		}
	}

	return sb.String()
}
