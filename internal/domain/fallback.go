package domain

import (
	"log/slog"
	"slices"

	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
	"assay.dev/pkg/assay/internal/trace"
)

// ensureLastStatement attaches one baseline fact to the final statement when
// it carries nothing but null checks. It reports whether an assertion was
// added.
//
// Preference: a primitive check on the statement's own value, then any other
// non-null check on it, then a null check on it. A void statement falls back
// to the values it consumes, non-null checks first. Within one tier the
// lowest key wins.
func ensureLastStatement(tc *testcase.TestCase, baseline trace.Bundle) bool {
	last := tc.LastPosition()
	if last < 0 {
		return false
	}

	if slices.ContainsFunc(tc.AssertionsAt(last), nonNull) {
		return false
	}

	var facts []assertion.Assertion

	for _, a := range baseline.AllAssertions() {
		if a.Position() == last {
			facts = append(facts, a)
		}
	}

	pick := fallbackFor(tc, last, facts)
	if pick == nil {
		slog.Debug("No fact observed on last statement", "test", tc.Name, "position", last)
		return false
	}

	if err := tc.AddAssertion(pick); err != nil {
		slog.Error("Failed to attach fallback assertion", "test", tc.Name, "assertion", pick.Render(), "error", err)
		return false
	}

	slog.Debug("Attached fallback assertion", "test", tc.Name, "assertion", pick.Render())

	return true
}

func fallbackFor(tc *testcase.TestCase, last int, facts []assertion.Assertion) assertion.Assertion {
	assertion.Sort(facts)

	ret := tc.ReturnValue(last)
	if !ret.IsVoid() {
		return first(facts,
			func(a assertion.Assertion) bool { return a.Kind() == assertion.KindPrimitive && a.Source() == ret },
			func(a assertion.Assertion) bool { return nonNull(a) && assertion.References(a, ret) },
			func(a assertion.Assertion) bool { return assertion.References(a, ret) },
		)
	}

	affected := tc.Affected(last)
	touches := func(a assertion.Assertion) bool {
		return slices.ContainsFunc(affected, func(v m.VarRef) bool { return assertion.References(a, v) })
	}

	return first(facts,
		func(a assertion.Assertion) bool { return nonNull(a) && touches(a) },
		touches,
	)
}

// first returns the first fact matching the earliest predicate that matches
// anything.
func first(facts []assertion.Assertion, tiers ...func(assertion.Assertion) bool) assertion.Assertion {
	for _, match := range tiers {
		if i := slices.IndexFunc(facts, match); i >= 0 {
			return facts[i]
		}
	}

	return nil
}

func nonNull(a assertion.Assertion) bool {
	return a.Kind() != assertion.KindNull
}
