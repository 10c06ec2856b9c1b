package controller

import (
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"
)

// OracleDiff renders a unified diff from the test body carrying every
// candidate assertion to the minimized one. It is empty when both match.
func OracleDiff(test, candidates, minimized string) string {
	if candidates == "" || candidates == minimized {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(candidates),
		B:        difflib.SplitLines(minimized),
		FromFile: test + " (candidates)",
		ToFile:   test + " (minimized)",
		Context:  1,
	})
	if err != nil {
		slog.Warn("Failed to diff oracle", "test", test, "error", err)
		return ""
	}

	return diff
}
