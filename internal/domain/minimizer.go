package domain

import (
	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
)

// Minimize picks a small set of candidates that still detects every fault
// of the kill map.
//
// This is the greedy approximation of minimum set cover: each round takes
// the candidate detecting the most still-undetected faults, so the result is
// at most H(n) times the optimum, where n is the largest kill set and
// H(n) = 1 + 1/2 + ... + 1/n. Ties go to the lowest key. A reverse pass
// then drops any pick whose faults are all detected by the others, so
// removing any returned assertion loses coverage.
//
// The result is ordered by key and depends only on the kill map's contents.
func Minimize(km *KillMap) []assertion.Assertion {
	remaining := km.Detectable()
	candidates := km.Candidates()

	var chosen []assertion.Assertion

	for len(remaining) > 0 {
		var (
			best     assertion.Assertion
			bestGain int
		)

		for _, a := range candidates {
			if gain := overlap(km.Faults(a), remaining); gain > bestGain {
				best, bestGain = a, gain
			}
		}

		if best == nil {
			break
		}

		chosen = append(chosen, best)

		for id := range km.Faults(best) {
			delete(remaining, id)
		}
	}

	chosen = prune(km, chosen)
	assertion.Sort(chosen)

	return chosen
}

func overlap(faults, remaining m.FaultSet) int {
	n := 0

	for id := range faults {
		if remaining.Has(id) {
			n++
		}
	}

	return n
}

// prune walks chosen from the last pick backwards and removes assertions
// whose faults are all detected by another kept assertion.
func prune(km *KillMap, chosen []assertion.Assertion) []assertion.Assertion {
	counts := make(map[m.FaultID]int)

	for _, a := range chosen {
		for id := range km.Faults(a) {
			counts[id]++
		}
	}

	kept := make([]bool, len(chosen))
	for i := range kept {
		kept[i] = true
	}

	for i := len(chosen) - 1; i >= 0; i-- {
		redundant := true

		for id := range km.Faults(chosen[i]) {
			if counts[id] < 2 {
				redundant = false
				break
			}
		}

		if !redundant {
			continue
		}

		kept[i] = false

		for id := range km.Faults(chosen[i]) {
			counts[id]--
		}
	}

	out := make([]assertion.Assertion, 0, len(chosen))

	for i, a := range chosen {
		if kept[i] {
			out = append(out, a)
		}
	}

	return out
}
