package domain

import (
	m "assay.dev/pkg/assay/internal/model"
	pkg "assay.dev/pkg/assay/pkg"
)

// mutationScoreFromOutcomes counts the faults detected by at least one test
// over the faults any test considered. Faults skipped for instability count
// as detected; faults whose runs failed are left out.
func mutationScoreFromOutcomes(outcomes pkg.FileSpill[m.Outcome]) (killed, total int, score float64, err error) {
	considered := m.NewFaultSet()
	detected := m.NewFaultSet()

	err = outcomes.Range(func(_ uint64, outcome m.Outcome) error {
		for _, f := range outcome.Faults {
			switch {
			case f.Status.Detected(), f.Status == m.Skipped:
				detected.Add(f.Fault)
				considered.Add(f.Fault)
			case f.Status == m.Survived:
				considered.Add(f.Fault)
			case f.Status == m.Errored:
				// Failed runs are excluded from the score denominator.
			}
		}

		return nil
	})
	if err != nil {
		return 0, 0, 0.0, err
	}

	if len(considered) == 0 {
		return 0, 0, 1.0, nil
	}

	return len(detected), len(considered), float64(len(detected)) / float64(len(considered)), nil
}
