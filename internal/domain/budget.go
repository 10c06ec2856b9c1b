package domain

import "time"

type phase int

const (
	phaseSynthesize phase = iota
	phaseComplete
	phaseUntouched
)

// budget decides how much work the next test of a suite gets.
type budget struct {
	total            time.Duration
	fallbackFraction float64
	fallbackTime     float64
}

func newBudget(args SynthArgs) budget {
	return budget{
		total:            args.PhaseBudget,
		fallbackFraction: args.FallbackFraction,
		fallbackTime:     args.FallbackTime,
	}
}

// phase picks the treatment of the next test, done tests out of total
// having been handled in elapsed. Without a budget every test is
// synthesized. Once the budget is spent the rest stay untouched. When
// fallbackTime of it is used up but fewer than fallbackFraction of the
// tests are done, the rest get complete oracles.
func (b budget) phase(done, total int, elapsed time.Duration) phase {
	if b.total <= 0 {
		return phaseSynthesize
	}

	if elapsed >= b.total {
		return phaseUntouched
	}

	if float64(elapsed) >= b.fallbackTime*float64(b.total) && float64(done) < b.fallbackFraction*float64(total) {
		return phaseComplete
	}

	return phaseSynthesize
}
