package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	t.Run("fault is skipped once over budget", func(t *testing.T) {
		s := NewSession(1)

		require.False(t, s.ShouldSkip("f1"))
		require.Equal(t, 1, s.RecordTimeout("f1"))
		require.False(t, s.ShouldSkip("f1"))
		require.Equal(t, 2, s.RecordTimeout("f1"))
		require.True(t, s.ShouldSkip("f1"))
		require.False(t, s.ShouldSkip("f2"))
	})

	t.Run("exceptions have their own counter", func(t *testing.T) {
		s := NewSession(0)

		require.Equal(t, 1, s.RecordException("f1"))
		require.True(t, s.ShouldSkip("f1"))
		require.Equal(t, 1, s.RecordTimeout("f1"))
	})

	t.Run("negative budget behaves like zero", func(t *testing.T) {
		s := NewSession(-4)

		require.False(t, s.ShouldSkip("f1"))
		s.RecordTimeout("f1")
		require.True(t, s.ShouldSkip("f1"))
	})

	t.Run("id is a uuid", func(t *testing.T) {
		_, err := uuid.Parse(NewSession(0).ID)
		require.NoError(t, err)
		require.NotEqual(t, NewSession(0).ID, NewSession(0).ID)
	})

	t.Run("concurrent updates", func(t *testing.T) {
		s := NewSession(100)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				s.RecordTimeout("f1")
				s.ShouldSkip("f1")
			}()
		}

		wg.Wait()
		require.Equal(t, 51, s.RecordTimeout("f1"))
	})
}

func TestBudgetPhase(t *testing.T) {
	b := budget{total: 10 * time.Second, fallbackFraction: 0.6, fallbackTime: 0.5}

	tests := []struct {
		name    string
		budget  budget
		done    int
		elapsed time.Duration
		want    phase
	}{
		{name: "no budget", budget: budget{}, done: 0, elapsed: time.Hour, want: phaseSynthesize},
		{name: "early", budget: b, done: 0, elapsed: time.Second, want: phaseSynthesize},
		{name: "on track at half time", budget: b, done: 6, elapsed: 5 * time.Second, want: phaseSynthesize},
		{name: "behind at half time", budget: b, done: 5, elapsed: 5 * time.Second, want: phaseComplete},
		{name: "budget spent", budget: b, done: 9, elapsed: 10 * time.Second, want: phaseUntouched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.budget.phase(tt.done, 10, tt.elapsed))
		})
	}
}
