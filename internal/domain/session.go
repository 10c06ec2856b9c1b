package domain

import (
	"sync"

	"github.com/google/uuid"

	m "assay.dev/pkg/assay/internal/model"
)

// Session holds the state shared by every test case synthesized in one run.
// Fault instability counters live here so that a fault which keeps timing
// out in one test is skipped in the following ones.
type Session struct {
	ID string

	mu         sync.Mutex
	budget     int
	timeouts   map[m.FaultID]int
	exceptions map[m.FaultID]int
}

// NewSession creates a session whose faults are skipped once they timed out
// (or raised) more than budget times.
func NewSession(budget int) *Session {
	return &Session{
		ID:         uuid.NewString(),
		budget:     max(budget, 0),
		timeouts:   make(map[m.FaultID]int),
		exceptions: make(map[m.FaultID]int),
	}
}

// RecordTimeout counts a timed-out run of id and returns the new count.
func (s *Session) RecordTimeout(id m.FaultID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.timeouts[id]++

	return s.timeouts[id]
}

// RecordException counts a run of id that raised beyond the baseline.
func (s *Session) RecordException(id m.FaultID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exceptions[id]++

	return s.exceptions[id]
}

// ShouldSkip reports whether id exhausted its budget.
func (s *Session) ShouldSkip(id m.FaultID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.timeouts[id] > s.budget || s.exceptions[id] > s.budget
}
