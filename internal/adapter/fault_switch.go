package adapter

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	m "assay.dev/pkg/assay/internal/model"
)

// FaultSwitch toggles in-process faults. Code under test calls Mutated at
// every fault site and takes the faulty branch when it returns true.
type FaultSwitch struct {
	*StaticCatalogue

	mu      sync.Mutex
	active  m.FaultID
	touched map[m.FaultID]struct{}
}

// NewFaultSwitch returns a switch over faults with none active.
func NewFaultSwitch(faults ...m.Fault) *FaultSwitch {
	return &FaultSwitch{
		StaticCatalogue: NewCatalogue(faults),
		touched:         map[m.FaultID]struct{}{},
	}
}

// Mutated records that the fault site id was reached and reports whether
// that fault is active.
func (s *FaultSwitch) Mutated(id m.FaultID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touched[id] = struct{}{}

	return s.active == id
}

// Activate turns fault on. Only one fault may be active at a time.
func (s *FaultSwitch) Activate(ctx context.Context, fault m.Fault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != "" {
		return fmt.Errorf("%w: activating %s while %s is active", ErrFaultActive, fault.ID, s.active)
	}

	s.active = fault.ID

	return nil
}

// Deactivate turns fault off.
func (s *FaultSwitch) Deactivate(_ context.Context, fault m.Fault) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != fault.ID || fault.ID == "" {
		return fmt.Errorf("%w: deactivating %s which is not active", ErrFaultActive, fault.ID)
	}

	s.active = ""

	return nil
}

// Active returns the active fault id, empty when none.
func (s *FaultSwitch) Active() m.FaultID {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// take returns the fault sites reached since the last call and resets them.
func (s *FaultSwitch) take() []m.FaultID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := slices.Sorted(maps.Keys(s.touched))
	s.touched = map[m.FaultID]struct{}{}

	return ids
}
