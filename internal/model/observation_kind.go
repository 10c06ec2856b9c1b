package model

import "fmt"

// ObservationKind names an independent capture pass.
type ObservationKind int

const (
	// ObservePrimitive records scalar and string values.
	ObservePrimitive ObservationKind = iota
	// ObserveComparison records equals/compare results against other live variables.
	ObserveComparison
	// ObserveInspector records side-effect free accessor results.
	ObserveInspector
	// ObserveField records public data member values.
	ObserveField
	// ObserveNull records whether a reference held no object.
	ObserveNull
)

// ObservationKinds lists every kind in capture order.
var ObservationKinds = []ObservationKind{
	ObservePrimitive,
	ObserveComparison,
	ObserveInspector,
	ObserveField,
	ObserveNull,
}

func (k ObservationKind) String() string {
	switch k {
	case ObservePrimitive:
		return "primitive"
	case ObserveComparison:
		return "comparison"
	case ObserveInspector:
		return "inspector"
	case ObserveField:
		return "field"
	case ObserveNull:
		return "null"
	}

	return fmt.Sprintf("ObservationKind(%d)", int(k))
}

// ParseObservationKind is the inverse of ObservationKind.String.
func ParseObservationKind(s string) (ObservationKind, error) {
	for _, k := range ObservationKinds {
		if k.String() == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown observation kind %q", s)
}
