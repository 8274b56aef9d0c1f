package mitigation

import (
	"fmt"
)

// SchemaError indicates that a column the operation needs is absent or unusable.
type SchemaError struct {
	Op     string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: schema: %s", e.Op, e.Reason)
}

// WeightConsistencyError indicates that computed weights do not sum to the input row
// count, or that a weight is not a positive finite number. It is never corrected silently.
type WeightConsistencyError struct {
	Sum       float64
	Want      float64
	Tolerance float64
	Detail    string
}

func (e *WeightConsistencyError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("weight consistency: %s", e.Detail)
	}
	return fmt.Sprintf("weight consistency: weights sum to %.9g, want %.9g (tolerance %.3g)", e.Sum, e.Want, e.Tolerance)
}

// DegenerateInputError describes an input that leaves nothing to rebalance: no rows, no
// groups, or a single target class. Operations return their input unchanged alongside it.
type DegenerateInputError struct {
	Op     string
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("%s: degenerate input: %s", e.Op, e.Reason)
}
