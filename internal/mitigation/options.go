// Package mitigation rebalances a dataset across sensitive-attribute groups by
// resampling, reweighting, or synthetic oversampling of the minority target class.
//
// Every operation treats its input table as immutable and returns a new table.
package mitigation

import (
	"math/rand/v2"

	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
)

// DefaultSeed is the seed used when Options.Rand is nil and no seed is configured.
const DefaultSeed uint64 = 42

// Options controls all mitigation operations.
type Options struct {
	// Identify selects sensitive attributes and the target.
	Identify fairness.Options
	// Seed seeds the random source when Rand is nil.
	Seed uint64
	// Rand, when set, is used instead of a source derived from Seed.
	Rand *rand.Rand
	// Separator joins attribute values into a combined group key.
	Separator string
	// MinTargetSize is the lower bound on the resampling target group size.
	MinTargetSize int
	// BalanceTolerance: resampling is skipped when the largest and smallest groups differ
	// by less than this fraction of the target size.
	BalanceTolerance float64
	// WeightColumn names the column added by reweighting.
	WeightColumn string
	// WeightTolerance bounds |sum(weights) - rows|, scaled by the row count above 1 row.
	WeightTolerance float64
	// MaxNeighbors caps the neighbour count of synthetic oversampling.
	MaxNeighbors int
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{
		Identify:         fairness.DefaultOptions(),
		Seed:             DefaultSeed,
		Separator:        "|",
		MinTargetSize:    100,
		BalanceTolerance: 0.1,
		WeightColumn:     "weight",
		WeightTolerance:  1e-6,
		MaxNeighbors:     3,
	}
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewPCG(o.Seed, o.Seed))
}

func (o Options) separator() string {
	if o.Separator == "" {
		return "|"
	}
	return o.Separator
}

func (o Options) weightColumn() string {
	if o.WeightColumn == "" {
		return "weight"
	}
	return o.WeightColumn
}

func (o Options) weightTolerance() float64 {
	if o.WeightTolerance <= 0 {
		return 1e-6
	}
	return o.WeightTolerance
}

func (o Options) maxNeighbors() int {
	if o.MaxNeighbors <= 0 {
		return 3
	}
	return o.MaxNeighbors
}
