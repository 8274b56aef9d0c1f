// Package fairness identifies sensitive attributes and target columns in a dataset and
// computes group bias metrics over them.
package fairness

import (
	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
)

// Options controls attribute identification.
type Options struct {
	// MaxCategories is the exclusive upper bound on distinct values for a categorical
	// column to count as a sensitive attribute.
	MaxCategories int
}

// DefaultOptions returns the standard identification thresholds.
func DefaultOptions() Options {
	return Options{MaxCategories: 10}
}

func (o Options) maxCategories() int {
	if o.MaxCategories <= 0 {
		return 10
	}
	return o.MaxCategories
}

// IdentifySensitiveAttributes returns, in schema order, the categorical columns with
// fewer than opt.MaxCategories distinct non-missing values. It is recomputed from the
// table on every call.
func IdentifySensitiveAttributes(t *dataset.Table, opt Options) []string {
	if t == nil {
		return nil
	}
	limit := opt.maxCategories()
	var out []string
	for _, c := range t.Columns {
		if !t.IsCategorical(c.Name) {
			continue
		}
		if len(t.Distinct(c.Name)) < limit {
			out = append(out, c.Name)
		}
	}
	return out
}

// IdentifyTargetVariable returns the first column, in schema order, whose values are all
// 0 or 1. ok is false when no column qualifies or the table has no rows.
func IdentifyTargetVariable(t *dataset.Table) (name string, ok bool) {
	if t == nil || t.Len() == 0 {
		return "", false
	}
	for _, c := range t.Columns {
		if t.IsBinary(c.Name) {
			return c.Name, true
		}
	}
	return "", false
}
