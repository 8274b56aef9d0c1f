package mitigation

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"gonum.org/v1/gonum/floats"
)

// WeightShare is the total weight carried by one attribute value, as a share of all rows.
type WeightShare struct {
	Attribute string  `json:"attribute" yaml:"attribute"`
	Value     string  `json:"value" yaml:"value"`
	Weight    float64 `json:"weight" yaml:"weight"`
	Share     float64 `json:"share" yaml:"share"`
}

// WeightedTable is the result of Reweight.
type WeightedTable struct {
	// Table is the input plus the weight column.
	Table      *dataset.Table
	Column     string
	Weights    []float64
	Attributes []string
	Shares     []WeightShare
	// Fallback is non-nil when every row received weight 1.0 because no sensitive
	// attribute was found.
	Fallback error
}

// Reweight assigns each row a weight inversely proportional to the size of its combined
// sensitive group. Weights are then scaled so they sum to the row count.
//
// A table that already has the weight column is rejected with a SchemaError.
func Reweight(t *dataset.Table, opt Options) (*WeightedTable, error) {
	col := opt.weightColumn()
	if _, exists := t.Index(col); exists {
		return nil, &SchemaError{Op: "reweight", Reason: fmt.Sprintf("column %q already exists", col)}
	}
	n := t.Len()
	attrs := fairness.IdentifySensitiveAttributes(t, opt.Identify)
	out := &WeightedTable{Column: col, Attributes: attrs}

	weights := make([]float64, n)
	if len(attrs) == 0 {
		for i := range weights {
			weights[i] = 1
		}
		out.Fallback = &DegenerateInputError{Op: "reweight", Reason: "no sensitive attributes; uniform weights"}
		slog.Warn("reweight: no sensitive attributes, using uniform weights", "rows", n)
	} else {
		keys, err := CombinedGroupKeys(t, attrs, opt.separator())
		if err != nil {
			return nil, err
		}
		groups := indexGroups(keys)
		for _, k := range groups.order {
			members := groups.members[k]
			w := float64(n) / float64(len(members))
			for _, r := range members {
				weights[r] = w
			}
		}
		if sum := floats.Sum(weights); sum > 0 {
			floats.Scale(float64(n)/sum, weights)
		}
	}
	if err := ValidateWeights(weights, n, opt.weightTolerance()); err != nil {
		return nil, err
	}

	vals := make([]dataset.Value, n)
	for i, w := range weights {
		vals[i] = dataset.Number(w)
	}
	weighted, err := t.WithColumn(dataset.Column{Name: col, Kind: dataset.Numeric}, vals)
	if err != nil {
		return nil, err
	}
	out.Table = weighted
	out.Weights = weights
	out.Shares = weightShares(t, attrs, weights)
	for _, s := range out.Shares {
		slog.Debug("reweight: weighted share", "attribute", s.Attribute, "value", s.Value, "share", s.Share)
	}
	return out, nil
}

// ValidateWeights checks that every weight is positive and finite and that the weights
// sum to rows. The bound is relative: |sum - rows| must not exceed tol*max(1, rows), so
// tol is an absolute bound only for tables of at most one row.
func ValidateWeights(weights []float64, rows int, tol float64) error {
	if len(weights) != rows {
		return &WeightConsistencyError{Want: float64(rows), Tolerance: tol,
			Detail: fmt.Sprintf("%d weights for %d rows", len(weights), rows)}
	}
	for i, w := range weights {
		if !(w > 0) || math.IsInf(w, 0) {
			return &WeightConsistencyError{Want: float64(rows), Tolerance: tol,
				Detail: fmt.Sprintf("row %d has weight %v", i, w)}
		}
	}
	sum := floats.Sum(weights)
	if math.Abs(sum-float64(rows)) > tol*math.Max(1, float64(rows)) {
		return &WeightConsistencyError{Sum: sum, Want: float64(rows), Tolerance: tol}
	}
	return nil
}

func weightShares(t *dataset.Table, attrs []string, weights []float64) []WeightShare {
	n := float64(t.Len())
	var out []WeightShare
	for _, a := range attrs {
		j, _ := t.Index(a)
		kind := t.Columns[j].Kind
		totals := map[string]float64{}
		var order []string
		for r, row := range t.Rows {
			v := row[j].Format(kind)
			if _, ok := totals[v]; !ok {
				order = append(order, v)
			}
			totals[v] += weights[r]
		}
		for _, v := range order {
			out = append(out, WeightShare{Attribute: a, Value: v, Weight: totals[v], Share: totals[v] / n})
		}
	}
	return out
}

// ExpandOutcome is the result of ExpandByWeight.
type ExpandOutcome struct {
	Table   *dataset.Table
	Weights *WeightedTable
	// Dropped lists, in first-seen order, the combined group keys whose weight rounded to
	// zero, so none of their rows survive expansion.
	Dropped []string
}

// ExpandByWeight reweights t and then repeats each row round(weight) times, rounding half
// to even. Rows whose weight rounds to zero are dropped. The weight column is not kept.
func ExpandByWeight(t *dataset.Table, opt Options) (*ExpandOutcome, error) {
	wt, err := Reweight(t, opt)
	if err != nil {
		return nil, err
	}
	var idx []int
	for r, w := range wt.Weights {
		reps := int(math.RoundToEven(w))
		for i := 0; i < reps; i++ {
			idx = append(idx, r)
		}
	}
	out := &ExpandOutcome{Table: t.Subset(idx), Weights: wt}
	if len(wt.Attributes) > 0 {
		keys, err := CombinedGroupKeys(t, wt.Attributes, opt.separator())
		if err != nil {
			return nil, err
		}
		groups := indexGroups(keys)
		for _, k := range groups.order {
			// Rows of one group share a weight.
			if math.RoundToEven(wt.Weights[groups.members[k][0]]) == 0 {
				out.Dropped = append(out.Dropped, k)
			}
		}
	}
	if len(out.Dropped) > 0 {
		slog.Warn("expand: groups rounded to zero rows", "groups", out.Dropped)
	}
	slog.Debug("expand: repeated rows by weight", "rows", t.Len(), "expanded", len(idx))
	return out, nil
}
