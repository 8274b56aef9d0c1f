package mitigation

import (
	"log/slog"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
)

// GroupSize records one combined group's row count before and after rebalancing.
type GroupSize struct {
	Key    string `json:"key" yaml:"key"`
	Before int    `json:"before" yaml:"before"`
	After  int    `json:"after" yaml:"after"`
}

// ResampleOutcome is the result of Resample.
type ResampleOutcome struct {
	Table      *dataset.Table
	Attributes []string
	TargetSize int
	Groups     []GroupSize
	// Skipped is non-nil when Table is a copy of the input because no rebalancing was needed
	// or possible.
	Skipped error
}

// Resample equalizes the sizes of the groups formed by the combination of every sensitive
// attribute. Smaller groups are sampled with replacement up to the target size and larger
// groups without replacement down to it. Groups appear in the output in first-seen order.
func Resample(t *dataset.Table, opt Options) (*ResampleOutcome, error) {
	attrs := fairness.IdentifySensitiveAttributes(t, opt.Identify)
	out := &ResampleOutcome{Attributes: attrs}
	if len(attrs) == 0 {
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "resample", Reason: "no sensitive attributes"}
		return out, nil
	}
	keys, err := CombinedGroupKeys(t, attrs, opt.separator())
	if err != nil {
		return nil, err
	}
	groups := indexGroups(keys)
	if len(groups.order) == 0 {
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "resample", Reason: "no rows"}
		return out, nil
	}

	target := targetGroupSize(t.Len(), groups, opt.MinTargetSize)
	out.TargetSize = target
	lo, hi := groups.sizeRange()
	if float64(hi-lo) < opt.BalanceTolerance*float64(target) {
		slog.Debug("resample: groups already balanced", "min", lo, "max", hi, "target", target)
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "resample", Reason: "groups already balanced within tolerance"}
		for _, k := range groups.order {
			n := len(groups.members[k])
			out.Groups = append(out.Groups, GroupSize{Key: k, Before: n, After: n})
		}
		return out, nil
	}

	rng := opt.rng()
	picked := make([]int, 0, target*len(groups.order))
	for _, k := range groups.order {
		members := groups.members[k]
		size := len(members)
		switch {
		case size < target:
			for i := 0; i < target; i++ {
				picked = append(picked, members[rng.IntN(size)])
			}
		case size > target:
			for _, p := range rng.Perm(size)[:target] {
				picked = append(picked, members[p])
			}
		default:
			picked = append(picked, members...)
		}
		out.Groups = append(out.Groups, GroupSize{Key: k, Before: size, After: target})
		slog.Debug("resample: group", "key", k, "before", size, "after", target)
	}
	out.Table = t.Subset(picked)
	return out, nil
}

// targetGroupSize is max(minSize, min(largest, n/k)), capped at n/max(1, k/2) so that
// many small groups cannot inflate the output without bound.
func targetGroupSize(n int, groups groupIndex, minSize int) int {
	k := len(groups.order)
	_, hi := groups.sizeRange()
	target := n / k
	if hi < target {
		target = hi
	}
	if minSize > target {
		target = minSize
	}
	if limit := n / max(1, k/2); target > limit {
		target = limit
	}
	return max(1, target)
}
