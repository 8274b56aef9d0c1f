package fairness

import (
	"math"
	"sort"
	"sync"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Result holds the three metric mappings for one table. It is built fresh per call.
type Result struct {
	Rows                int                     `json:"rows" yaml:"rows"`
	SensitiveAttributes []string                `json:"sensitive_attributes" yaml:"sensitive_attributes"`
	Target              string                  `json:"target,omitempty" yaml:"target,omitempty"`
	StatisticalParity   map[string]float64      `json:"statistical_parity" yaml:"statistical_parity"`
	DisparateImpact     map[string]float64      `json:"disparate_impact" yaml:"disparate_impact"`
	EqualOpportunity    map[string]float64      `json:"equal_opportunity" yaml:"equal_opportunity"`
	Groups              map[string][]GroupCount `json:"groups" yaml:"groups"`
}

// GroupCount is the size and row share of one attribute value.
type GroupCount struct {
	Value string  `json:"value" yaml:"value"`
	Count int     `json:"count" yaml:"count"`
	Share float64 `json:"share" yaml:"share"`
}

// HasTarget reports whether equal opportunity could be computed.
func (r *Result) HasTarget() bool { return r.Target != "" }

// Analyze identifies attributes and computes every metric. The input is not modified.
func Analyze(t *dataset.Table, opt Options) *Result {
	res := &Result{
		Rows:                t.Len(),
		SensitiveAttributes: IdentifySensitiveAttributes(t, opt),
		Groups:              Distribution(t, opt),
	}
	res.Target, _ = IdentifyTargetVariable(t)

	// The metrics share no mutable state; each goroutine owns its mapping.
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		res.StatisticalParity = StatisticalParity(t, opt)
	}()
	go func() {
		defer wg.Done()
		res.DisparateImpact = DisparateImpact(t, opt)
	}()
	go func() {
		defer wg.Done()
		res.EqualOpportunity = EqualOpportunity(t, opt)
	}()
	wg.Wait()
	return res
}

// StatisticalParity maps each sensitive attribute to the population standard deviation
// of its groups' shares of all rows. 0 means every group has the same size.
func StatisticalParity(t *dataset.Table, opt Options) map[string]float64 {
	out := map[string]float64{}
	n := t.Len()
	if n == 0 {
		return out
	}
	for _, attr := range IdentifySensitiveAttributes(t, opt) {
		groups := partition(t, attr)
		if len(groups) == 0 {
			continue
		}
		shares := make([]float64, len(groups))
		for i, g := range groups {
			shares[i] = float64(len(g.rows)) / float64(n)
		}
		_, std := stat.PopMeanStdDev(shares, nil)
		out[attr] = std
	}
	return out
}

// DisparateImpact maps each sensitive attribute to the smallest min/max ratio of group
// means across numeric columns. Columns whose largest group mean is <= 0 are ignored; when
// no column remains the score is 1.0.
func DisparateImpact(t *dataset.Table, opt Options) map[string]float64 {
	out := map[string]float64{}
	if t.Len() == 0 {
		return out
	}
	var numeric []int
	for i, c := range t.Columns {
		if t.IsNumeric(c.Name) {
			numeric = append(numeric, i)
		}
	}
	for _, attr := range IdentifySensitiveAttributes(t, opt) {
		groups := partition(t, attr)
		if len(groups) == 0 {
			continue
		}
		score := math.Inf(1)
		for _, col := range numeric {
			means := groupMeans(t, groups, col)
			if len(means) == 0 {
				continue
			}
			hi := floats.Max(means)
			if hi <= 0 {
				continue
			}
			if r := floats.Min(means) / hi; r < score {
				score = r
			}
		}
		if math.IsInf(score, 1) {
			score = 1.0
		}
		out[attr] = score
	}
	return out
}

// EqualOpportunity maps each sensitive attribute to the spread (max - min) of the
// per-group rate of target == 1. It returns an empty mapping when the table has no target;
// callers must read that as "unavailable", not "no bias".
//
// The rate is the target's own positive rate per group. There is no separate prediction
// column, so this measures outcome-rate spread rather than a true-positive-rate gap.
func EqualOpportunity(t *dataset.Table, opt Options) map[string]float64 {
	out := map[string]float64{}
	target, ok := IdentifyTargetVariable(t)
	if !ok {
		return out
	}
	ti, _ := t.Index(target)
	for _, attr := range IdentifySensitiveAttributes(t, opt) {
		groups := partition(t, attr)
		if len(groups) == 0 {
			continue
		}
		rates := make([]float64, len(groups))
		for i, g := range groups {
			rates[i] = positiveRate(t, g.rows, ti)
		}
		out[attr] = floats.Max(rates) - floats.Min(rates)
	}
	return out
}

// Distribution returns, per sensitive attribute, the row count and share of each value.
func Distribution(t *dataset.Table, opt Options) map[string][]GroupCount {
	out := map[string][]GroupCount{}
	n := t.Len()
	for _, attr := range IdentifySensitiveAttributes(t, opt) {
		groups := partition(t, attr)
		counts := make([]GroupCount, len(groups))
		for i, g := range groups {
			counts[i] = GroupCount{Value: g.value, Count: len(g.rows)}
			if n > 0 {
				counts[i].Share = float64(len(g.rows)) / float64(n)
			}
		}
		out[attr] = counts
	}
	return out
}

type group struct {
	value string
	rows  []int
}

// partition splits row indices by the value of attr, sorted by value. Rows with a
// missing value belong to no group.
func partition(t *dataset.Table, attr string) []group {
	ai, ok := t.Index(attr)
	if !ok {
		return nil
	}
	kind := t.Columns[ai].Kind
	byValue := map[string]*group{}
	for r, row := range t.Rows {
		v := row[ai]
		if v.Missing {
			continue
		}
		key := v.Format(kind)
		g := byValue[key]
		if g == nil {
			g = &group{value: key}
			byValue[key] = g
		}
		g.rows = append(g.rows, r)
	}
	out := make([]group, 0, len(byValue))
	for _, g := range byValue {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

// groupMeans returns the mean of column col for each group that has at least one
// non-missing value in it.
func groupMeans(t *dataset.Table, groups []group, col int) []float64 {
	means := make([]float64, 0, len(groups))
	vals := make([]float64, 0)
	for _, g := range groups {
		vals = vals[:0]
		for _, r := range g.rows {
			if v := t.Rows[r][col]; !v.Missing {
				vals = append(vals, v.Num)
			}
		}
		if len(vals) == 0 {
			continue
		}
		means = append(means, stat.Mean(vals, nil))
	}
	return means
}

func positiveRate(t *dataset.Table, rows []int, target int) float64 {
	if len(rows) == 0 {
		return 0
	}
	pos := 0
	for _, r := range rows {
		if v := t.Rows[r][target]; !v.Missing && v.Num == 1 {
			pos++
		}
	}
	return float64(pos) / float64(len(rows))
}
