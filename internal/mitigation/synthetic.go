package mitigation

import (
	"log/slog"
	"math"
	"runtime"
	"sync"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SyntheticOutcome is the result of Oversample.
type SyntheticOutcome struct {
	Table         *dataset.Table
	Target        string
	MinorityClass float64
	Neighbors     int
	Generated     int
	// Ambiguous counts synthetic rows with a categorical cell whose winning indicator was
	// below 0.5.
	Ambiguous int
	Skipped   error
}

// Oversample generates synthetic rows of the minority target class with ADASYN: minority
// rows surrounded by more majority neighbours receive more synthetic neighbours. Features
// are one-hot encoded and min-max scaled for interpolation, then decoded back to the
// input schema. Categories of synthetic rows are nearest reconstructions, not exact
// inverses. Synthetic rows are appended after all input rows.
func Oversample(t *dataset.Table, opt Options) (*SyntheticOutcome, error) {
	out := &SyntheticOutcome{}
	target, ok := fairness.IdentifyTargetVariable(t)
	if !ok {
		out.Table = t.Clone()
		out.Skipped = &SchemaError{Op: "oversample", Reason: "no binary target column"}
		return out, nil
	}
	out.Target = target
	ti, _ := t.Index(target)

	var pos, neg []int
	for r, row := range t.Rows {
		if row[ti].Num == 1 {
			pos = append(pos, r)
		} else {
			neg = append(neg, r)
		}
	}
	minority, majority, class := pos, neg, 1.0
	if len(neg) < len(pos) {
		minority, majority, class = neg, pos, 0.0
	}
	out.MinorityClass = class
	if len(minority) == 0 {
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "oversample", Reason: "target has a single class"}
		return out, nil
	}
	deficit := len(majority) - len(minority)
	if deficit == 0 {
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "oversample", Reason: "target classes already balanced"}
		return out, nil
	}

	enc := fitEncoder(t, ti)
	if enc.dims == 0 {
		out.Table = t.Clone()
		out.Skipped = &DegenerateInputError{Op: "oversample", Reason: "no feature columns"}
		return out, nil
	}
	x := enc.transform(t)
	scaler := fitScaler(x)
	scaler.transform(x)

	k := min(opt.maxNeighbors(), max(1, len(minority)-1))
	out.Neighbors = k

	isMinority := make([]bool, t.Len())
	for _, r := range minority {
		isMinority[r] = true
	}
	all := make([]int, t.Len())
	for i := range all {
		all[i] = i
	}

	// Difficulty ratio: the majority share of each minority row's k nearest rows.
	ratios := make([]float64, len(minority))
	for i, nn := range neighbourhoods(x, minority, all, k) {
		hostile := 0
		for _, j := range nn {
			if !isMinority[j] {
				hostile++
			}
		}
		ratios[i] = float64(hostile) / float64(len(nn))
	}
	if sum := floats.Sum(ratios); sum > 0 {
		floats.Scale(1/sum, ratios)
	} else {
		slog.Warn("oversample: no minority row has majority neighbours, generating uniformly", "minority", len(minority))
		for i := range ratios {
			ratios[i] = 1 / float64(len(ratios))
		}
	}

	rng := opt.rng()
	_, dims := x.Dims()
	var synth [][]float64
	local := neighbourhoods(x, minority, minority, k)
	for i, r := range minority {
		g := int(math.Round(ratios[i] * float64(deficit)))
		if g == 0 {
			continue
		}
		xi := x.RawRowView(r)
		nn := local[i]
		for s := 0; s < g; s++ {
			v := make([]float64, dims)
			copy(v, xi)
			if len(nn) > 0 {
				diff := make([]float64, dims)
				floats.SubTo(diff, x.RawRowView(nn[rng.IntN(len(nn))]), xi)
				floats.AddScaled(v, rng.Float64(), diff)
			}
			synth = append(synth, v)
		}
	}

	rows := make([]dataset.Row, 0, t.Len()+len(synth))
	for _, row := range t.Rows {
		rows = append(rows, append(dataset.Row(nil), row...))
	}
	for _, v := range synth {
		scaler.inverse(v)
		row := make(dataset.Row, len(t.Columns))
		if enc.decode(v, row) {
			out.Ambiguous++
		}
		row[ti] = dataset.Number(class)
		rows = append(rows, row)
	}
	res, err := dataset.New(append([]dataset.Column(nil), t.Columns...), rows)
	if err != nil {
		return nil, err
	}
	out.Table = res
	out.Generated = len(synth)
	slog.Debug("oversample: generated synthetic rows", "target", target, "minority_class", class,
		"neighbors", k, "generated", out.Generated, "ambiguous", out.Ambiguous)
	return out, nil
}

// neighbourhoods runs nearest for every row in rows, spread over GOMAXPROCS workers.
// Results are indexed like rows and do not depend on scheduling.
func neighbourhoods(x *mat.Dense, rows, candidates []int, k int) [][]int {
	out := make([][]int, len(rows))
	workers := min(runtime.GOMAXPROCS(0), len(rows))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < len(rows); i += workers {
				out[i] = nearest(x, rows[i], candidates, k)
			}
		}(w)
	}
	wg.Wait()
	return out
}

// nearest returns up to k indices from candidates closest to row r by Euclidean distance,
// excluding r itself, closest first. Ties go to the lower row index.
func nearest(x *mat.Dense, r int, candidates []int, k int) []int {
	best := kBest{k: k, rows: make([]int, 0, k), dist: make([]float64, 0, k)}
	xr := x.RawRowView(r)
	for _, c := range candidates {
		if c == r {
			continue
		}
		if d, ok := sqDistWithin(xr, x.RawRowView(c), best.worst()); ok {
			best.offer(c, d)
		}
	}
	return best.rows
}

// kBest holds the k closest rows seen so far, sorted by distance then row index.
type kBest struct {
	k    int
	rows []int
	dist []float64
}

// worst is the distance a candidate must not exceed to enter the set.
func (b *kBest) worst() float64 {
	if len(b.rows) < b.k {
		return math.Inf(1)
	}
	return b.dist[len(b.dist)-1]
}

func (b *kBest) offer(row int, d float64) {
	i := len(b.rows)
	for i > 0 && (b.dist[i-1] > d || (b.dist[i-1] == d && b.rows[i-1] > row)) {
		i--
	}
	if i >= b.k {
		return
	}
	if len(b.rows) < b.k {
		b.rows = append(b.rows, 0)
		b.dist = append(b.dist, 0)
	}
	copy(b.rows[i+1:], b.rows[i:len(b.rows)-1])
	copy(b.dist[i+1:], b.dist[i:len(b.dist)-1])
	b.rows[i], b.dist[i] = row, d
}

// sqDistWithin returns the squared Euclidean distance between a and b, giving up with
// ok=false as soon as the partial sum exceeds limit.
func sqDistWithin(a, b []float64, limit float64) (d float64, ok bool) {
	for i, v := range a {
		diff := v - b[i]
		d += diff * diff
		if d > limit {
			return d, false
		}
	}
	return d, true
}
