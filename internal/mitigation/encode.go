package mitigation

import (
	"sort"

	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// encodedFeature maps one table column onto a span of matrix columns.
type encodedFeature struct {
	col        int
	kind       dataset.Kind
	offset     int
	categories []string // sorted; empty for numeric features
	fill       float64  // mean used for missing numeric cells
}

func (f encodedFeature) width() int {
	if f.kind == dataset.Categorical {
		return len(f.categories)
	}
	return 1
}

// featureEncoder one-hot encodes categorical columns and passes numeric columns through.
// Values not seen at fit time encode as all zeros.
type featureEncoder struct {
	features []encodedFeature
	dims     int
}

func fitEncoder(t *dataset.Table, skip int) *featureEncoder {
	enc := &featureEncoder{}
	for j, c := range t.Columns {
		if j == skip {
			continue
		}
		f := encodedFeature{col: j, kind: c.Kind, offset: enc.dims}
		if c.Kind == dataset.Categorical {
			f.categories = t.Distinct(c.Name)
			sort.Strings(f.categories)
		} else {
			var xs []float64
			for _, row := range t.Rows {
				if !row[j].Missing {
					xs = append(xs, row[j].Num)
				}
			}
			if len(xs) > 0 {
				f.fill = stat.Mean(xs, nil)
			}
		}
		enc.features = append(enc.features, f)
		enc.dims += f.width()
	}
	return enc
}

// transform writes one encoded row per table row. The table must be non-empty and the
// encoder must have at least one dimension.
func (e *featureEncoder) transform(t *dataset.Table) *mat.Dense {
	x := mat.NewDense(t.Len(), e.dims, nil)
	for r, row := range t.Rows {
		out := x.RawRowView(r)
		for _, f := range e.features {
			v := row[f.col]
			if f.kind != dataset.Categorical {
				if v.Missing {
					out[f.offset] = f.fill
				} else {
					out[f.offset] = v.Num
				}
				continue
			}
			if v.Missing {
				continue
			}
			if i := sort.SearchStrings(f.categories, v.Str); i < len(f.categories) && f.categories[i] == v.Str {
				out[f.offset+i] = 1
			}
		}
	}
	return x
}

// decode rebuilds table values from one encoded row. Categorical features take the
// category whose indicator is largest; ambiguous reports whether that indicator was below
// 0.5, i.e. the reconstruction is a nearest-category guess. Binary features snap to the
// nearest of 0 and 1.
func (e *featureEncoder) decode(vec []float64, row dataset.Row) (ambiguous bool) {
	for _, f := range e.features {
		span := vec[f.offset : f.offset+f.width()]
		switch f.kind {
		case dataset.Categorical:
			if len(span) == 0 {
				row[f.col] = dataset.Null()
				continue
			}
			best := floats.MaxIdx(span)
			if span[best] < 0.5 {
				ambiguous = true
			}
			row[f.col] = dataset.Text(f.categories[best])
		case dataset.Binary:
			if span[0] >= 0.5 {
				row[f.col] = dataset.Number(1)
			} else {
				row[f.col] = dataset.Number(0)
			}
		default:
			row[f.col] = dataset.Number(span[0])
		}
	}
	return ambiguous
}

// minMaxScaler maps every column of a matrix into [0,1] and back.
type minMaxScaler struct {
	min, span []float64
}

func fitScaler(x *mat.Dense) *minMaxScaler {
	rows, cols := x.Dims()
	s := &minMaxScaler{min: make([]float64, cols), span: make([]float64, cols)}
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, x)
		lo, hi := floats.Min(col), floats.Max(col)
		s.min[j] = lo
		s.span[j] = hi - lo
	}
	return s
}

func (s *minMaxScaler) transform(x *mat.Dense) {
	rows, _ := x.Dims()
	for r := 0; r < rows; r++ {
		v := x.RawRowView(r)
		for j := range v {
			if s.span[j] == 0 {
				v[j] = 0
				continue
			}
			v[j] = (v[j] - s.min[j]) / s.span[j]
		}
	}
}

func (s *minMaxScaler) inverse(v []float64) {
	for j := range v {
		v[j] = v[j]*s.span[j] + s.min[j]
	}
}
