package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrUnknownColumn is returned when a column name is not part of a table's schema.
var ErrUnknownColumn = errors.New("unknown column")

// Kind is the declared type tag of a column, fixed when the table is loaded.
type Kind int

const (
	Categorical Kind = iota
	Numeric
	// Binary is a numeric column whose values are all 0 or 1.
	Binary
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Binary:
		return "binary"
	default:
		return "categorical"
	}
}

// MarshalText renders the kind by name in JSON and YAML output.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Column is one entry of a table schema.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Value is a single cell. Categorical cells use Str, numeric and binary cells use Num.
type Value struct {
	Num     float64
	Str     string
	Missing bool
}

// Text returns a cell value as a string.
func Text(s string) Value { return Value{Str: s, Missing: s == ""} }

// Number returns a numeric cell value. NaN is stored as missing.
func Number(f float64) Value {
	if math.IsNaN(f) {
		return Value{Num: math.NaN(), Missing: true}
	}
	return Value{Num: f}
}

// Null returns a missing cell.
func Null() Value { return Value{Num: math.NaN(), Missing: true} }

// Format renders the cell for output in a column of the given kind.
func (v Value) Format(k Kind) string {
	if v.Missing {
		return ""
	}
	if k == Categorical {
		return v.Str
	}
	return strconv.FormatFloat(v.Num, 'f', -1, 64)
}

// Row holds one value per schema column, in schema order.
type Row []Value

// Table is an ordered sequence of rows sharing one schema.
type Table struct {
	Columns []Column
	Rows    []Row

	index map[string]int
}

// New builds a table. Every row must have exactly one value per column.
func New(cols []Column, rows []Row) (*Table, error) {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := idx[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		idx[c.Name] = i
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("row %d: got %d values, want %d", i, len(r), len(cols))
		}
	}
	return &Table{Columns: cols, Rows: rows, index: idx}, nil
}

// MustNew is New for fixtures and literals; it panics on a malformed table.
func MustNew(cols []Column, rows []Row) *Table {
	t, err := New(cols, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Names returns column names in schema order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Index returns the schema position of the named column.
func (t *Table) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Column returns the schema entry for name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

func (t *Table) kindOf(name string) (Kind, bool) {
	c, ok := t.Column(name)
	return c.Kind, ok
}

// IsCategorical reports whether name is a categorical column.
func (t *Table) IsCategorical(name string) bool {
	k, ok := t.kindOf(name)
	return ok && k == Categorical
}

// IsBinary reports whether name is a 0/1 column.
func (t *Table) IsBinary(name string) bool {
	k, ok := t.kindOf(name)
	return ok && k == Binary
}

// IsNumeric reports whether name holds numbers. Binary columns are numeric.
func (t *Table) IsNumeric(name string) bool {
	k, ok := t.kindOf(name)
	return ok && (k == Numeric || k == Binary)
}

// Values returns the cells of one column in row order.
func (t *Table) Values(name string) ([]Value, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := make([]Value, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row[i]
	}
	return out, nil
}

// Distinct returns the non-missing distinct values of a column in first-seen order.
func (t *Table) Distinct(name string) []string {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	kind := t.Columns[i].Kind
	seen := map[string]struct{}{}
	var out []string
	for _, row := range t.Rows {
		v := row[i]
		if v.Missing {
			continue
		}
		s := v.Format(kind)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append(Row(nil), r...)
	}
	return t.withRows(rows)
}

// Subset returns a new table holding copies of the rows at idx, in that order.
// Indices may repeat.
func (t *Table) Subset(idx []int) *Table {
	rows := make([]Row, len(idx))
	for i, j := range idx {
		rows[i] = append(Row(nil), t.Rows[j]...)
	}
	return t.withRows(rows)
}

// WithColumn returns a copy of t with an extra column appended.
func (t *Table) WithColumn(col Column, vals []Value) (*Table, error) {
	if _, exists := t.index[col.Name]; exists {
		return nil, fmt.Errorf("column %q already exists", col.Name)
	}
	if len(vals) != len(t.Rows) {
		return nil, fmt.Errorf("column %q: got %d values for %d rows", col.Name, len(vals), len(t.Rows))
	}
	cols := append(append([]Column(nil), t.Columns...), col)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, 0, len(cols))
		nr = append(nr, r...)
		rows[i] = append(nr, vals[i])
	}
	return New(cols, rows)
}

// Without returns a copy of t without the named column.
func (t *Table) Without(name string) (*Table, error) {
	drop, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	cols := make([]Column, 0, len(t.Columns)-1)
	cols = append(cols, t.Columns[:drop]...)
	cols = append(cols, t.Columns[drop+1:]...)
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, 0, len(cols))
		nr = append(nr, r[:drop]...)
		rows[i] = append(nr, r[drop+1:]...)
	}
	return New(cols, rows)
}

func (t *Table) withRows(rows []Row) *Table {
	cols := append([]Column(nil), t.Columns...)
	idx := make(map[string]int, len(t.index))
	for k, v := range t.index {
		idx[k] = v
	}
	return &Table{Columns: cols, Rows: rows, index: idx}
}
