package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Options controls how raw tabular files become a Table.
type Options struct {
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picks tab for .tsv files and comma otherwise.
	Delimiter rune
	// Header names the columns of a headerless file. When empty the first record is the header.
	Header []string
	// NAValues are cell texts treated as missing in addition to the empty string, e.g. "?".
	NAValues []string
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune // optional; if 0, auto-detect common separators (',' '.' space)
}

// HeaderPresets names the columns of well-known headerless datasets.
var HeaderPresets = map[string][]string{
	// UCI Adult census income (adult.data / adult.test).
	"adult": {
		"age", "workclass", "fnlwgt", "education", "education-num",
		"marital-status", "occupation", "relationship", "race", "sex",
		"capital-gain", "capital-loss", "hours-per-week", "native-country", "income",
	},
}

// DefaultOptions returns reasonable defaults for loading a dataset.
func DefaultOptions() Options {
	return Options{
		MaxRows:  0,
		NAValues: []string{"NA", "N/A", "NaN", "?"},
	}
}

// LoadCSV reads a delimited text file into a Table, inferring each column's kind once.
func LoadCSV(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, delim, opt)
}

// ReadCSV reads delimited records from r into a Table.
func ReadCSV(r io.Reader, delim rune, opt Options) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header := opt.Header
	if len(header) == 0 {
		h, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return New(nil, nil)
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		header = append([]string(nil), h...)
	}
	var records [][]string
	for {
		if opt.MaxRows > 0 && len(records) >= opt.MaxRows {
			break
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return FromRecords(header, records, opt)
}

// FromRecords builds a Table from raw string cells. Short records are padded with
// missing cells; extra cells are dropped.
func FromRecords(header []string, records [][]string, opt Options) (*Table, error) {
	ncol := len(header)
	na := map[string]struct{}{"": {}}
	for _, v := range opt.NAValues {
		na[strings.TrimSpace(v)] = struct{}{}
	}
	cells := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, ncol)
		for j := 0; j < ncol && j < len(rec); j++ {
			v := strings.TrimSpace(rec[j])
			if _, miss := na[v]; miss {
				v = ""
			}
			row[j] = v
		}
		cells[i] = row
	}

	cols := make([]Column, ncol)
	for j := range header {
		name := strings.TrimSpace(header[j])
		if name == "" {
			name = fmt.Sprintf("column_%d", j+1)
		}
		cols[j] = Column{Name: name, Kind: inferKind(cells, j, opt)}
	}
	rows := make([]Row, len(cells))
	for i, rec := range cells {
		row := make(Row, ncol)
		for j, v := range rec {
			switch {
			case v == "":
				row[j] = Null()
			case cols[j].Kind == Categorical:
				row[j] = Text(v)
			default:
				x, _ := parseNumeric(v, opt)
				row[j] = Number(x)
			}
		}
		rows[i] = row
	}
	return New(cols, rows)
}

// inferKind decides a column's declared type from its cells.
// Numeric: every non-missing cell parses. Binary: numeric, nothing missing, values in {0,1}.
func inferKind(cells [][]string, j int, opt Options) Kind {
	if len(cells) == 0 {
		return Categorical
	}
	numeric, binary := true, true
	for _, rec := range cells {
		v := rec[j]
		if v == "" {
			binary = false
			continue
		}
		x, ok := parseNumeric(v, opt)
		if !ok {
			numeric = false
			break
		}
		if x != 0 && x != 1 {
			binary = false
		}
	}
	switch {
	case numeric && binary:
		return Binary
	case numeric:
		return Numeric
	default:
		return Categorical
	}
}

func sniffDelimiter(path string) rune {
	name := strings.ToLower(path)
	if strings.HasSuffix(name, ".tsv") {
		return '\t'
	}
	return ','
}

// parseNumeric accepts locale-formatted numbers such as "1.234,5", "1 234.5" or "12%".
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" {
		return 0, false
	}
	dec, thou := opt.DecimalSeparator, opt.ThousandsSeparator
	if dec == 0 {
		dec, thou = guessSeparators(raw, thou)
	}
	raw = strings.Map(func(r rune) rune {
		switch {
		case r == dec:
			return '.'
		case r == thou, thou == 0 && (r == ',' || r == '.' || r == ' '):
			return -1
		}
		return r
	}, raw)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// guessSeparators picks the decimal mark from the last ',' or '.' in raw. When both
// appear the other one is the thousands separator.
func guessSeparators(raw string, thou rune) (rune, rune) {
	comma, dot := strings.LastIndexByte(raw, ','), strings.LastIndexByte(raw, '.')
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		return ',', '.'
	case comma >= 0 && dot >= 0:
		return '.', ','
	case comma >= 0:
		return ',', thou
	default:
		return '.', thou
	}
}
