package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/KaramelBytes/biasloom-cli/internal/utils"
)

// WriteCSV writes a header row followed by every row, in schema column order.
func WriteCSV(w io.Writer, t *Table, delim rune) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, c := range t.Columns {
			rec[j] = row[j].Format(c.Kind)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to path atomically.
func SaveCSV(path string, t *Table, delim rune) error {
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t, delim); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
