package dataset

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// LoadXLSX reads one worksheet of a .xlsx workbook into a Table. The first row is the
// header unless opt.Header is set. If sheetName is empty, sheetIndex (1-based) selects the
// sheet; values <= 0 mean the first sheet.
func LoadXLSX(p string, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()
	book := workbook{zip: &zr.Reader, file: filepath.Base(p)}

	part, err := book.sheetPart(sheetName, sheetIndex)
	if err != nil {
		return nil, err
	}
	var sst sharedStrings
	if err := book.decode("xl/sharedStrings.xml", &sst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	f, err := zr.Open(part)
	if err != nil {
		return nil, fmt.Errorf("worksheet %s missing from %s", part, book.file)
	}
	defer f.Close()
	rows := &sheetRows{dec: xml.NewDecoder(f), shared: sst.values()}

	header := opt.Header
	if len(header) == 0 {
		h, err := rows.next()
		if err == io.EOF {
			return New(nil, nil)
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", part, err)
		}
		header = h
	}
	var records [][]string
	for opt.MaxRows <= 0 || len(records) < opt.MaxRows {
		rec, err := rows.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", part, err)
		}
		records = append(records, rec)
	}
	return FromRecords(header, records, opt)
}

type workbook struct {
	zip  *zip.Reader
	file string
}

type workbookXML struct {
	Sheets []struct {
		Name    string     `xml:"name,attr"`
		SheetID int        `xml:"sheetId,attr"`
		Attrs   []xml.Attr `xml:",any,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// richText covers both plain <t> and run-formatted <r><t> string items.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (r richText) String() string {
	if len(r.Runs) == 0 {
		return r.T
	}
	var b strings.Builder
	b.WriteString(r.T)
	for _, run := range r.Runs {
		b.WriteString(run.T)
	}
	return b.String()
}

type sharedStrings struct {
	Items []richText `xml:"si"`
}

func (s sharedStrings) values() []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.String()
	}
	return out
}

func (w workbook) decode(name string, v any) error {
	f, err := w.zip.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := xml.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("parse %s in %s: %w", name, w.file, err)
	}
	return nil
}

// sheetPart resolves the zip entry of the requested worksheet via workbook.xml and its
// relationships. Lookup by index falls back to the conventional sheetN.xml name.
func (w workbook) sheetPart(name string, index int) (string, error) {
	var wb workbookXML
	if err := w.decode("xl/workbook.xml", &wb); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	var rels relationshipsXML
	if err := w.decode("xl/_rels/workbook.xml.rels", &rels); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		if r.ID != "" && r.Target != "" {
			targets[r.ID] = r.Target
		}
	}
	relOf := func(attrs []xml.Attr) string {
		for _, a := range attrs {
			if a.Name.Local == "id" {
				if t, ok := targets[a.Value]; ok {
					return normalizeRelPath(t)
				}
			}
		}
		return ""
	}

	if name != "" {
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, name) {
				if part := relOf(s.Attrs); part != "" {
					return part, nil
				}
			}
			names = append(names, s.Name)
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			name, w.file, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range wb.Sheets {
		if s.SheetID == index {
			if part := relOf(s.Attrs); part != "" {
				return part, nil
			}
		}
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", index), nil
}

type cellXML struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline richText `xml:"is"`
}

// sheetRows streams <row> elements of a worksheet as string cells.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
}

// next returns the cells of the next row, padded to the highest referenced column.
// It returns io.EOF once the sheet is exhausted.
func (r *sheetRows) next() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "row":
				inRow, row = true, nil
			case inRow && el.Name.Local == "c":
				var c cellXML
				if err := r.dec.DecodeElement(&c, &el); err != nil {
					return nil, err
				}
				col := colIndexFromRef(c.Ref)
				if col < 0 {
					col = len(row)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cellText(c)
			}
		case xml.EndElement:
			if inRow && el.Name.Local == "row" {
				return row, nil
			}
		}
	}
}

func (r *sheetRows) cellText(c cellXML) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(r.shared) {
			return ""
		}
		return r.shared[i]
	case "inlineStr":
		return c.Inline.String()
	default:
		return c.Value
	}
}

// colIndexFromRef converts refs like "C12" to a 0-based column index; -1 if absent.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, c := range strings.ToUpper(ref) {
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
	}
	return idx - 1
}

// normalizeRelPath maps a relationship target, absolute or relative to xl/, to its zip entry name.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
