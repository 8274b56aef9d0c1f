package dataset

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var csvRows = []string{
	"gender;race;income;score;target",
	"male;white;50.000,0;0,5;1",
	"female;black;60.000,0;0,6;0",
	"female;white;70.000,0;?;1",
	"male;asian;80.000,0;0,8;0",
	"female;black;90.000,0;0,9;1",
}

func writeCSV(t *testing.T, name string, lines []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return p
}

func TestLoadCSVInfersSchema(t *testing.T) {
	p := writeCSV(t, "people.csv", csvRows)
	opt := DefaultOptions()
	opt.Delimiter = ';'
	opt.DecimalSeparator = ','
	opt.ThousandsSeparator = '.'

	tbl, err := LoadCSV(p, opt)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tbl.Len() != 5 {
		t.Fatalf("rows = %d, want 5", tbl.Len())
	}
	want := map[string]Kind{"gender": Categorical, "race": Categorical, "income": Numeric, "score": Numeric, "target": Binary}
	for name, k := range want {
		c, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("missing column %s", name)
		}
		if c.Kind != k {
			t.Fatalf("%s kind = %s, want %s", name, c.Kind, k)
		}
	}
	if !tbl.IsNumeric("target") || !tbl.IsBinary("target") {
		t.Fatalf("binary column should also be numeric")
	}
	inc, err := tbl.Values("income")
	if err != nil {
		t.Fatalf("Values: %v", err)
	}
	if inc[0].Num != 50000 {
		t.Fatalf("income[0] = %v, want 50000", inc[0].Num)
	}
	score, _ := tbl.Values("score")
	if !score[2].Missing || !math.IsNaN(score[2].Num) {
		t.Fatalf("NA marker should load as missing: %+v", score[2])
	}
	if got := strings.Join(tbl.Distinct("race"), ","); got != "white,black,asian" {
		t.Fatalf("distinct race = %q", got)
	}
}

func TestLoadCSVHeaderlessWithNames(t *testing.T) {
	p := writeCSV(t, "adult.data", []string{
		"39, State-gov, Male, 0",
		"50, ?, Female, 1",
	})
	opt := DefaultOptions()
	opt.Header = []string{"age", "workclass", "sex", "income"}
	tbl, err := LoadCSV(p, opt)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d", tbl.Len())
	}
	wc, _ := tbl.Values("workclass")
	if wc[0].Str != "State-gov" || !wc[1].Missing {
		t.Fatalf("workclass = %+v", wc)
	}
	if !tbl.IsBinary("income") {
		t.Fatalf("income should be binary")
	}
}

func TestLoadCSVMaxRowsAndEmpty(t *testing.T) {
	p := writeCSV(t, "a.csv", []string{"x,y", "1,a", "2,b", "3,c"})
	opt := DefaultOptions()
	opt.MaxRows = 2
	tbl, err := LoadCSV(p, opt)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}

	empty := writeCSV(t, "empty.csv", nil)
	tbl, err = LoadCSV(empty, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadCSV empty: %v", err)
	}
	if tbl.Len() != 0 || len(tbl.Columns) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl := MustNew(
		[]Column{{Name: "g", Kind: Categorical}, {Name: "v", Kind: Numeric}, {Name: "y", Kind: Binary}},
		[]Row{
			{Text("a"), Number(1.5), Number(1)},
			{Text("b"), Null(), Number(0)},
		},
	)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, ','); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "g,v,y\na,1.5,1\nb,,0\n"
	if buf.String() != want {
		t.Fatalf("csv = %q, want %q", buf.String(), want)
	}

	p := filepath.Join(t.TempDir(), "out.csv")
	if err := SaveCSV(p, tbl, 0); err != nil {
		t.Fatalf("SaveCSV: %v", err)
	}
	back, err := LoadCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if strings.Join(back.Names(), ",") != "g,v,y" || back.Len() != 2 {
		t.Fatalf("reloaded = %+v", back)
	}
}

func TestTableOperationsDoNotAlias(t *testing.T) {
	tbl := MustNew(
		[]Column{{Name: "g", Kind: Categorical}, {Name: "v", Kind: Numeric}},
		[]Row{{Text("a"), Number(1)}, {Text("b"), Number(2)}},
	)
	sub := tbl.Subset([]int{1, 1, 0})
	if sub.Len() != 3 || sub.Rows[0][0].Str != "b" {
		t.Fatalf("subset = %+v", sub.Rows)
	}
	sub.Rows[0][1] = Number(99)
	if tbl.Rows[1][1].Num != 2 {
		t.Fatalf("subset aliases input rows")
	}

	w, err := tbl.WithColumn(Column{Name: "weight", Kind: Numeric}, []Value{Number(0.5), Number(1.5)})
	if err != nil {
		t.Fatalf("WithColumn: %v", err)
	}
	if len(tbl.Columns) != 2 || len(w.Columns) != 3 {
		t.Fatalf("WithColumn mutated input")
	}
	if _, err := w.WithColumn(Column{Name: "weight"}, []Value{Null(), Null()}); err == nil {
		t.Fatalf("expected duplicate column error")
	}
	back, err := w.Without("weight")
	if err != nil {
		t.Fatalf("Without: %v", err)
	}
	if strings.Join(back.Names(), ",") != "g,v" {
		t.Fatalf("names = %v", back.Names())
	}
	if _, err := tbl.Without("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}
