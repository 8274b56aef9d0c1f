package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cfgpkg "github.com/KaramelBytes/biasloom-cli/internal/config"
	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/KaramelBytes/biasloom-cli/internal/mitigation"
)

func withConfig(t *testing.T, c *cfgpkg.Global) {
	t.Helper()
	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
}

func TestParseDelimiter(t *testing.T) {
	cases := map[string]rune{"": 0, ",": ',', "tab": '\t', "\t": '\t', ";": ';', "pipe": '|'}
	for in, want := range cases {
		got, err := parseDelimiter(in)
		if err != nil || got != want {
			t.Errorf("parseDelimiter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseDelimiter("::"); err == nil {
		t.Errorf("expected error for unsupported delimiter")
	}
}

func TestLoadFlagsOptions(t *testing.T) {
	withConfig(t, &cfgpkg.Global{Delimiter: ";", MaxRows: 50, NAValues: []string{"-"}})

	lf := loadFlags{headerPreset: "adult", decimal: "comma"}
	opt, err := lf.options()
	if err != nil {
		t.Fatal(err)
	}
	if opt.Delimiter != ';' || opt.MaxRows != 50 || opt.DecimalSeparator != ',' {
		t.Fatalf("config values not applied: %+v", opt)
	}
	if len(opt.NAValues) != 1 || opt.NAValues[0] != "-" {
		t.Fatalf("na values: %v", opt.NAValues)
	}
	if len(opt.Header) != len(dataset.HeaderPresets["adult"]) || opt.Header[9] != "sex" {
		t.Fatalf("adult header preset not applied: %v", opt.Header)
	}

	lf = loadFlags{delimiter: "tab", maxRows: 3, header: []string{"a", "b"}, headerPreset: "adult"}
	opt, err = lf.options()
	if err != nil {
		t.Fatal(err)
	}
	if opt.Delimiter != '\t' || opt.MaxRows != 3 || strings.Join(opt.Header, ",") != "a,b" {
		t.Fatalf("flags should win over config and presets: %+v", opt)
	}

	if _, err := (&loadFlags{headerPreset: "nope"}).options(); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
	if _, err := (&loadFlags{thousands: "x"}).options(); err == nil {
		t.Fatalf("expected error for unknown thousands separator")
	}
}

func TestMitigationOptionsFromConfig(t *testing.T) {
	withConfig(t, &cfgpkg.Global{
		MaxCategories: 4, Seed: 9, GroupSeparator: "/", ResampleMinSize: 20,
		BalanceTolerance: 0.2, WeightColumn: "w", WeightTolerance: 1e-3, SyntheticMaxNeighbors: 5,
	})
	opt := mitigationOptions()
	if opt.Identify.MaxCategories != 4 || opt.Seed != 9 || opt.Separator != "/" || opt.MinTargetSize != 20 {
		t.Fatalf("unexpected options: %+v", opt)
	}
	if opt.BalanceTolerance != 0.2 || opt.WeightColumn != "w" || opt.WeightTolerance != 1e-3 || opt.MaxNeighbors != 5 {
		t.Fatalf("unexpected options: %+v", opt)
	}

	withConfig(t, nil)
	if got := mitigationOptions().MinTargetSize; got != 100 {
		t.Fatalf("defaults expected without config, got %d", got)
	}
}

func TestFormatAndWriteOutput(t *testing.T) {
	res := &fairness.Result{Rows: 2, StatisticalParity: map[string]float64{"g": 0.5}}

	var buf bytes.Buffer
	if err := formatAndWriteOutput(res, "[BIAS SUMMARY]\n", outputOptions{Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[BIAS SUMMARY]\n" {
		t.Fatalf("markdown: %q", buf.String())
	}

	buf.Reset()
	if err := formatAndWriteOutput(res, "", outputOptions{Format: "yaml", Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "statistical_parity:") || !strings.Contains(buf.String(), "g: 0.5") {
		t.Fatalf("yaml: %s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "r.json")
	buf.Reset()
	if err := formatAndWriteOutput(res, "", outputOptions{Format: "json", OutputPath: path, Writer: &buf}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"rows": 2`) || !strings.Contains(buf.String(), "✓ Wrote report") {
		t.Fatalf("json output: %s / %s", b, buf.String())
	}

	if err := formatAndWriteOutput(res, "", outputOptions{Format: "xml", Writer: &buf}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	for key, val := range map[string]string{
		"seed": "11", "max_categories": "6", "balance_tolerance": "0.3",
		"weight_column": "sample_weight", "log_level": "DEBUG", "na_values": "?,NA",
	} {
		if err := setConfigValue(c, key, val); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if c.Seed != 11 || c.MaxCategories != 6 || c.BalanceTolerance != 0.3 || c.LogLevel != "debug" {
		t.Fatalf("unexpected config: %+v", c)
	}
	if c.WeightColumn != "sample_weight" || len(c.NAValues) != 2 {
		t.Fatalf("unexpected config: %+v", c)
	}
	for key, val := range map[string]string{
		"seed": "-1", "balance_tolerance": "0", "log_level": "loud", "delimiter": "::", "group_separator": "",
	} {
		if err := setConfigValue(c, key, val); err == nil {
			t.Errorf("expected error for %s=%q", key, val)
		}
	}
}

func TestUniqueReportPath(t *testing.T) {
	dir := t.TempDir()
	first := uniqueReportPath(dir, "/data/a/metrics.csv", ".bias.md")
	if filepath.Base(first) != "metrics.bias.md" {
		t.Fatalf("first: %s", first)
	}
	if err := os.WriteFile(first, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	second := uniqueReportPath(dir, "/data/b/metrics.csv", ".bias.md")
	if filepath.Base(second) != "metrics__2.bias.md" {
		t.Fatalf("second: %s", second)
	}
}

func TestRunMitigationExpandWarnsAboutDroppedGroups(t *testing.T) {
	var rows []dataset.Row
	for i, n := range []int{95, 3, 2} {
		for j := 0; j < n; j++ {
			rows = append(rows, dataset.Row{dataset.Text(fmt.Sprintf("g%d", i))})
		}
	}
	tbl := dataset.MustNew([]dataset.Column{{Name: "g", Kind: dataset.Categorical}}, rows)

	run, err := runMitigation(methodExpand, tbl, mitigation.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(run.note, "1 group(s) rounded to zero rows") || !strings.Contains(run.note, "g0") {
		t.Fatalf("expected dropped-group note, got %q", run.note)
	}
	if run.table.Len() != 67 {
		t.Fatalf("expanded rows = %d, want 67", run.table.Len())
	}
}
