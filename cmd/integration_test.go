package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const genderCSV = "gender,income,target\n" +
	"male,50000,1\n" +
	"female,60000,0\n" +
	"female,70000,1\n" +
	"male,80000,0\n" +
	"female,90000,1\n"

// resetFlags restores every flag of c and its subcommands to its default, since the
// bound package variables outlive a single Execute.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

// isolatedHome points HOME at a temp dir so config and audits stay inside the test.
func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestCLI_Init_Analyze_Mitigate_Audit(t *testing.T) {
	home := isolatedHome(t)
	data := writeFile(t, filepath.Join(home, "data.csv"), genderCSV)

	runCmd(t, "init", "census", "-d", "integration test")
	runCmd(t, "analyze", data, "-a", "census", "--chart")
	runCmd(t, "mitigate", data, "--method", "resample", "-a", "census", "--seed", "7")

	auditDir := filepath.Join(home, ".biasloom", "audits", "census")
	resampled, err := dataset.LoadCSV(filepath.Join(auditDir, "outputs", "data.resample.csv"), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load resampled: %v", err)
	}
	if resampled.Len() != 10 {
		t.Fatalf("expected 10 resampled rows, got %d", resampled.Len())
	}

	a, err := audit.LoadAudit(auditDir)
	if err != nil {
		t.Fatalf("load audit: %v", err)
	}
	if len(a.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(a.Runs))
	}
	if a.Runs[0].Kind != audit.KindAnalyze || a.Runs[1].Method != "resample" || a.Runs[1].Seed != 7 {
		t.Fatalf("unexpected runs: %+v %+v", a.Runs[0], a.Runs[1])
	}
	if a.Runs[1].After == nil || a.Runs[1].After.Rows != 10 {
		t.Fatalf("mitigation run missing after metrics: %+v", a.Runs[1].After)
	}

	runCmd(t, "list")
	runCmd(t, "list", "census")
}

func TestCLI_MitigateReweightAndSynthetic(t *testing.T) {
	home := isolatedHome(t)
	data := writeFile(t, filepath.Join(home, "data.csv"), genderCSV)

	weighted := filepath.Join(home, "weighted.csv")
	runCmd(t, "mitigate", data, "--method", "reweight", "-o", weighted)
	tbl, err := dataset.LoadCSV(weighted, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load weighted: %v", err)
	}
	if tbl.Len() != 5 || !tbl.IsNumeric("weight") {
		t.Fatalf("expected 5 rows with numeric weight column, got %d rows %v", tbl.Len(), tbl.Names())
	}

	expanded := filepath.Join(home, "expanded.csv")
	runCmd(t, "mitigate", data, "--method", "expand", "-o", expanded)
	tbl, err = dataset.LoadCSV(expanded, dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load expanded: %v", err)
	}
	if _, ok := tbl.Index("weight"); ok {
		t.Fatalf("expanded output must not carry the weight column")
	}

	runCmd(t, "mitigate", data, "--method", "synthetic", "--quiet")
	synth, err := dataset.LoadCSV(filepath.Join(home, "data.synthetic.csv"), dataset.DefaultOptions())
	if err != nil {
		t.Fatalf("load synthetic: %v", err)
	}
	if synth.Len() < 5 {
		t.Fatalf("oversampling must not drop rows, got %d", synth.Len())
	}
	if strings.Join(synth.Names(), ",") != "gender,income,target" {
		t.Fatalf("schema changed: %v", synth.Names())
	}
}

func TestCLI_AnalyzeJSON(t *testing.T) {
	home := isolatedHome(t)
	data := writeFile(t, filepath.Join(home, "data.csv"), genderCSV)
	out := filepath.Join(home, "report.json")

	runCmd(t, "analyze", data, "--format", "json", "-o", out)
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var res fairness.Result
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if res.Target != "target" || res.Rows != 5 {
		t.Fatalf("unexpected report: %+v", res)
	}
	if sp := res.StatisticalParity["gender"]; sp < 0.0999 || sp > 0.1001 {
		t.Fatalf("statistical parity = %v, want 0.1", sp)
	}
}

func TestCLI_RejectsUnknownMethodAndKeys(t *testing.T) {
	home := isolatedHome(t)
	data := writeFile(t, filepath.Join(home, "data.csv"), genderCSV)

	if err := execCmd("mitigate", data, "--method", "smote"); err == nil {
		t.Fatalf("expected error for unknown method")
	}
	if err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected error for unknown config key")
	}
	if err := execCmd("init", "dup"); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := execCmd("init", "dup"); err == nil {
		t.Fatalf("expected error initializing an existing audit")
	}
}

func TestCLI_ConfigSetPersists(t *testing.T) {
	home := isolatedHome(t)
	runCmd(t, "config", "set", "seed", "7")
	runCmd(t, "config", "set", "weight_column", "w")
	runCmd(t, "config", "show")

	b, err := os.ReadFile(filepath.Join(home, ".biasloom", "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	for _, want := range []string{"seed: 7", "weight_column: w"} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("config missing %q:\n%s", want, b)
		}
	}
}
