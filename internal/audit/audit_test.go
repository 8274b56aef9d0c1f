package audit_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
)

func sampleResult(rows int, parity float64) *fairness.Result {
	return &fairness.Result{
		Rows:                rows,
		SensitiveAttributes: []string{"gender"},
		Target:              "target",
		StatisticalParity:   map[string]float64{"gender": parity},
		DisparateImpact:     map[string]float64{"gender": 0.75},
		EqualOpportunity:    map[string]float64{"gender": 0.1667},
		Groups: map[string][]fairness.GroupCount{
			"gender": {{Value: "female", Count: 3, Share: 0.6}, {Value: "male", Count: 2, Share: 0.4}},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "adult")
	a := audit.NewAudit("adult", "census income", dir)
	a.AddRun(audit.Run{Kind: audit.KindAnalyze, Source: "adult.csv", Rows: 5, Before: sampleResult(5, 0.1)})
	run := a.AddRun(audit.Run{
		Kind: audit.KindMitigate, Source: "adult.csv", Method: "resample", Seed: 42,
		Rows: 5, OutputRows: 10, Output: "outputs/adult.resample.csv",
		Before: sampleResult(5, 0.1), After: sampleResult(10, 0),
	})
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatalf("run not stamped: %+v", run)
	}
	if err := a.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := audit.LoadAudit(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "adult" || len(got.Runs) != 2 {
		t.Fatalf("unexpected audit: %+v", got)
	}
	if got.Runs[1].After.StatisticalParity["gender"] != 0 || got.Runs[1].Seed != 42 {
		t.Fatalf("mitigation run not preserved: %+v", got.Runs[1])
	}
	if got.RootDir() != dir {
		t.Fatalf("root dir %s", got.RootDir())
	}

	r, err := got.Run(run.ID[:8])
	if err != nil || r.Method != "resample" {
		t.Fatalf("lookup by prefix: %v %+v", err, r)
	}

	names, err := audit.List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "adult" {
		t.Fatalf("list: %v", names)
	}
}

func TestReport(t *testing.T) {
	a := audit.NewAudit("empty", "", t.TempDir())
	if !strings.Contains(a.Report(), "(none)") {
		t.Fatalf("expected empty run list")
	}
	a.AddRun(audit.Run{Kind: audit.KindMitigate, Source: "d.csv", Method: "reweight", Rows: 5,
		Before: sampleResult(5, 0.1), After: sampleResult(5, 0.1)})
	rep := a.Report()
	for _, want := range []string{"[AUDIT]", "Runs: 1", "Method: reweight", "[BEFORE / AFTER]"} {
		if !strings.Contains(rep, want) {
			t.Fatalf("report missing %q:\n%s", want, rep)
		}
	}
}

func TestLoadMissingAudit(t *testing.T) {
	if _, err := audit.LoadAudit(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing audit.json")
	}
	names, err := audit.List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(names) != 0 {
		t.Fatalf("list of missing root: %v %v", names, err)
	}
}
