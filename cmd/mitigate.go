package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/KaramelBytes/biasloom-cli/internal/chart"
	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/KaramelBytes/biasloom-cli/internal/mitigation"
	"github.com/spf13/cobra"
)

// Mitigation methods accepted by --method.
const (
	methodResample  = "resample"
	methodReweight  = "reweight"
	methodExpand    = "expand"
	methodSynthetic = "synthetic"
)

var (
	mitMethod     string
	mitSeed       uint64
	mitOutputPath string
	mitAudit      string
	mitChart      bool
	mitQuiet      bool
	mitLoad       loadFlags
)

// mitigationRun is the method-independent part of a mitigation outcome.
type mitigationRun struct {
	table  *dataset.Table
	after  *fairness.Result
	note   string
	report string
}

var mitigateCmd = &cobra.Command{
	Use:   "mitigate <file>",
	Short: "Rebalance a dataset and report metrics before and after",
	Long: `Rebalance a dataset with one method and write the result as CSV:

  resample   equalize combined sensitive-group sizes by sampling
  reweight   add a weight column inversely proportional to group size
  expand     reweight, then repeat each row round(weight) times
  synthetic  ADASYN oversampling of the minority target class`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		method := strings.ToLower(strings.TrimSpace(mitMethod))
		switch method {
		case methodResample, methodReweight, methodExpand, methodSynthetic:
		default:
			return fmt.Errorf("unsupported --method: %s (use resample|reweight|expand|synthetic)", mitMethod)
		}

		tbl, err := mitLoad.loadTable(path)
		if err != nil {
			return err
		}
		opt := mitigationOptions()
		if cmd.Flags().Changed("seed") {
			opt.Seed = mitSeed
		}
		before := fairness.Analyze(tbl, opt.Identify)

		run, err := runMitigation(method, tbl, opt)
		if err != nil {
			return err
		}

		var a *audit.Audit
		if mitAudit != "" {
			if a, err = loadAuditByName(mitAudit); err != nil {
				return err
			}
		}
		outPath, err := mitigationOutputPath(path, method, a)
		if err != nil {
			return err
		}
		if err := dataset.SaveCSV(outPath, run.table, ','); err != nil {
			return err
		}
		fmt.Printf("✓ Wrote %d rows (%s) to %s\n", run.table.Len(), method, outPath)
		if run.note != "" {
			fmt.Printf("⚠ Warning: %s\n", run.note)
		}

		if !mitQuiet {
			fmt.Println()
			if run.report != "" {
				fmt.Print(run.report)
			}
			if run.after != nil {
				fmt.Print(fairness.Compare(before, run.after).Markdown())
				if mitChart {
					fmt.Println()
					fmt.Print(chart.Result(run.after, chartOptions()))
				}
			}
		}

		if a != nil {
			src, _ := filepath.Abs(path)
			a.AddRun(audit.Run{
				Kind:       audit.KindMitigate,
				Source:     src,
				Method:     method,
				Seed:       opt.Seed,
				Rows:       tbl.Len(),
				OutputRows: run.table.Len(),
				Output:     outPath,
				Note:       run.note,
				Before:     before,
				After:      run.after,
			})
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("✓ Recorded mitigation in audit '%s'\n", a.Name)
		}
		return nil
	},
}

func runMitigation(method string, tbl *dataset.Table, opt mitigation.Options) (*mitigationRun, error) {
	run := &mitigationRun{}
	switch method {
	case methodResample:
		out, err := mitigation.Resample(tbl, opt)
		if err != nil {
			return nil, err
		}
		run.table = out.Table
		if out.Skipped != nil {
			run.note = out.Skipped.Error()
		} else {
			run.report = fmt.Sprintf("[RESAMPLE]\nTarget group size: %d (%d groups)\n\n", out.TargetSize, len(out.Groups))
		}
	case methodReweight:
		out, err := mitigation.Reweight(tbl, opt)
		if err != nil {
			return nil, err
		}
		run.table = out.Table
		if out.Fallback != nil {
			run.note = out.Fallback.Error()
		}
		run.report = weightSharesMarkdown(out)
		// Weights leave rows untouched; metrics after reweighting equal those before.
		return run, nil
	case methodExpand:
		out, err := mitigation.ExpandByWeight(tbl, opt)
		if err != nil {
			return nil, err
		}
		run.table = out.Table
		if out.Weights.Fallback != nil {
			run.note = out.Weights.Fallback.Error()
		}
		if len(out.Dropped) > 0 {
			run.note = fmt.Sprintf("%d group(s) rounded to zero rows and were dropped: %s",
				len(out.Dropped), strings.Join(out.Dropped, ", "))
		}
	case methodSynthetic:
		out, err := mitigation.Oversample(tbl, opt)
		if err != nil {
			return nil, err
		}
		run.table = out.Table
		if out.Skipped != nil {
			run.note = out.Skipped.Error()
		} else {
			run.report = fmt.Sprintf("[SYNTHETIC]\nTarget: %s (minority class %g)\nNeighbors: %d\nGenerated rows: %d\nNearest-category reconstructions below 0.5: %d\n\n",
				out.Target, out.MinorityClass, out.Neighbors, out.Generated, out.Ambiguous)
		}
	}
	run.after = fairness.Analyze(run.table, opt.Identify)
	return run, nil
}

func weightSharesMarkdown(wt *mitigation.WeightedTable) string {
	var b strings.Builder
	b.WriteString("[WEIGHTED SHARES]\n")
	if len(wt.Shares) == 0 {
		b.WriteString("- no sensitive attributes\n\n")
		return b.String()
	}
	for _, s := range wt.Shares {
		b.WriteString(fmt.Sprintf("- %s=%s: weight %.4f (%.1f%%)\n", s.Attribute, s.Value, s.Weight, s.Share*100))
	}
	b.WriteString("\n")
	return b.String()
}

// mitigationOutputPath returns --output, else <audit>/outputs/<stem>.<method>.csv, else
// <stem>.<method>.csv next to the input.
func mitigationOutputPath(input, method string, a *audit.Audit) (string, error) {
	if mitOutputPath != "" {
		return mitOutputPath, nil
	}
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "." + method + ".csv"
	if a != nil {
		dir := a.OutputDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return filepath.Join(dir, name), nil
	}
	return filepath.Join(filepath.Dir(input), name), nil
}

func init() {
	rootCmd.AddCommand(mitigateCmd)
	mitigateCmd.Flags().StringVarP(&mitMethod, "method", "m", methodResample, "resample|reweight|expand|synthetic")
	mitigateCmd.Flags().Uint64Var(&mitSeed, "seed", mitigation.DefaultSeed, "random seed (overrides config)")
	mitigateCmd.Flags().StringVarP(&mitOutputPath, "output", "o", "", "path of the rebalanced CSV")
	mitigateCmd.Flags().StringVarP(&mitAudit, "audit", "a", "", "audit name to record the mitigation in")
	mitigateCmd.Flags().BoolVar(&mitChart, "chart", false, "print bar charts of the metrics after mitigation")
	mitigateCmd.Flags().BoolVar(&mitQuiet, "quiet", false, "only report the written file")
	mitLoad.register(mitigateCmd)
}
