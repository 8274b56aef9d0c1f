package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abAudit  string
	abOutDir string
	abFormat string
	abJobs   int
	abQuiet  bool
	abLoad   loadFlags
)

type batchResult struct {
	path   string
	rows   int
	result *fairness.Result
}

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		if _, err := abLoad.options(); err != nil {
			return err
		}

		var a *audit.Audit
		if abAudit != "" {
			aa, err := loadAuditByName(abAudit)
			if err != nil {
				return err
			}
			a = aa
		}

		jobs := abJobs
		if jobs <= 0 {
			jobs = runtime.NumCPU()
		}
		results := make([]batchResult, len(files))
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(jobs)
		for i, path := range files {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				tbl, err := abLoad.loadTable(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results[i] = batchResult{path: path, rows: tbl.Len(), result: fairness.Analyze(tbl, fairnessOptions())}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return err
			}
		}
		total := len(results)
		for i, r := range results {
			if !abQuiet {
				fmt.Printf("[%d/%d] %s (%d rows)\n", i+1, total, filepath.Base(r.path), r.rows)
			}
			if a != nil {
				src, _ := filepath.Abs(r.path)
				a.AddRun(audit.Run{Kind: audit.KindAnalyze, Source: src, Rows: r.rows, Before: r.result})
			}
			out := outputOptions{Format: abFormat, Quiet: abQuiet}
			if abOutDir != "" {
				out.OutputPath = uniqueReportPath(abOutDir, r.path, reportExt(abFormat))
			} else if abQuiet {
				continue
			}
			if err := formatAndWriteOutput(r.result, r.result.Markdown(), out); err != nil {
				return err
			}
		}
		if a != nil {
			if err := a.Save(); err != nil {
				return err
			}
			if !abQuiet {
				fmt.Printf("✓ Recorded %d analyses in audit '%s'\n", total, a.Name)
			}
		}
		return nil
	},
}

// expandInputs resolves globs, keeps literal paths that exist, and drops duplicates.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func reportExt(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return ".bias.json"
	case "yaml", "yml":
		return ".bias.yaml"
	}
	return ".bias.md"
}

// uniqueReportPath names the report after the input file, adding __2, __3, ... when a
// report of the same name already exists.
func uniqueReportPath(dir, input, ext string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	outFile := filepath.Join(dir, stem+ext)
	if _, err := os.Stat(outFile); err != nil {
		return outFile
	}
	for idx := 2; ; idx++ {
		cand := filepath.Join(dir, fmt.Sprintf("%s__%d%s", stem, idx, ext))
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			if !abQuiet {
				fmt.Printf("⚠ Detected existing report, writing to %s to avoid overwrite.\n", filepath.Base(cand))
			}
			return cand
		}
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVarP(&abAudit, "audit", "a", "", "audit name to record the analyses in")
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write one report per input")
	analyzeBatchCmd.Flags().StringVarP(&abFormat, "format", "f", "markdown", "report format: markdown|json|yaml")
	analyzeBatchCmd.Flags().IntVarP(&abJobs, "jobs", "j", 0, "files analyzed in parallel (0 = number of CPUs)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	abLoad.register(analyzeBatchCmd)
}
