package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	"github.com/KaramelBytes/biasloom-cli/internal/chart"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/spf13/cobra"
)

var (
	anaAudit      string
	anaOutputPath string
	anaFormat     string
	anaChart      bool
	anaNote       string
	anaLoad       loadFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Report bias metrics for a CSV/TSV/XLSX dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		tbl, err := anaLoad.loadTable(path)
		if err != nil {
			return err
		}
		res := fairness.Analyze(tbl, fairnessOptions())
		if len(res.SensitiveAttributes) == 0 {
			fmt.Printf("⚠ Warning: no categorical column with fewer than %d values; nothing to measure\n", fairnessOptions().MaxCategories)
		}

		md := res.Markdown()
		if anaChart {
			md += "\n" + chart.Result(res, chartOptions())
		}
		if err := formatAndWriteOutput(res, md, outputOptions{Format: anaFormat, OutputPath: anaOutputPath}); err != nil {
			return err
		}

		if anaAudit != "" {
			a, err := loadAuditByName(anaAudit)
			if err != nil {
				return err
			}
			src, _ := filepath.Abs(path)
			a.AddRun(audit.Run{Kind: audit.KindAnalyze, Source: src, Rows: tbl.Len(), Note: anaNote, Before: res})
			if err := a.Save(); err != nil {
				return err
			}
			fmt.Printf("✓ Recorded analysis in audit '%s'\n", a.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaAudit, "audit", "a", "", "audit name to record the analysis in")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "report format: markdown|json|yaml")
	analyzeCmd.Flags().BoolVar(&anaChart, "chart", false, "append bar charts of each metric (markdown only)")
	analyzeCmd.Flags().StringVar(&anaNote, "note", "", "note stored with the audit run")
	anaLoad.register(analyzeCmd)
}
