package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/biasloom-cli/internal/chart"
	"github.com/KaramelBytes/biasloom-cli/internal/dataset"
	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/KaramelBytes/biasloom-cli/internal/mitigation"
	"github.com/KaramelBytes/biasloom-cli/internal/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// loadFlags are the dataset loading flags shared by analyze, analyze-batch and mitigate.
type loadFlags struct {
	delimiter    string
	decimal      string
	thousands    string
	maxRows      int
	header       []string
	headerPreset string
	naValues     []string
	sheetName    string
	sheetIndex   int
}

func (lf *loadFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&lf.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (default from config, else by extension)")
	c.Flags().StringVar(&lf.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	c.Flags().StringVar(&lf.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	c.Flags().IntVar(&lf.maxRows, "max-rows", 0, "maximum rows to load (0 = config value, else unlimited)")
	c.Flags().StringSliceVar(&lf.header, "header", nil, "column names for a headerless file (comma-separated)")
	c.Flags().StringVar(&lf.headerPreset, "header-preset", "", "column names of a known headerless dataset: adult")
	c.Flags().StringSliceVar(&lf.naValues, "na-values", nil, "cell texts treated as missing (default from config)")
	c.Flags().StringVar(&lf.sheetName, "sheet-name", "", "XLSX: sheet name to load")
	c.Flags().IntVar(&lf.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|", "pipe":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported --delimiter: %s", s)
}

func (lf *loadFlags) options() (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	delim := lf.delimiter
	if delim == "" && cfg != nil {
		delim = cfg.Delimiter
	}
	d, err := parseDelimiter(delim)
	if err != nil {
		return opt, err
	}
	opt.Delimiter = d
	switch {
	case lf.maxRows > 0:
		opt.MaxRows = lf.maxRows
	case cfg != nil && cfg.MaxRows > 0:
		opt.MaxRows = cfg.MaxRows
	}
	switch {
	case len(lf.naValues) > 0:
		opt.NAValues = lf.naValues
	case cfg != nil && len(cfg.NAValues) > 0:
		opt.NAValues = cfg.NAValues
	}
	if lf.headerPreset != "" {
		h, ok := dataset.HeaderPresets[strings.ToLower(lf.headerPreset)]
		if !ok {
			return opt, fmt.Errorf("unknown --header-preset: %s", lf.headerPreset)
		}
		opt.Header = h
	}
	if len(lf.header) > 0 {
		opt.Header = lf.header
	}
	switch strings.ToLower(strings.TrimSpace(lf.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", lf.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(lf.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", lf.thousands)
	}
	return opt, nil
}

// loadTable picks the reader by extension.
func (lf *loadFlags) loadTable(path string) (*dataset.Table, error) {
	opt, err := lf.options()
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return dataset.LoadXLSX(path, opt, lf.sheetName, lf.sheetIndex)
	}
	return dataset.LoadCSV(path, opt)
}

func fairnessOptions() fairness.Options {
	opt := fairness.DefaultOptions()
	if cfg != nil && cfg.MaxCategories > 0 {
		opt.MaxCategories = cfg.MaxCategories
	}
	return opt
}

// mitigationOptions starts from the defaults and applies every positive config value.
func mitigationOptions() mitigation.Options {
	opt := mitigation.DefaultOptions()
	opt.Identify = fairnessOptions()
	if cfg == nil {
		return opt
	}
	opt.Seed = cfg.Seed
	if cfg.GroupSeparator != "" {
		opt.Separator = cfg.GroupSeparator
	}
	if cfg.ResampleMinSize > 0 {
		opt.MinTargetSize = cfg.ResampleMinSize
	}
	if cfg.BalanceTolerance > 0 {
		opt.BalanceTolerance = cfg.BalanceTolerance
	}
	if cfg.WeightColumn != "" {
		opt.WeightColumn = cfg.WeightColumn
	}
	if cfg.WeightTolerance > 0 {
		opt.WeightTolerance = cfg.WeightTolerance
	}
	if cfg.SyntheticMaxNeighbors > 0 {
		opt.MaxNeighbors = cfg.SyntheticMaxNeighbors
	}
	return opt
}

// chartOptions colours charts only when stdout is a terminal.
func chartOptions() chart.Options {
	opt := chart.DefaultOptions()
	if cfg != nil && cfg.ChartWidth > 0 {
		opt.Width = cfg.ChartWidth
	}
	fd := os.Stdout.Fd()
	opt.Color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return opt
}

type outputOptions struct {
	Format     string
	OutputPath string
	Quiet      bool
	Writer     io.Writer
}

// renderReport encodes v as JSON or YAML, or returns the Markdown rendering.
func renderReport(v any, markdown, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "markdown", "md", "text":
		return []byte(markdown), nil
	case "json":
		return utils.PrettyJSON(v)
	case "yaml", "yml":
		b, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported --format: %s (use markdown|json|yaml)", format)
}

// formatAndWriteOutput writes the rendered report to OutputPath, or to Writer when no
// path is given.
func formatAndWriteOutput(v any, markdown string, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	b, err := renderReport(v, markdown, opts.Format)
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		fmt.Fprintln(w, strings.TrimRight(string(b), "\n"))
		return nil
	}
	if err := utils.SafeWriteFile(opts.OutputPath, b); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if !opts.Quiet {
		fmt.Fprintf(w, "✓ Wrote report to %s\n", opts.OutputPath)
	}
	return nil
}
