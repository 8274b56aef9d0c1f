package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/biasloom-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set BiasLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Println("No config loaded")
			return nil
		}
		if cfg.Delimiter != "" {
			fmt.Printf("delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.MaxRows > 0 {
			fmt.Printf("max_rows: %d\n", cfg.MaxRows)
		}
		fmt.Printf("na_values: %s\n", strings.Join(cfg.NAValues, ","))
		fmt.Printf("max_categories: %d\n", cfg.MaxCategories)
		fmt.Printf("group_separator: %q\n", cfg.GroupSeparator)
		fmt.Printf("seed: %d\n", cfg.Seed)
		fmt.Printf("resample_min_size: %d\n", cfg.ResampleMinSize)
		fmt.Printf("balance_tolerance: %.3f\n", cfg.BalanceTolerance)
		fmt.Printf("weight_column: %s\n", cfg.WeightColumn)
		fmt.Printf("weight_tolerance: %g\n", cfg.WeightTolerance)
		fmt.Printf("synthetic_max_neighbors: %d\n", cfg.SyntheticMaxNeighbors)
		fmt.Printf("audits_dir: %s\n", cfg.AuditsDir)
		fmt.Printf("chart_width: %d\n", cfg.ChartWidth)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Println("Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	posFloat := func() (float64, error) {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f <= 0 {
			return 0, fmt.Errorf("invalid positive float for %s: %v", key, val)
		}
		return f, nil
	}
	var err error
	switch key {
	case "delimiter":
		if _, err := parseDelimiter(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "max_rows":
		c.MaxRows, err = atoi()
	case "na_values":
		c.NAValues = strings.Split(val, ",")
	case "max_categories":
		c.MaxCategories, err = atoi()
	case "group_separator":
		if val == "" {
			return fmt.Errorf("group_separator must not be empty")
		}
		c.GroupSeparator = val
	case "seed":
		s, perr := strconv.ParseUint(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid seed: %w", perr)
		}
		c.Seed = s
	case "resample_min_size":
		c.ResampleMinSize, err = atoi()
	case "balance_tolerance":
		c.BalanceTolerance, err = posFloat()
	case "weight_column":
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("weight_column must not be empty")
		}
		c.WeightColumn = val
	case "weight_tolerance":
		c.WeightTolerance, err = posFloat()
	case "synthetic_max_neighbors":
		c.SyntheticMaxNeighbors, err = atoi()
	case "audits_dir":
		c.AuditsDir = val
	case "chart_width":
		c.ChartWidth, err = atoi()
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug|info|warn|error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
