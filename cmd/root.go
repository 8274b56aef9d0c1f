package cmd

import (
	"fmt"
	"log/slog"
	"os"

	cfgpkg "github.com/KaramelBytes/biasloom-cli/internal/config"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "biasloom",
	Short: "BiasLoom CLI: measure and mitigate group bias in tabular datasets",
	Long: `BiasLoom identifies sensitive attributes and the target of a tabular dataset, reports
statistical parity, disparate impact and equal opportunity per attribute, and rebalances the
data by resampling, reweighting or synthetic oversampling of the minority class.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.biasloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		setupLogging("")
		return
	}
	cfg = c
	setupLogging(cfg.LogLevel)
}

// setupLogging routes slog through a charm console handler on stderr. --debug wins over log_level.
func setupLogging(level string) {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	if debug {
		lvl = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:  lvl,
		Prefix: "biasloom",
	})
	slog.SetDefault(slog.New(handler))
}
