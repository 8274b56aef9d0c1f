package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset loading
	Delimiter string   `mapstructure:"delimiter" yaml:"delimiter"`
	MaxRows   int      `mapstructure:"max_rows" yaml:"max_rows"`
	NAValues  []string `mapstructure:"na_values" yaml:"na_values"`

	// Attribute identification
	MaxCategories int `mapstructure:"max_categories" yaml:"max_categories"`

	// Mitigation
	GroupSeparator        string  `mapstructure:"group_separator" yaml:"group_separator"`
	Seed                  uint64  `mapstructure:"seed" yaml:"seed"`
	ResampleMinSize       int     `mapstructure:"resample_min_size" yaml:"resample_min_size"`
	BalanceTolerance      float64 `mapstructure:"balance_tolerance" yaml:"balance_tolerance"`
	WeightColumn          string  `mapstructure:"weight_column" yaml:"weight_column"`
	WeightTolerance       float64 `mapstructure:"weight_tolerance" yaml:"weight_tolerance"`
	SyntheticMaxNeighbors int     `mapstructure:"synthetic_max_neighbors" yaml:"synthetic_max_neighbors"`

	// Output
	AuditsDir  string `mapstructure:"audits_dir" yaml:"audits_dir"`
	ChartWidth int    `mapstructure:"chart_width" yaml:"chart_width"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.biasloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".biasloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.biasloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BIASLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("delimiter", "")
	v.SetDefault("max_rows", 0)
	v.SetDefault("na_values", []string{"NA", "N/A", "NaN", "?"})
	v.SetDefault("max_categories", 10)
	v.SetDefault("group_separator", "|")
	v.SetDefault("seed", 42)
	v.SetDefault("resample_min_size", 100)
	v.SetDefault("balance_tolerance", 0.1)
	v.SetDefault("weight_column", "weight")
	v.SetDefault("weight_tolerance", 1e-6)
	v.SetDefault("synthetic_max_neighbors", 3)
	v.SetDefault("audits_dir", "")
	v.SetDefault("chart_width", 40)
	v.SetDefault("log_level", "info")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve audits_dir default: ~/.biasloom/audits
	if c.AuditsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.AuditsDir = filepath.Join(dir, "audits")
	}
	return &c, nil
}
