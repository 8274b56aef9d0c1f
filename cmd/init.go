package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/biasloom-cli/internal/audit"
	cfgpkg "github.com/KaramelBytes/biasloom-cli/internal/config"
	"github.com/KaramelBytes/biasloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init <audit-name>",
	Short: "Initialize a new bias audit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "." || name == ".." || filepath.Base(name) != name {
			return fmt.Errorf("invalid audit name %q: use a plain directory name", name)
		}
		root, err := defaultAuditsDir()
		if err != nil {
			return err
		}
		dir := filepath.Join(root, name)
		if err := ensureFreshAuditDir(dir); err != nil {
			return err
		}
		if err := audit.NewAudit(name, initDescription, dir).Save(); err != nil {
			return err
		}
		fmt.Printf("✓ Audit initialized: %s\n", dir)
		return nil
	},
}

// ensureFreshAuditDir fails if dir already holds an audit or any other files.
func ensureFreshAuditDir(dir string) error {
	entries, err := os.ReadDir(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("inspect audit directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == utils.AuditFileName {
			return fmt.Errorf("audit already exists at %s", dir)
		}
	}
	if len(entries) > 0 {
		return fmt.Errorf("directory %s already exists and is not empty; refusing to initialize audit", dir)
	}
	return nil
}

// defaultAuditsDir returns audits_dir from config, or ~/.biasloom/audits, creating it.
func defaultAuditsDir() (string, error) {
	var dir string
	if cfg != nil && cfg.AuditsDir != "" {
		d, err := utils.ExpandHome(cfg.AuditsDir)
		if err != nil {
			return "", err
		}
		dir = d
	} else {
		base, err := cfgpkg.Dir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "audits")
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("create audits dir: %w", err)
	}
	return dir, nil
}

// resolveAuditDirByName maps an audit name to its directory. A path inside an existing
// audit directory is accepted as well.
func resolveAuditDirByName(name string) (string, error) {
	if name == "" {
		return "", errors.New("audit name is required")
	}
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return utils.FindAuditRoot(name)
	}
	root, err := defaultAuditsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name), nil
}

func loadAuditByName(name string) (*audit.Audit, error) {
	dir, err := resolveAuditDirByName(name)
	if err != nil {
		return nil, err
	}
	return audit.LoadAudit(dir)
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVarP(&initDescription, "desc", "d", "", "audit description")
}
