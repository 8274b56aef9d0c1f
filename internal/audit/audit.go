// Package audit persists named bias audits: a directory holding audit.json with the
// history of analyses and mitigations run against one or more datasets.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/biasloom-cli/internal/fairness"
	"github.com/KaramelBytes/biasloom-cli/internal/utils"
	"github.com/google/uuid"
)

// Audit represents a bias audit persisted on disk.
type Audit struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Runs        []*Run    `json:"runs"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Not serialized: on-disk location of the audit.json
	rootDir string `json:"-"`
}

// NewAudit constructs an in-memory audit. Call Save() to persist.
func NewAudit(name, description, rootDir string) *Audit {
	return &Audit{
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadAudit loads an audit.json from the provided directory.
func LoadAudit(dir string) (*Audit, error) {
	path := filepath.Join(dir, utils.AuditFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("audit not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read audit: %w", err)
	}
	var a Audit
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse audit: %w", err)
	}
	a.rootDir = dir
	return &a, nil
}

// List returns the names of all audits under root, sorted.
func List(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), utils.AuditFileName)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RootDir returns the on-disk audit directory path.
func (a *Audit) RootDir() string { return a.rootDir }

// OutputDir is where mitigated datasets of this audit are written.
func (a *Audit) OutputDir() string { return filepath.Join(a.rootDir, "outputs") }

// Save writes audit.json using atomic write.
func (a *Audit) Save() error {
	if a.rootDir == "" {
		return errors.New("audit root directory not set")
	}
	if err := utils.EnsureDir(a.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	a.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(a)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(a.rootDir, utils.AuditFileName), data)
}

// AddRun assigns an ID and timestamp to r and appends it.
func (a *Audit) AddRun(r Run) *Run {
	r.ID = uuid.NewString()
	r.CreatedAt = time.Now()
	a.Runs = append(a.Runs, &r)
	a.UpdatedAt = time.Now()
	return &r
}

// Run returns the run with the given ID or ID prefix.
func (a *Audit) Run(id string) (*Run, error) {
	var found *Run
	for _, r := range a.Runs {
		if r.ID == id {
			return r, nil
		}
		if id != "" && strings.HasPrefix(r.ID, id) {
			if found != nil {
				return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
			}
			found = r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("run %q not found in audit %s", id, a.Name)
	}
	return found, nil
}

// Report renders the audit history, newest run last.
func (a *Audit) Report() string {
	var sb strings.Builder
	sb.WriteString("[AUDIT]\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", a.Name))
	if a.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", a.Description))
	}
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", len(a.Runs)))
	sb.WriteString("[RUNS]\n")
	if len(a.Runs) == 0 {
		sb.WriteString("(none)\n")
		return sb.String()
	}
	for _, r := range a.Runs {
		sb.WriteString(fmt.Sprintf("--- %s %s ---\n", r.ID[:min(8, len(r.ID))], r.Kind))
		sb.WriteString(fmt.Sprintf("Source: %s (%d rows)\n", r.Source, r.Rows))
		if r.Method != "" {
			sb.WriteString(fmt.Sprintf("Method: %s (seed %d)\n", r.Method, r.Seed))
		}
		if r.Output != "" {
			sb.WriteString(fmt.Sprintf("Output: %s (%d rows)\n", r.Output, r.OutputRows))
		}
		if r.Note != "" {
			sb.WriteString(fmt.Sprintf("Note: %s\n", r.Note))
		}
		switch {
		case r.Before != nil && r.After != nil:
			sb.WriteString(fairness.Compare(r.Before, r.After).Markdown())
		case r.Before != nil:
			sb.WriteString(r.Before.Markdown())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
