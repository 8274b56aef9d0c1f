package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/biasloom-cli/internal/utils"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	p := filepath.Join(dir, "out.csv")
	if err := utils.SafeWriteFile(p, []byte("a\n")); err != nil {
		t.Fatal(err)
	}
	if err := utils.SafeWriteFile(p, []byte("b\n")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "b\n" {
		t.Fatalf("got %q", b)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := utils.PrettyJSON(map[string]int{"rows": 5})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "\n  \"rows\": 5\n") {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := utils.ExpandHome("~/.biasloom/audits")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".biasloom", "audits"); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	got, err = utils.ExpandHome("/tmp/x/../y")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/y" {
		t.Fatalf("got %s", got)
	}
}

func TestFindAuditRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, utils.AuditFileName), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "outputs", "x")
	if err := utils.EnsureDir(nested); err != nil {
		t.Fatal(err)
	}
	got, err := utils.FindAuditRoot(nested)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got != root {
		t.Fatalf("got %s want %s", got, root)
	}
	if _, err := utils.FindAuditRoot(t.TempDir()); !errors.Is(err, utils.ErrNoAuditRoot) {
		t.Fatalf("expected ErrNoAuditRoot outside an audit, got %v", err)
	}
}
