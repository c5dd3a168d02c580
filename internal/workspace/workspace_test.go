package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skillgate/skillgate/internal/faults"
)

// makeProject creates a qualifying project directory under root.
func makeProject(t *testing.T, root, name, manifest string) {
	t.Helper()
	dir := filepath.Join(root, name)
	for _, sub := range []string{".git"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{"Makefile", manifest} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscoverClassifiesProjects(t *testing.T) {
	root := t.TempDir()

	makeProject(t, root, "flext-core", "pyproject.toml")
	makeProject(t, root, "flext-cli", "pyproject.toml")
	makeProject(t, root, "vendored-js", "package.json")

	gitmodules := `[submodule "flext-core"]
	path = flext-core
	url = https://example.com/flext-core.git
[submodule "flext-cli"]
	path = flext-cli
	url = https://example.com/flext-cli.git
`
	if err := os.WriteFile(filepath.Join(root, ".gitmodules"), []byte(gitmodules), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	// root + 3 children
	if got := len(l.Projects()); got != 4 {
		t.Fatalf("Projects() returned %d, want 4", got)
	}

	tests := []struct {
		name string
		kind Kind
	}{
		{filepath.Base(root), KindRoot},
		{"flext-core", KindSubmodule},
		{"flext-cli", KindSubmodule},
		{"vendored-js", KindExternal},
	}
	for _, tt := range tests {
		p, err := l.Lookup(tt.name)
		if err != nil {
			t.Fatalf("Lookup(%q) error = %v", tt.name, err)
		}
		if p.Kind != tt.kind {
			t.Errorf("Lookup(%q).Kind = %q, want %q", tt.name, p.Kind, tt.kind)
		}
	}
}

func TestDiscoverSkipsNonQualifyingDirs(t *testing.T) {
	root := t.TempDir()

	// Checkout without a Makefile.
	noBuild := filepath.Join(root, "no-build")
	if err := os.MkdirAll(filepath.Join(noBuild, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(noBuild, "pyproject.toml"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	// Makefile and manifest without a checkout.
	noVCS := filepath.Join(root, "no-vcs")
	if err := os.MkdirAll(noVCS, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"Makefile", "go.mod"} {
		if err := os.WriteFile(filepath.Join(noVCS, f), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	// Hidden directory, even if it qualifies.
	makeProject(t, root, ".staging", "go.mod")

	l, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if got := len(l.Projects()); got != 1 {
		t.Errorf("Projects() returned %d, want only the root", got)
	}
}

func TestDiscoverGitFileCheckout(t *testing.T) {
	// Submodule checkouts have a .git file, not a directory.
	root := t.TempDir()
	dir := filepath.Join(root, "sub")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{".git", "Makefile", "pyproject.toml"} {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(""), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	l, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if _, err := l.Lookup("sub"); err != nil {
		t.Errorf("Lookup(sub) error = %v, want project discovered", err)
	}
}

func TestLookupUnknownIsUsageFault(t *testing.T) {
	l, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	_, err = l.Lookup("nope")
	if err == nil {
		t.Fatal("Lookup(nope) should fail")
	}
	if !faults.IsUsage(err) {
		t.Errorf("Lookup error should be a usage fault, got %v", err)
	}
}
