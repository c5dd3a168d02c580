// Package workspace discovers the projects of a multi-project checkout
// and resolves project names to paths. Discovery is a pure filesystem
// read performed once per session.
package workspace

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/skillgate/skillgate/internal/faults"
)

// Kind classifies how a project participates in the workspace.
type Kind string

const (
	// KindRoot is the workspace root itself, always an implicit project.
	KindRoot Kind = "root"
	// KindSubmodule is a child project declared in .gitmodules.
	KindSubmodule Kind = "submodule"
	// KindExternal is a qualifying child project not declared as a submodule.
	KindExternal Kind = "external"
)

// Project is an immutable workspace member.
type Project struct {
	Name string
	Path string
	Kind Kind
}

// Manifest files that mark a directory as a project.
var manifestFiles = []string{
	"pyproject.toml",
	"package.json",
	"go.mod",
}

// Locator holds the discovered projects of one workspace.
type Locator struct {
	root     string
	byName   map[string]Project
	projects []Project
}

// Discover scans root's immediate children for projects. A directory
// qualifies iff it is a version-control checkout, declares a build entry
// point, and declares a project manifest. The root is always included.
func Discover(root string) (*Locator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, faults.WrapInfra(err, "resolve workspace root %q", root)
	}

	l := &Locator{
		root:   abs,
		byName: make(map[string]Project),
	}

	rootProject := Project{Name: filepath.Base(abs), Path: abs, Kind: KindRoot}
	l.add(rootProject)

	submodules := declaredSubmodules(abs)

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, faults.WrapInfra(err, "read workspace root %q", abs)
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(abs, entry.Name())
		if !qualifies(path) {
			continue
		}

		kind := KindExternal
		if submodules[entry.Name()] {
			kind = KindSubmodule
		}
		l.add(Project{Name: entry.Name(), Path: path, Kind: kind})
	}

	sort.Slice(l.projects, func(i, j int) bool {
		return l.projects[i].Name < l.projects[j].Name
	})

	log.Debug("workspace discovered", "root", abs, "projects", len(l.projects))
	return l, nil
}

// Root returns the workspace root path.
func (l *Locator) Root() string {
	return l.root
}

// Projects returns all discovered projects, sorted by name.
func (l *Locator) Projects() []Project {
	return l.projects
}

// Lookup resolves a project name. Unknown names are a usage fault.
func (l *Locator) Lookup(name string) (Project, error) {
	p, ok := l.byName[name]
	if !ok {
		known := make([]string, 0, len(l.projects))
		for _, proj := range l.projects {
			known = append(known, proj.Name)
		}
		return Project{}, faults.Usagef("unknown project %q (known: %s)", name, strings.Join(known, ", "))
	}
	return p, nil
}

func (l *Locator) add(p Project) {
	if _, exists := l.byName[p.Name]; exists {
		log.Warn("duplicate project name, keeping first", "name", p.Name)
		return
	}
	l.byName[p.Name] = p
	l.projects = append(l.projects, p)
}

// qualifies reports whether dir is a project: VCS checkout + build entry
// point + project manifest.
func qualifies(dir string) bool {
	if !exists(filepath.Join(dir, ".git")) {
		return false
	}
	if !exists(filepath.Join(dir, "Makefile")) {
		return false
	}
	for _, m := range manifestFiles {
		if exists(filepath.Join(dir, m)) {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// declaredSubmodules parses .gitmodules at the workspace root and returns
// the set of declared paths. A missing or unreadable file yields an empty
// set; submodule classification degrades to external.
func declaredSubmodules(root string) map[string]bool {
	paths := make(map[string]bool)

	f, err := os.Open(filepath.Join(root, ".gitmodules"))
	if err != nil {
		return paths
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if after, ok := strings.CutPrefix(line, "path"); ok {
			after = strings.TrimSpace(after)
			if value, ok := strings.CutPrefix(after, "="); ok {
				if p := strings.TrimSpace(value); p != "" {
					paths[p] = true
				}
			}
		}
	}
	return paths
}
