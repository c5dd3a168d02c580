// Package fileset retrieves a project's version-control tracked files
// and filters them through layered include/exclude globs.
package fileset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// Select keeps a tracked file iff it matches at least one include
// pattern, matches no exclude pattern, and still exists on disk under
// projectPath. An empty include list means every file. Tracked paths are
// project-relative slash paths, as produced by Cache.Tracked.
func Select(tracked, include, exclude []string, projectPath, projectName string) []string {
	exclude = NormalizeExcludes(exclude, projectName)

	var selected []string
	for _, file := range tracked {
		if !matchesAny(include, file, true) {
			continue
		}
		if matchesAny(exclude, file, false) {
			continue
		}
		// Guard against stale index entries, e.g. files staged from a
		// symlinked dependency directory that no longer exists.
		if _, err := os.Stat(filepath.Join(projectPath, filepath.FromSlash(file))); err != nil {
			continue
		}
		selected = append(selected, file)
	}
	return selected
}

// NormalizeExcludes rewrites exclude patterns authored with a leaking
// project-name prefix ("flext-core/src/x.py") to project-relative form.
// Tracked-file listings are already project-relative, so such patterns
// could never match as written.
func NormalizeExcludes(exclude []string, projectName string) []string {
	if projectName == "" {
		return exclude
	}

	prefix := projectName + "/"
	out := make([]string, 0, len(exclude))
	for _, pattern := range exclude {
		if rest, ok := strings.CutPrefix(pattern, prefix); ok && rest != "" {
			log.Warn("exclude pattern carries project-name prefix, rewriting",
				"project", projectName, "pattern", pattern, "rewritten", rest)
			out = append(out, rest)
			continue
		}
		out = append(out, pattern)
	}
	return out
}

// matchesAny reports whether file matches any pattern. emptyMeansAll
// controls the empty-list default (true for includes).
func matchesAny(patterns []string, file string, emptyMeansAll bool) bool {
	if len(patterns) == 0 {
		return emptyMeansAll
	}
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, file)
		if err != nil {
			// Patterns are validated at rule-load time; treat a bad one
			// as a non-match rather than failing mid-selection.
			log.Debug("invalid glob skipped during selection", "pattern", pattern)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}
