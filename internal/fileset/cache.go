package fileset

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
)

// DefaultTTL is how long a tracked-file listing stays fresh.
const DefaultTTL = 300 * time.Second

// gitTimeout bounds a single `git ls-files` invocation.
const gitTimeout = 300 * time.Second

// Cache memoizes version-control tracked-file listings per resolved
// project path. It is owned by the session and populate-only during a
// run; entries expire by TTL only.
type Cache struct {
	exec execrun.Runner
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	files   []string
	fetched time.Time
}

// NewCache creates a tracked-file cache. A nil clock uses time.Now.
func NewCache(exec execrun.Runner, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		exec:    exec,
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Tracked returns the version-control tracked files of the project at
// path, project-relative with slash separators. An unreadable repo is an
// infrastructure fault, not a policy outcome.
func (c *Cache) Tracked(ctx context.Context, path string) ([]string, error) {
	key, err := resolve(path)
	if err != nil {
		return nil, faults.WrapInfra(err, "resolve project path %q", path)
	}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.fetched) < c.ttl {
		c.mu.Unlock()
		log.Debug("tracked files served from cache", "path", key, "files", len(e.files))
		return e.files, nil
	}
	c.mu.Unlock()

	res, err := c.exec.Run(ctx, execrun.Spec{
		Command: "git",
		Args:    []string{"ls-files"},
		Dir:     key,
		Timeout: gitTimeout,
	})
	if err != nil {
		return nil, faults.WrapInfra(err, "run git ls-files in %q", key)
	}
	if res.TimedOut {
		return nil, faults.Infraf("git ls-files timed out in %q", key)
	}
	if res.ExitCode != 0 {
		return nil, faults.Infraf("git ls-files exited %d in %q: %s",
			res.ExitCode, key, strings.TrimSpace(res.Stderr))
	}

	var files []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{files: files, fetched: c.now()}
	c.mu.Unlock()

	log.Debug("tracked files fetched", "path", key, "files", len(files))
	return files, nil
}

// resolve canonicalizes a project path so symlinked checkouts share one
// cache entry.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
