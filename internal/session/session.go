// Package session drives validation of one or many skills over a
// workspace and folds the results into a single process exit code.
package session

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/skillgate/skillgate/internal/config"
	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/fileset"
	"github.com/skillgate/skillgate/internal/history"
	"github.com/skillgate/skillgate/internal/report"
	"github.com/skillgate/skillgate/internal/rules"
	"github.com/skillgate/skillgate/internal/validator"
	"github.com/skillgate/skillgate/internal/workspace"
)

// Exit codes, ordered by severity. The worst outcome across all skills
// wins.
const (
	ExitPass  = 0
	ExitFail  = 1
	ExitUsage = 2
	ExitInfra = 3
)

// Outcome is the result of validating one skill.
type Outcome struct {
	Skill  string
	Report *report.Report
	Err    error
}

// Options selects what one session run validates.
type Options struct {
	// Skill names a single skill under the skills root; empty with All
	// validates every skill found there.
	Skill          string
	All            bool
	Mode           validator.Mode
	UpdateBaseline bool
	// Projects restricts scanning to these workspace projects.
	Projects []string
}

// Session holds the shared machinery of one invocation: the discovered
// workspace, the tracked-file cache, and the run log.
type Session struct {
	cfg     *config.Config
	locator *workspace.Locator
	cache   *fileset.Cache
	exec    execrun.Runner
	store   *history.Store
}

// New discovers the workspace and prepares a session. The history
// store is optional; failing to open it degrades to logging.
func New(cfg *config.Config, exec execrun.Runner) (*Session, error) {
	locator, err := workspace.Discover(cfg.Workspace.Root)
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:     cfg,
		locator: locator,
		cache:   fileset.NewCache(exec, cfg.CacheTTL(), nil),
		exec:    exec,
	}

	if !cfg.History.Disabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			log.Warn("history store unavailable, runs will not be recorded", "err", err)
		} else {
			s.store = store
		}
	}
	return s, nil
}

// Close releases the session's resources.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// SkillsRoot returns the resolved skills directory.
func (s *Session) SkillsRoot() string {
	return s.cfg.SkillsRoot()
}

// Locator exposes the discovered workspace.
func (s *Session) Locator() *workspace.Locator {
	return s.locator
}

// History exposes the run log, or nil when recording is off.
func (s *Session) History() *history.Store {
	return s.store
}

// Run validates the selected skills sequentially and returns their
// outcomes. One skill's failure never stops the rest.
func (s *Session) Run(ctx context.Context, opts Options) ([]Outcome, error) {
	dirs, err := s.resolveSkills(opts)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(dirs))
	for _, dir := range dirs {
		v := validator.New(dir, s.locator, s.cache, s.exec, validator.Options{
			Mode:           opts.Mode,
			UpdateBaseline: opts.UpdateBaseline,
			ProjectFilter:  opts.Projects,
			Runner:         s.cfg.RunnerConfig(),
		})

		rep, err := v.Run(ctx)
		outcome := Outcome{Skill: filepath.Base(dir), Report: rep, Err: err}
		if rep != nil {
			outcome.Skill = rep.Skill
		}
		outcomes = append(outcomes, outcome)

		s.record(outcome)
	}
	return outcomes, nil
}

// resolveSkills maps the selection to skill directories.
func (s *Session) resolveSkills(opts Options) ([]string, error) {
	root := s.SkillsRoot()

	if opts.Skill != "" && opts.All {
		return nil, faults.Usagef("--all cannot be combined with a named skill")
	}

	if opts.Skill != "" {
		dir := filepath.Join(root, opts.Skill)
		if _, err := os.Stat(filepath.Join(dir, rules.SkillFileName)); err != nil {
			return nil, faults.Usagef("skill %q not found under %s", opts.Skill, root)
		}
		return []string{dir}, nil
	}

	if !opts.All {
		return nil, faults.Usagef("name a skill or pass --all")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, faults.WrapInfra(err, "read skills root %s", root)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, rules.SkillFileName)); err == nil {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		return nil, faults.Usagef("no skills found under %s", root)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// record appends the outcome to the run log. Best-effort only.
func (s *Session) record(o Outcome) {
	if s.store == nil || o.Report == nil {
		return
	}
	err := s.store.Record(history.Entry{
		RunID:     o.Report.RunID,
		Skill:     o.Report.Skill,
		Mode:      o.Report.Mode,
		Passed:    o.Report.Passed,
		Total:     o.Report.Total,
		Projects:  len(o.Report.ProjectsScanned),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warn("failed to record run", "skill", o.Skill, "err", err)
	}
}

// ExitCode folds outcomes into the process exit code: infrastructure
// faults dominate usage faults, which dominate policy failures.
func ExitCode(outcomes []Outcome) int {
	code := ExitPass
	for _, o := range outcomes {
		code = max(code, outcomeCode(o))
	}
	return code
}

func outcomeCode(o Outcome) int {
	switch {
	case faults.IsInfra(o.Err):
		return ExitInfra
	case faults.IsUsage(o.Err):
		return ExitUsage
	case o.Err != nil:
		return ExitInfra
	case o.Report != nil && !o.Report.Passed:
		return ExitFail
	}
	return ExitPass
}

// CodeFor classifies a pre-run error the same way outcomes are.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return ExitPass
	case faults.IsUsage(err):
		return ExitUsage
	case faults.IsInfra(err):
		return ExitInfra
	}
	return ExitInfra
}
