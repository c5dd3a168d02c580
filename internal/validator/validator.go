// Package validator runs one skill across its target projects: rule
// parsing, file selection, rule execution, aggregation, baseline
// comparison, and report writing.
package validator

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/skillgate/skillgate/internal/baseline"
	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/fileset"
	"github.com/skillgate/skillgate/internal/report"
	"github.com/skillgate/skillgate/internal/rules"
	"github.com/skillgate/skillgate/internal/runner"
	"github.com/skillgate/skillgate/internal/workspace"
)

// Mode is the validation mode.
type Mode string

const (
	// ModeBaseline accepts "no regression vs the stored baseline",
	// auto-initializing on first run.
	ModeBaseline Mode = "baseline"
	// ModeStrict accepts only zero violations and ignores any baseline.
	ModeStrict Mode = "strict"
)

// ParseMode validates a mode string. Empty defaults to baseline.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "":
		return ModeBaseline, nil
	case string(ModeBaseline):
		return ModeBaseline, nil
	case string(ModeStrict):
		return ModeStrict, nil
	}
	return "", faults.Usagef("unknown mode %q (want baseline or strict)", s)
}

// CustomValidateGroup is the synthetic group for a skill's
// custom_validate script.
const CustomValidateGroup = "custom_validate"

// Options configures one skill run.
type Options struct {
	Mode           Mode
	UpdateBaseline bool
	// ProjectFilter restricts scanning to these workspace projects.
	// It intersects with the skill's declared projects.
	ProjectFilter []string
	// BaselinePath overrides <skillDir>/baseline.json.
	BaselinePath string
	// ReportPath overrides <skillDir>/report.json.
	ReportPath string
	Runner     runner.Config
}

// Validator validates one skill. It exclusively owns that skill's
// report and baseline files for the duration of the run.
type Validator struct {
	skillDir string
	locator  *workspace.Locator
	cache    *fileset.Cache
	exec     execrun.Runner
	opts     Options
}

// New creates a validator for the skill defined in skillDir.
func New(skillDir string, locator *workspace.Locator, cache *fileset.Cache, exec execrun.Runner, opts Options) *Validator {
	return &Validator{
		skillDir: skillDir,
		locator:  locator,
		cache:    cache,
		exec:     exec,
		opts:     opts,
	}
}

// Run executes the skill's full state machine. A usage fault during
// parsing or target resolution aborts before any external process; an
// infrastructure fault during execution aborts without writing a
// report, so a tool crash can never read as a pass.
func (v *Validator) Run(ctx context.Context) (*report.Report, error) {
	skill, err := rules.Load(v.skillDir)
	if err != nil {
		return nil, err
	}

	projects, err := v.resolveTargets(skill)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", skill.Name, err)
	}

	counts, perProject, scanned, err := v.executeRules(ctx, skill, projects)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", skill.Name, err)
	}
	total := baseline.Sum(counts)

	passed, cmp, err := v.settle(skill, counts, total)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", skill.Name, err)
	}

	rep := &report.Report{
		Skill:              skill.Name,
		Mode:               string(v.opts.Mode),
		RunID:              uuid.New().String(),
		GeneratedAt:        time.Now().UTC(),
		ProjectsScanned:    scanned,
		Counts:             counts,
		Total:              total,
		PerProject:         perProject,
		Passed:             passed,
		BaselineComparison: cmp,
		FixSummary:         report.FixSummary(skill),
	}
	if err := report.Write(v.reportPath(), rep); err != nil {
		return nil, fmt.Errorf("skill %q: %w", skill.Name, err)
	}

	log.Info("skill validated",
		"skill", skill.Name, "mode", v.opts.Mode,
		"projects", len(scanned), "total", total, "passed", passed)
	return rep, nil
}

// resolveTargets intersects the skill's declared projects with the
// session's project filter, resolving every name through the locator.
func (v *Validator) resolveTargets(skill *rules.Skill) ([]workspace.Project, error) {
	declared := skill.Projects
	if len(declared) == 0 {
		for _, p := range v.locator.Projects() {
			declared = append(declared, p.Name)
		}
	}

	filter := make(map[string]bool, len(v.opts.ProjectFilter))
	for _, name := range v.opts.ProjectFilter {
		if _, err := v.locator.Lookup(name); err != nil {
			return nil, err
		}
		filter[name] = true
	}

	var projects []workspace.Project
	for _, name := range declared {
		p, err := v.locator.Lookup(name)
		if err != nil {
			return nil, err
		}
		if len(filter) > 0 && !filter[p.Name] {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// executeRules runs every project x rule combination sequentially and
// aggregates grouped counts per project and overall.
func (v *Validator) executeRules(ctx context.Context, skill *rules.Skill, projects []workspace.Project) (map[string]int, map[string]map[string]int, []string, error) {
	ruleList := skill.Rules
	if skill.CustomValidate != "" {
		ruleList = append(ruleList, &rules.CustomRule{
			ID:       CustomValidateGroup,
			Group:    CustomValidateGroup,
			Script:   skill.CustomValidate,
			PassMode: true,
		})
	}

	counts := map[string]int{}
	perProject := map[string]map[string]int{}
	scanned := []string{}

	for _, p := range projects {
		tracked, err := v.cache.Tracked(ctx, p.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("project %q: %w", p.Name, err)
		}
		selectedFiles := fileset.Select(tracked, skill.Include, skill.Exclude, p.Path, p.Name)
		selected := make(map[string]struct{}, len(selectedFiles))
		for _, f := range selectedFiles {
			selected[f] = struct{}{}
		}

		projectCounts := map[string]int{}
		for _, r := range ruleList {
			adapter, err := runner.New(r, v.exec, v.opts.Runner)
			if err != nil {
				return nil, nil, nil, err
			}

			out, err := adapter.Run(ctx, runner.Input{
				ProjectName: p.Name,
				ProjectPath: p.Path,
				Selected:    selected,
				Include:     skill.Include,
				Exclude:     fileset.NormalizeExcludes(skill.Exclude, p.Name),
				Mode:        string(v.opts.Mode),
			})
			if err != nil {
				return nil, nil, nil, fmt.Errorf("project %q: %w", p.Name, err)
			}

			for g, n := range out.Grouped {
				projectCounts[g] += n
				counts[g] += n
			}
		}

		perProject[p.Name] = projectCounts
		scanned = append(scanned, p.Name)
	}

	return counts, perProject, scanned, nil
}

// settle resolves pass/fail against the baseline according to mode.
func (v *Validator) settle(skill *rules.Skill, counts map[string]int, total int) (bool, *baseline.Comparison, error) {
	switch {
	case v.opts.UpdateBaseline:
		if err := v.saveBaseline(skill, counts, total, true); err != nil {
			return false, nil, err
		}
		return true, baseline.ZeroDelta(counts, skill.Strategy), nil

	case v.opts.Mode == ModeStrict:
		// Strict ignores any on-disk baseline entirely.
		return total == 0, nil, nil
	}

	base, err := baseline.Load(v.baselinePath())
	if err != nil {
		return false, nil, err
	}
	if base == nil {
		// First run in baseline mode: the current counts become the
		// floor and the run passes by definition.
		if err := v.saveBaseline(skill, counts, total, false); err != nil {
			return false, nil, err
		}
		log.Info("baseline initialized", "skill", skill.Name, "total", total)
		return true, baseline.ZeroDelta(counts, skill.Strategy), nil
	}

	cmp := baseline.Compare(counts, base, skill.Strategy)
	return cmp.Passed, cmp, nil
}

func (v *Validator) saveBaseline(skill *rules.Skill, counts map[string]int, total int, update bool) error {
	snapshot := make(map[string]int, len(counts))
	for g, n := range counts {
		snapshot[g] = n
	}

	now := time.Now().UTC()
	b := &baseline.Baseline{
		Skill:    skill.Name,
		Strategy: string(skill.Strategy),
		Counts:   snapshot,
		Total:    total,
	}
	if update {
		b.UpdatedAt = &now
		if prev, err := baseline.Load(v.baselinePath()); err == nil && prev != nil {
			b.InitializedAt = prev.InitializedAt
		}
	} else {
		b.InitializedAt = &now
	}
	return baseline.Save(v.baselinePath(), b)
}

func (v *Validator) baselinePath() string {
	if v.opts.BaselinePath != "" {
		return v.opts.BaselinePath
	}
	return filepath.Join(v.skillDir, baseline.FileName)
}

func (v *Validator) reportPath() string {
	if v.opts.ReportPath != "" {
		return v.opts.ReportPath
	}
	return filepath.Join(v.skillDir, report.FileName)
}
