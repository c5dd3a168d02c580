package runner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/rules"
)

// structuralAdapter drives the external structural scan tool. Contract:
// `<tool> scan --rule <file> --json=stream [--globs <p>]* <path>`,
// exit 0 = no matches, exit 1 = matches found.
type structuralAdapter struct {
	rule *rules.StructuralRule
	exec execrun.Runner
	cfg  Config
}

func init() {
	Register(rules.KindStructural, func(r rules.Rule, exec execrun.Runner, cfg Config) Adapter {
		return &structuralAdapter{rule: r.(*rules.StructuralRule), exec: exec, cfg: cfg}
	})
}

func (a *structuralAdapter) Run(ctx context.Context, in Input) (*Outcome, error) {
	args := []string{"scan", "--rule", a.rule.RuleFile, "--json=stream"}
	for _, g := range in.Include {
		args = append(args, "--globs", g)
	}
	for _, g := range in.Exclude {
		args = append(args, "--globs", "!"+g)
	}
	args = append(args, in.ProjectPath)

	res, err := a.exec.Run(ctx, execrun.Spec{
		Command: a.cfg.StructuralTool,
		Args:    args,
		Dir:     in.ProjectPath,
		Timeout: a.cfg.StructuralTimeout,
	})
	if err != nil {
		return nil, faults.WrapInfra(err, "rule %q: run structural scan tool %q", a.rule.ID, a.cfg.StructuralTool)
	}
	if res.TimedOut {
		return nil, faults.Infraf("rule %q: structural scan timed out after %s", a.rule.ID, a.cfg.StructuralTimeout)
	}
	// 0 and 1 are the tool's only policy outcomes; anything else means
	// the scan itself broke and must never read as a clean pass.
	if res.ExitCode != 0 && res.ExitCode != 1 {
		return nil, faults.Infraf("rule %q: structural scan tool exited %d: %s",
			a.rule.ID, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	grouped := map[string]int{}
	raw := 0
	for _, m := range parseMatches(res.Stdout) {
		rel := projectRelative(m.File, in.ProjectPath)
		if rel == "" {
			continue
		}
		if _, ok := in.Selected[rel]; !ok {
			log.Debug("match outside selected file set dropped",
				"rule", a.rule.ID, "project", in.ProjectName, "file", rel)
			continue
		}
		raw++

		if a.rule.Match == rules.MatchAbsent {
			continue
		}
		key := a.rule.Group
		if a.rule.CountBy == rules.CountByRuleID && m.RuleID != "" {
			key = m.RuleID
		}
		grouped[key]++
	}

	if a.rule.Match == rules.MatchAbsent {
		if raw == 0 {
			// The required pattern is absent: the rule is satisfied and
			// contributes one passing unit under its group.
			return &Outcome{Grouped: map[string]int{a.rule.Group: 1}}, nil
		}
		return &Outcome{Grouped: map[string]int{}, RawMatches: raw}, nil
	}

	return &Outcome{Grouped: grouped, RawMatches: raw}, nil
}

// projectRelative normalizes a match path to a project-relative slash
// path. Paths escaping the project are dropped.
func projectRelative(file, projectPath string) string {
	f := file
	if filepath.IsAbs(f) {
		rel, err := filepath.Rel(projectPath, f)
		if err != nil {
			return ""
		}
		f = rel
	}
	f = filepath.ToSlash(filepath.Clean(f))
	if f == "." || strings.HasPrefix(f, "../") {
		return ""
	}
	return f
}
