package runner

import (
	"context"
	"strings"

	"github.com/skillgate/skillgate/internal/execrun"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/rules"
)

// customAdapter drives an arbitrary validator script. Contract:
// `<script> --root <path> [args...] [--mode <mode>]`, exit 0 = clean,
// 1 = violations, 2 = bad invocation.
type customAdapter struct {
	rule *rules.CustomRule
	exec execrun.Runner
	cfg  Config
}

func init() {
	Register(rules.KindCustom, func(r rules.Rule, exec execrun.Runner, cfg Config) Adapter {
		return &customAdapter{rule: r.(*rules.CustomRule), exec: exec, cfg: cfg}
	})
}

func (a *customAdapter) Run(ctx context.Context, in Input) (*Outcome, error) {
	args := []string{"--root", in.ProjectPath}
	args = append(args, a.rule.Args...)
	if a.rule.PassMode {
		args = append(args, "--mode", in.Mode)
	}

	res, err := a.exec.Run(ctx, execrun.Spec{
		Command: a.rule.Script,
		Args:    args,
		Dir:     in.ProjectPath,
		Timeout: a.cfg.CustomTimeout,
	})
	if err != nil {
		return nil, faults.WrapInfra(err, "rule %q: run script %q", a.rule.ID, a.rule.Script)
	}
	if res.TimedOut {
		return nil, faults.Infraf("rule %q: script timed out after %s", a.rule.ID, a.cfg.CustomTimeout)
	}

	switch res.ExitCode {
	case 0, 1:
	case 2:
		return nil, faults.Usagef("rule %q: script %q reports bad invocation: %s",
			a.rule.ID, a.rule.Script, strings.TrimSpace(res.Stderr))
	default:
		return nil, faults.Infraf("rule %q: script %q exited %d: %s",
			a.rule.ID, a.rule.Script, res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	total, contributed := parseCounts(res.Stdout)
	// A script signalling violations without reporting a count still
	// counts as at least one.
	if res.ExitCode == 1 && contributed == 0 {
		total = 1
	}

	grouped := map[string]int{}
	if total > 0 {
		grouped[a.rule.Group] = total
	}
	return &Outcome{Grouped: grouped, RawMatches: total}, nil
}
