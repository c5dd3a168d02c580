package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skillgate/skillgate/internal/faults"
)

// skillDir creates a skill directory with the given rule files present.
func skillDir(t *testing.T, ruleFiles ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range ruleFiles {
		full := filepath.Join(dir, f)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("id: x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestParseValidSkill(t *testing.T) {
	dir := skillDir(t, "rules/no-print.yml", "check.sh")
	data := []byte(`
skill: no-print
strategy: per_group
targets:
  include: ["**/*.py"]
  exclude: ["tests/**"]
  projects: [flext-core]
custom_validate: ./check.sh
rules:
  - id: no-print
    type: structural
    rule_file: rules/no-print.yml
  - id: headers
    type: custom
    script: ./check.sh
    args: ["--strict"]
    pass_mode: true
    group: hygiene
`)

	s, err := Parse("no-print", dir, data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if s.Name != "no-print" || s.Strategy != StrategyPerGroup {
		t.Errorf("skill = %q/%q, want no-print/per_group", s.Name, s.Strategy)
	}
	if s.CustomValidate != filepath.Join(dir, "check.sh") {
		t.Errorf("CustomValidate = %q, not resolved to skill dir", s.CustomValidate)
	}
	if len(s.Rules) != 2 {
		t.Fatalf("parsed %d rules, want 2", len(s.Rules))
	}

	sr, ok := s.Rules[0].(*StructuralRule)
	if !ok {
		t.Fatalf("rule 0 is %T, want *StructuralRule", s.Rules[0])
	}
	if sr.Group != "no-print" {
		t.Errorf("group defaults to id, got %q", sr.Group)
	}
	if sr.CountBy != CountAggregate || sr.Match != MatchPresent {
		t.Errorf("structural defaults = %q/%q, want aggregate/present", sr.CountBy, sr.Match)
	}

	cr, ok := s.Rules[1].(*CustomRule)
	if !ok {
		t.Fatalf("rule 1 is %T, want *CustomRule", s.Rules[1])
	}
	if cr.Group != "hygiene" || !cr.PassMode || len(cr.Args) != 1 {
		t.Errorf("custom rule = %+v", cr)
	}
}

func TestParseZeroRulesIsValid(t *testing.T) {
	s, err := Parse("empty", t.TempDir(), []byte("skill: empty\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(s.Rules) != 0 || s.Strategy != StrategyTotal {
		t.Errorf("empty skill = %+v", s)
	}
}

func TestParseRejections(t *testing.T) {
	dir := skillDir(t, "r.yml")

	tests := []struct {
		name string
		yaml string
	}{
		{
			"unsupported strategy",
			"strategy: newest_wins\n",
		},
		{
			"invalid glob",
			"targets:\n  include: [\"[\"]\n",
		},
		{
			"missing rule id",
			"rules:\n  - type: structural\n    rule_file: r.yml\n",
		},
		{
			"unknown rule type",
			"rules:\n  - id: a\n    type: semantic\n",
		},
		{
			"duplicate rule id",
			"rules:\n  - id: a\n    type: structural\n    rule_file: r.yml\n  - id: a\n    type: structural\n    rule_file: r.yml\n",
		},
		{
			"structural without rule_file",
			"rules:\n  - id: a\n    type: structural\n",
		},
		{
			"rule_file not found",
			"rules:\n  - id: a\n    type: structural\n    rule_file: missing.yml\n",
		},
		{
			"unknown count_by",
			"rules:\n  - id: a\n    type: structural\n    rule_file: r.yml\n    count_by: per_file\n",
		},
		{
			"unknown match mode",
			"rules:\n  - id: a\n    type: structural\n    rule_file: r.yml\n    match: never\n",
		},
		{
			"custom without script",
			"rules:\n  - id: a\n    type: custom\n",
		},
		{
			"count_by on custom rule",
			"rules:\n  - id: a\n    type: custom\n    script: checker\n    count_by: aggregate\n",
		},
		{
			"match on custom rule",
			"rules:\n  - id: a\n    type: custom\n    script: checker\n    match: present\n",
		},
		{
			"unexpected key",
			"rules:\n  - id: a\n    type: structural\n    rule_file: r.yml\n    severity: high\n",
		},
		{
			"mixed fix shapes",
			"rules:\n  - id: a\n    type: custom\n    script: checker\n    fix_type: rewrite\n    fix:\n      type: rewrite\n",
		},
		{
			"fix_auto without fix_type and fix_file",
			"rules:\n  - id: a\n    type: custom\n    script: checker\n    fix_auto: true\n",
		},
		{
			"nested fix auto without type and file",
			"rules:\n  - id: a\n    type: custom\n    script: checker\n    fix:\n      auto: true\n",
		},
		{
			"not yaml",
			"{{{",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad", dir, []byte(tt.yaml))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !faults.IsUsage(err) {
				t.Errorf("error should be a usage fault, got %v", err)
			}
		})
	}
}

func TestParseFixMetadata(t *testing.T) {
	dir := skillDir(t, "r.yml")

	flat := []byte(`
rules:
  - id: a
    type: structural
    rule_file: r.yml
    fix_auto: true
    fix_type: rewrite
    fix_file: fixes/a.yml
    fix_instruction: replace print with logger
`)
	s, err := Parse("s", dir, flat)
	if err != nil {
		t.Fatalf("Parse(flat fix) error = %v", err)
	}
	fix := s.Rules[0].FixMeta()
	if fix == nil || !fix.Auto || fix.Type != "rewrite" || fix.File != "fixes/a.yml" {
		t.Errorf("flat fix = %+v", fix)
	}

	nested := []byte(`
rules:
  - id: a
    type: structural
    rule_file: r.yml
    fix:
      auto: false
      instruction: remove the call
`)
	s, err = Parse("s", dir, nested)
	if err != nil {
		t.Fatalf("Parse(nested fix) error = %v", err)
	}
	fix = s.Rules[0].FixMeta()
	if fix == nil || fix.Auto || fix.Instruction != "remove the call" {
		t.Errorf("nested fix = %+v", fix)
	}

	none := []byte("rules:\n  - id: a\n    type: structural\n    rule_file: r.yml\n")
	s, err = Parse("s", dir, none)
	if err != nil {
		t.Fatalf("Parse(no fix) error = %v", err)
	}
	if s.Rules[0].FixMeta() != nil {
		t.Error("rule without fix keys should have nil fix metadata")
	}
}

func TestLoadMissingSkillFile(t *testing.T) {
	_, err := Load(t.TempDir())
	if !faults.IsUsage(err) {
		t.Errorf("missing skill.yaml should be a usage fault, got %v", err)
	}
}

func TestLoadReadsSkillFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SkillFileName), []byte("skill: demo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Name != "demo" || s.Dir != dir {
		t.Errorf("Load() = %q in %q", s.Name, s.Dir)
	}
}
