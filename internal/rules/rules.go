// Package rules loads and validates skill definitions. Rule shapes are
// checked eagerly into a closed set of variants before any external
// process runs; anything that does not fit is rejected as a usage fault.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/skillgate/skillgate/internal/faults"
)

// SkillFileName is the per-skill definition file under the skills root.
const SkillFileName = "skill.yaml"

// Kind discriminates the rule union.
type Kind string

const (
	KindStructural Kind = "structural"
	KindCustom     Kind = "custom"
)

// CountBy selects the structural counting policy.
type CountBy string

const (
	// CountAggregate increments a single counter keyed by the rule group.
	CountAggregate CountBy = "aggregate"
	// CountByRuleID increments a counter keyed by the scan tool's rule id.
	CountByRuleID CountBy = "rule_id"
)

// MatchMode selects structural match semantics.
type MatchMode string

const (
	// MatchPresent treats every match as a violation.
	MatchPresent MatchMode = "present"
	// MatchAbsent inverts: zero matches satisfies the rule.
	MatchAbsent MatchMode = "absent"
)

// Strategy selects the baseline comparison algorithm.
type Strategy string

const (
	// StrategyTotal compares grand totals; cross-group offsetting allowed.
	StrategyTotal Strategy = "total"
	// StrategyPerGroup compares each group independently.
	StrategyPerGroup Strategy = "per_group"
)

// Fix is optional remediation metadata attached to a rule. It is
// recorded for external consumption; the engine never applies fixes.
type Fix struct {
	Auto        bool
	Type        string
	Instruction string
	File        string
	Description string
}

// Rule is one checkable condition within a skill.
type Rule interface {
	RuleID() string
	GroupKey() string
	RuleKind() Kind
	FixMeta() *Fix
}

// StructuralRule delegates to the external structural scan tool.
type StructuralRule struct {
	ID       string
	Group    string
	RuleFile string
	CountBy  CountBy
	Match    MatchMode
	Fix      *Fix
}

func (r *StructuralRule) RuleID() string   { return r.ID }
func (r *StructuralRule) GroupKey() string { return r.Group }
func (r *StructuralRule) RuleKind() Kind   { return KindStructural }
func (r *StructuralRule) FixMeta() *Fix    { return r.Fix }

// CustomRule delegates to an arbitrary validator script.
type CustomRule struct {
	ID       string
	Group    string
	Script   string
	Args     []string
	PassMode bool
	Fix      *Fix
}

func (r *CustomRule) RuleID() string   { return r.ID }
func (r *CustomRule) GroupKey() string { return r.Group }
func (r *CustomRule) RuleKind() Kind   { return KindCustom }
func (r *CustomRule) FixMeta() *Fix    { return r.Fix }

// Skill is one fully validated policy definition.
type Skill struct {
	Name           string
	Dir            string
	Strategy       Strategy
	Include        []string
	Exclude        []string
	Projects       []string
	CustomValidate string
	Rules          []Rule
}

// skillFile is the raw YAML shape. Rules stay as maps so the union
// validation can see exactly which keys were authored.
type skillFile struct {
	Skill          string           `yaml:"skill"`
	Strategy       string           `yaml:"strategy"`
	CustomValidate string           `yaml:"custom_validate"`
	Targets        skillFileTargets `yaml:"targets"`
	Rules          []map[string]any `yaml:"rules"`
}

type skillFileTargets struct {
	Include  []string `yaml:"include"`
	Exclude  []string `yaml:"exclude"`
	Projects []string `yaml:"projects"`
}

// Load reads and validates <dir>/skill.yaml. A missing definition is a
// usage fault; any other read failure is infrastructure.
func Load(dir string) (*Skill, error) {
	path := filepath.Join(dir, SkillFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.Usagef("skill %q has no %s", filepath.Base(dir), SkillFileName)
		}
		return nil, faults.WrapInfra(err, "read %s", path)
	}
	return Parse(filepath.Base(dir), dir, data)
}

// Parse validates raw skill definition bytes.
func Parse(name, dir string, data []byte) (*Skill, error) {
	var raw skillFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, faults.WrapUsage(err, "parse skill %q", name)
	}

	if raw.Skill != "" {
		name = raw.Skill
	}

	strategy, err := parseStrategy(raw.Strategy)
	if err != nil {
		return nil, fmt.Errorf("skill %q: %w", name, err)
	}

	for _, pattern := range append(append([]string{}, raw.Targets.Include...), raw.Targets.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, faults.Usagef("skill %q: invalid glob pattern %q", name, pattern)
		}
	}

	skill := &Skill{
		Name:     name,
		Dir:      dir,
		Strategy: strategy,
		Include:  raw.Targets.Include,
		Exclude:  raw.Targets.Exclude,
		Projects: raw.Targets.Projects,
	}

	if raw.CustomValidate != "" {
		script, err := resolveScript(dir, raw.CustomValidate)
		if err != nil {
			return nil, fmt.Errorf("skill %q: custom_validate: %w", name, err)
		}
		skill.CustomValidate = script
	}

	seen := make(map[string]bool)
	for i, rm := range raw.Rules {
		rule, err := parseRule(dir, rm)
		if err != nil {
			return nil, fmt.Errorf("skill %q: rule %d: %w", name, i, err)
		}
		if seen[rule.RuleID()] {
			return nil, faults.Usagef("skill %q: duplicate rule id %q", name, rule.RuleID())
		}
		seen[rule.RuleID()] = true
		skill.Rules = append(skill.Rules, rule)
	}

	return skill, nil
}

func parseStrategy(s string) (Strategy, error) {
	switch s {
	case "":
		return StrategyTotal, nil
	case string(StrategyTotal):
		return StrategyTotal, nil
	case string(StrategyPerGroup):
		return StrategyPerGroup, nil
	}
	return "", faults.Usagef("unsupported baseline strategy %q", s)
}

// Keys permitted per rule kind. Anything else is rejected rather than
// probed ad hoc during execution.
var (
	commonKeys = []string{
		"id", "type", "group",
		"fix", "fix_auto", "fix_type", "fix_instruction", "fix_file", "fix_description",
	}
	structuralKeys = append([]string{"rule_file", "count_by", "match"}, commonKeys...)
	customKeys     = append([]string{"script", "args", "pass_mode"}, commonKeys...)
	flatFixKeys    = []string{"fix_auto", "fix_type", "fix_instruction", "fix_file", "fix_description"}
	nestedFixKeys  = []string{"auto", "type", "instruction", "file", "description"}
)

func parseRule(dir string, rm map[string]any) (Rule, error) {
	id, err := stringKey(rm, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, faults.Usagef("missing rule id")
	}

	kind, err := stringKey(rm, "type")
	if err != nil {
		return nil, err
	}

	group, err := stringKey(rm, "group")
	if err != nil {
		return nil, err
	}
	if group == "" {
		group = id
	}

	fix, err := parseFix(rm)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}

	switch Kind(kind) {
	case KindStructural:
		if err := allowKeys(rm, structuralKeys); err != nil {
			return nil, fmt.Errorf("rule %q: %w", id, err)
		}
		return parseStructural(dir, id, group, fix, rm)
	case KindCustom:
		if err := allowKeys(rm, customKeys); err != nil {
			return nil, fmt.Errorf("rule %q: %w", id, err)
		}
		return parseCustom(dir, id, group, fix, rm)
	}
	return nil, faults.Usagef("rule %q: unknown type %q", id, kind)
}

func parseStructural(dir, id, group string, fix *Fix, rm map[string]any) (Rule, error) {
	ruleFile, err := stringKey(rm, "rule_file")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}
	if ruleFile == "" {
		return nil, faults.Usagef("rule %q: structural rule requires rule_file", id)
	}
	if !filepath.IsAbs(ruleFile) {
		ruleFile = filepath.Join(dir, ruleFile)
	}
	if _, err := os.Stat(ruleFile); err != nil {
		return nil, faults.Usagef("rule %q: rule_file %q not found", id, ruleFile)
	}

	countBy, err := stringKey(rm, "count_by")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}
	switch CountBy(countBy) {
	case CountAggregate, CountByRuleID:
	case "":
		countBy = string(CountAggregate)
	default:
		return nil, faults.Usagef("rule %q: unknown count_by %q", id, countBy)
	}

	match, err := stringKey(rm, "match")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}
	switch MatchMode(match) {
	case MatchPresent, MatchAbsent:
	case "":
		match = string(MatchPresent)
	default:
		return nil, faults.Usagef("rule %q: unknown match mode %q", id, match)
	}

	return &StructuralRule{
		ID:       id,
		Group:    group,
		RuleFile: ruleFile,
		CountBy:  CountBy(countBy),
		Match:    MatchMode(match),
		Fix:      fix,
	}, nil
}

func parseCustom(dir, id, group string, fix *Fix, rm map[string]any) (Rule, error) {
	script, err := stringKey(rm, "script")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}
	if script == "" {
		return nil, faults.Usagef("rule %q: custom rule requires script", id)
	}
	script, err = resolveScript(dir, script)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}

	args, err := stringSliceKey(rm, "args")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}

	passMode, err := boolKey(rm, "pass_mode")
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", id, err)
	}

	return &CustomRule{
		ID:       id,
		Group:    group,
		Script:   script,
		Args:     args,
		PassMode: passMode,
		Fix:      fix,
	}, nil
}

// resolveScript anchors relative script paths at the skill directory.
// Bare names (no separator) are left for PATH resolution.
func resolveScript(dir, script string) (string, error) {
	if filepath.IsAbs(script) || !strings.Contains(script, "/") {
		return script, nil
	}
	script = filepath.Join(dir, script)
	if _, err := os.Stat(script); err != nil {
		return "", faults.Usagef("script %q not found", script)
	}
	return script, nil
}

// parseFix extracts fix metadata from either the nested fix: mapping or
// the flat fix_* keys. Mixing the two shapes on one rule is rejected, as
// is an auto-fixable rule without complete fix metadata.
func parseFix(rm map[string]any) (*Fix, error) {
	nested, hasNested := rm["fix"]
	hasFlat := false
	for _, k := range flatFixKeys {
		if _, ok := rm[k]; ok {
			hasFlat = true
			break
		}
	}

	if hasNested && hasFlat {
		return nil, faults.Usagef("mixes nested fix: mapping with flat fix_* keys")
	}

	var fix *Fix
	switch {
	case hasNested:
		fm, ok := nested.(map[string]any)
		if !ok {
			return nil, faults.Usagef("fix must be a mapping")
		}
		if err := allowKeys(fm, nestedFixKeys); err != nil {
			return nil, fmt.Errorf("fix: %w", err)
		}
		auto, err := boolKey(fm, "auto")
		if err != nil {
			return nil, fmt.Errorf("fix: %w", err)
		}
		f := Fix{Auto: auto}
		for key, dst := range map[string]*string{
			"type": &f.Type, "instruction": &f.Instruction,
			"file": &f.File, "description": &f.Description,
		} {
			v, err := stringKey(fm, key)
			if err != nil {
				return nil, fmt.Errorf("fix: %w", err)
			}
			*dst = v
		}
		fix = &f
	case hasFlat:
		auto, err := boolKey(rm, "fix_auto")
		if err != nil {
			return nil, err
		}
		f := Fix{Auto: auto}
		for key, dst := range map[string]*string{
			"fix_type": &f.Type, "fix_instruction": &f.Instruction,
			"fix_file": &f.File, "fix_description": &f.Description,
		} {
			v, err := stringKey(rm, key)
			if err != nil {
				return nil, err
			}
			*dst = v
		}
		fix = &f
	default:
		return nil, nil
	}

	// Auto-fixable rules must be fully specified, never silently
	// downgraded to manual.
	if fix.Auto && (fix.Type == "" || fix.File == "") {
		return nil, faults.Usagef("fix_auto requires fix_type and fix_file")
	}
	return fix, nil
}

func allowKeys(m map[string]any, allowed []string) error {
	allowedSet := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = true
	}

	var unknown []string
	for k := range m {
		if !allowedSet[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return faults.Usagef("unexpected keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

func stringKey(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", faults.Usagef("%s must be a string, got %T", key, v)
	}
	return s, nil
}

func boolKey(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, faults.Usagef("%s must be a boolean, got %T", key, v)
	}
	return b, nil
}

func stringSliceKey(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, faults.Usagef("%s must be a list of strings, got %T", key, v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, faults.Usagef("%s must be a list of strings, got %T element", key, item)
		}
		out = append(out, s)
	}
	return out, nil
}
