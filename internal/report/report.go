// Package report assembles and writes per-skill validation reports.
// A report is produced fresh every run and fully overwrites the prior
// one; it is never merged with earlier state.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/skillgate/skillgate/internal/baseline"
	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/rules"
)

// FileName is the default report file under a skill directory.
const FileName = "report.json"

// FixEntry records one rule's remediation metadata for external
// consumption. The engine never applies fixes itself.
type FixEntry struct {
	RuleID      string `json:"rule_id"`
	Auto        bool   `json:"auto"`
	Type        string `json:"type,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	File        string `json:"file,omitempty"`
	Description string `json:"description,omitempty"`
}

// Report is the full outcome of validating one skill.
type Report struct {
	Skill              string                    `json:"skill"`
	Mode               string                    `json:"mode"`
	RunID              string                    `json:"run_id"`
	GeneratedAt        time.Time                 `json:"generated_at"`
	ProjectsScanned    []string                  `json:"projects_scanned"`
	Counts             map[string]int            `json:"counts"`
	Total              int                       `json:"total"`
	PerProject         map[string]map[string]int `json:"per_project"`
	Passed             bool                      `json:"passed"`
	BaselineComparison *baseline.Comparison      `json:"baseline_comparison,omitempty"`
	FixSummary         []FixEntry                `json:"fix_summary"`
}

// FixSummary extracts fix metadata from a skill's rules, independent of
// the run's pass/fail outcome.
func FixSummary(skill *rules.Skill) []FixEntry {
	entries := []FixEntry{}
	for _, r := range skill.Rules {
		fix := r.FixMeta()
		if fix == nil {
			continue
		}
		entries = append(entries, FixEntry{
			RuleID:      r.RuleID(),
			Auto:        fix.Auto,
			Type:        fix.Type,
			Instruction: fix.Instruction,
			File:        fix.File,
			Description: fix.Description,
		})
	}
	return entries
}

// Write persists the report as deterministic JSON: sorted map keys,
// 2-space indent, trailing newline, full overwrite.
func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return faults.WrapInfra(err, "create report directory for %s", path)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return faults.WrapInfra(err, "encode report %s", path)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return faults.WrapInfra(err, "write report %s", path)
	}
	return nil
}
