package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skillgate/skillgate/internal/rules"
)

func TestWriteOverwritesCompletely(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	big := &Report{
		Skill:           "s",
		Mode:            "baseline",
		RunID:           "run-1",
		GeneratedAt:     time.Now().UTC(),
		ProjectsScanned: []string{"a", "b"},
		Counts:          map[string]int{"g1": 5, "g2": 2},
		Total:           7,
		PerProject:      map[string]map[string]int{"a": {"g1": 5}, "b": {"g2": 2}},
		FixSummary:      []FixEntry{},
	}
	if err := Write(path, big); err != nil {
		t.Fatal(err)
	}

	small := &Report{Skill: "s", Mode: "strict", RunID: "run-2", Counts: map[string]int{}, FixSummary: []FixEntry{}}
	if err := Write(path, small); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if got.RunID != "run-2" || got.Total != 0 || len(got.ProjectsScanned) != 0 {
		t.Errorf("old report state leaked into rewrite: %+v", got)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("report file missing trailing newline")
	}
}

func TestFixSummary(t *testing.T) {
	skill := &rules.Skill{
		Name: "s",
		Rules: []rules.Rule{
			&rules.StructuralRule{ID: "a", Group: "a"},
			&rules.StructuralRule{
				ID:    "b",
				Group: "b",
				Fix:   &rules.Fix{Auto: true, Type: "rewrite", File: "fixes/b.yml"},
			},
			&rules.CustomRule{
				ID:     "c",
				Group:  "c",
				Script: "check",
				Fix:    &rules.Fix{Instruction: "do it by hand"},
			},
		},
	}

	entries := FixSummary(skill)
	if len(entries) != 2 {
		t.Fatalf("FixSummary() returned %d entries, want 2", len(entries))
	}
	if entries[0].RuleID != "b" || !entries[0].Auto || entries[0].Type != "rewrite" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].RuleID != "c" || entries[1].Auto || entries[1].Instruction != "do it by hand" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestFixSummaryEmptyIsNotNil(t *testing.T) {
	entries := FixSummary(&rules.Skill{Name: "s"})
	if entries == nil {
		t.Error("FixSummary() = nil, want empty slice so JSON renders []")
	}
}
