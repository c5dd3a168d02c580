// Package baseline persists per-skill violation-count snapshots and
// implements the two regression-comparison strategies.
package baseline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/skillgate/skillgate/internal/faults"
	"github.com/skillgate/skillgate/internal/rules"
)

// FileName is the default baseline file under a skill directory.
const FileName = "baseline.json"

// Baseline is the last-accepted violation-count snapshot for a skill.
// Invariant: Total == sum of Counts values.
type Baseline struct {
	Skill         string         `json:"skill"`
	Strategy      string         `json:"strategy"`
	Counts        map[string]int `json:"counts"`
	Total         int            `json:"total"`
	InitializedAt *time.Time     `json:"initialized_at,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

// Comparison is the outcome of comparing current counts to a baseline.
type Comparison struct {
	Strategy      string         `json:"strategy"`
	Passed        bool           `json:"passed"`
	Deltas        map[string]int `json:"deltas"`
	CurrentTotal  int            `json:"current_total"`
	BaselineTotal int            `json:"baseline_total"`
}

// Load reads a baseline file. An absent file returns (nil, nil); an
// unparseable or inconsistent one is an infrastructure fault.
func Load(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, faults.WrapInfra(err, "read baseline %s", path)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, faults.WrapInfra(err, "parse baseline %s", path)
	}
	if b.Total != Sum(b.Counts) {
		return nil, faults.Infraf("baseline %s is inconsistent: total %d != sum of counts %d",
			path, b.Total, Sum(b.Counts))
	}
	if b.Counts == nil {
		b.Counts = map[string]int{}
	}
	return &b, nil
}

// Save writes a baseline as deterministic JSON: sorted keys, 2-space
// indent, trailing newline.
func Save(path string, b *Baseline) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return faults.WrapInfra(err, "create baseline directory for %s", path)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return faults.WrapInfra(err, "encode baseline %s", path)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return faults.WrapInfra(err, "write baseline %s", path)
	}
	return nil
}

// Compare evaluates current counts against a baseline under the given
// strategy. Deltas are reported per group either way; only the pass
// criterion differs:
//
//   - total: passes iff the grand total did not grow. A regression in
//     one group may be offset by an improvement elsewhere.
//   - per_group: passes iff no single group grew. No offsetting.
func Compare(current map[string]int, base *Baseline, strategy rules.Strategy) *Comparison {
	cmp := &Comparison{
		Strategy:      string(strategy),
		Deltas:        map[string]int{},
		CurrentTotal:  Sum(current),
		BaselineTotal: base.Total,
	}

	groups := make(map[string]bool, len(current)+len(base.Counts))
	for g := range current {
		groups[g] = true
	}
	for g := range base.Counts {
		groups[g] = true
	}

	noGroupGrew := true
	for g := range groups {
		delta := current[g] - base.Counts[g]
		cmp.Deltas[g] = delta
		if delta > 0 {
			noGroupGrew = false
		}
	}

	switch strategy {
	case rules.StrategyPerGroup:
		cmp.Passed = noGroupGrew
	default:
		cmp.Passed = cmp.CurrentTotal <= cmp.BaselineTotal
	}
	return cmp
}

// ZeroDelta builds the comparison reported when a baseline is freshly
// initialized or explicitly overwritten: the run is its own floor.
func ZeroDelta(current map[string]int, strategy rules.Strategy) *Comparison {
	deltas := make(map[string]int, len(current))
	for g := range current {
		deltas[g] = 0
	}
	total := Sum(current)
	return &Comparison{
		Strategy:      string(strategy),
		Passed:        true,
		Deltas:        deltas,
		CurrentTotal:  total,
		BaselineTotal: total,
	}
}

// Sum totals a count map.
func Sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
