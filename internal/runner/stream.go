package runner

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/log"
)

// match is one structural-scan record from the tool's NDJSON stream.
type match struct {
	File   string `json:"file"`
	RuleID string `json:"ruleId"`
}

// parseMatches decodes newline-delimited JSON match records. Malformed
// lines and records without a file path are skipped.
func parseMatches(stdout string) []match {
	var matches []match
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var m match
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			log.Debug("skipping malformed scan record", "line", truncate(line, 120))
			continue
		}
		if m.File == "" {
			continue
		}
		matches = append(matches, m)
	}
	return matches
}

// countLine is one custom-script output record. Scripts emit
// violation_count; the legacy count field is still accepted.
type countLine struct {
	ViolationCount *int `json:"violation_count"`
	Count          *int `json:"count"`
}

// parseCounts sums violation counts from a custom script's NDJSON
// output. It returns the sum and how many lines contributed one.
func parseCounts(stdout string) (total, contributed int) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var c countLine
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			log.Debug("skipping malformed script record", "line", truncate(line, 120))
			continue
		}

		switch {
		case c.ViolationCount != nil:
			if c.Count != nil && *c.Count != *c.ViolationCount {
				log.Warn("script emitted conflicting violation_count and count, using violation_count",
					"violation_count", *c.ViolationCount, "count", *c.Count)
			}
			total += *c.ViolationCount
			contributed++
		case c.Count != nil:
			total += *c.Count
			contributed++
		}
	}
	return total, contributed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
