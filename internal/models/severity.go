package models

import "strings"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Rank returns the position of s in the low < medium < high < critical
// ordering, or 0 for unknown values.
func (s Severity) Rank() int {
	return severityRank[s]
}

func (s Severity) AtLeast(other Severity) bool {
	return severityRank[s] >= severityRank[other]
}

// MaxSeverity returns the higher of the two tiers.
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// NormalizeSeverity maps free-form severity strings (as LLM backends tend to
// produce) onto the known tiers. Unknown values default to medium.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "info", "minor":
		return SeverityLow
	case "medium", "moderate", "warning":
		return SeverityMedium
	case "high", "major", "error":
		return SeverityHigh
	case "critical", "fatal", "blocker":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}
