package models

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
	}{
		{"low", SeverityLow},
		{"info", SeverityLow},
		{"minor", SeverityLow},
		{"medium", SeverityMedium},
		{"moderate", SeverityMedium},
		{"warning", SeverityMedium},
		{"high", SeverityHigh},
		{"major", SeverityHigh},
		{"error", SeverityHigh},
		{"critical", SeverityCritical},
		{"fatal", SeverityCritical},
		{"blocker", SeverityCritical},
		{"  HIGH  ", SeverityHigh},
		{"CRITICAL", SeverityCritical},
		{"", SeverityMedium},
		{"catastrophic", SeverityMedium},
	}

	for _, test := range tests {
		if got := NormalizeSeverity(test.input); got != test.want {
			t.Errorf("For input %q, expected %s, got %s", test.input, test.want, got)
		}
	}
}

func TestSeverityOrdering(t *testing.T) {
	ordered := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank() <= ordered[i-1].Rank() {
			t.Errorf("Expected %s to outrank %s", ordered[i], ordered[i-1])
		}
	}

	if Severity("unknown").Rank() != 0 {
		t.Errorf("Expected rank 0 for unknown severity, got %d", Severity("unknown").Rank())
	}
	if Severity("unknown").Valid() {
		t.Error("Expected unknown severity to be invalid")
	}
}

func TestMaxSeverity(t *testing.T) {
	tests := []struct {
		a, b, want Severity
	}{
		{SeverityLow, SeverityCritical, SeverityCritical},
		{SeverityCritical, SeverityLow, SeverityCritical},
		{SeverityHigh, SeverityMedium, SeverityHigh},
		{SeverityMedium, SeverityMedium, SeverityMedium},
	}

	for _, test := range tests {
		if got := MaxSeverity(test.a, test.b); got != test.want {
			t.Errorf("MaxSeverity(%s, %s): expected %s, got %s", test.a, test.b, test.want, got)
		}
	}
}

func TestSeverityAtLeast(t *testing.T) {
	if !SeverityHigh.AtLeast(SeverityMedium) {
		t.Error("Expected high to be at least medium")
	}
	if !SeverityHigh.AtLeast(SeverityHigh) {
		t.Error("Expected high to be at least high")
	}
	if SeverityLow.AtLeast(SeverityMedium) {
		t.Error("Expected low to be below medium")
	}
}
