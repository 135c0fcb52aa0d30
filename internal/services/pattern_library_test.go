package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bugseek/backend/internal/models"
)

func TestNewPatternLibraryRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		defs []PatternDefinition
	}{
		{
			name: "empty catalog",
			defs: nil,
		},
		{
			name: "missing name",
			defs: []PatternDefinition{
				{Category: "memory", Expression: "oom", Severity: models.SeverityHigh, Weight: 0.5, Priority: 1},
			},
		},
		{
			name: "duplicate name",
			defs: []PatternDefinition{
				{Name: "dup", Category: "memory", Expression: "oom", Severity: models.SeverityHigh, Weight: 0.5, Priority: 1},
				{Name: "dup", Category: "network", Expression: "refused", Severity: models.SeverityMedium, Weight: 0.5, Priority: 2},
			},
		},
		{
			name: "missing category",
			defs: []PatternDefinition{
				{Name: "oom", Expression: "oom", Severity: models.SeverityHigh, Weight: 0.5, Priority: 1},
			},
		},
		{
			name: "unknown severity",
			defs: []PatternDefinition{
				{Name: "oom", Category: "memory", Expression: "oom", Severity: "urgent", Weight: 0.5, Priority: 1},
			},
		},
		{
			name: "weight above one",
			defs: []PatternDefinition{
				{Name: "oom", Category: "memory", Expression: "oom", Severity: models.SeverityHigh, Weight: 1.5, Priority: 1},
			},
		},
		{
			name: "zero weight",
			defs: []PatternDefinition{
				{Name: "oom", Category: "memory", Expression: "oom", Severity: models.SeverityHigh, Weight: 0, Priority: 1},
			},
		},
		{
			name: "malformed expression",
			defs: []PatternDefinition{
				{Name: "broken", Category: "memory", Expression: "(unclosed", Severity: models.SeverityHigh, Weight: 0.5, Priority: 1},
			},
		},
	}

	for _, test := range tests {
		if _, err := NewPatternLibrary(test.defs); err == nil {
			t.Errorf("Expected construction to fail for %s, got nil error", test.name)
		}
	}
}

func TestNewPatternLibrarySortsByPriority(t *testing.T) {
	defs := []PatternDefinition{
		{Name: "late", Category: "application", Expression: "late", Severity: models.SeverityLow, Weight: 0.3, Priority: 9},
		{Name: "early", Category: "kernel", Expression: "early", Severity: models.SeverityCritical, Weight: 0.9, Priority: 1},
	}

	lib, err := NewPatternLibrary(defs)
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}

	ordered := lib.Definitions()
	if ordered[0].Name != "early" || ordered[1].Name != "late" {
		t.Errorf("Expected evaluation order [early late], got [%s %s]", ordered[0].Name, ordered[1].Name)
	}
}

func TestMatchFindsKnownSignatures(t *testing.T) {
	lib, err := NewPatternLibrary(DefaultPatternDefinitions())
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}

	text := "INFO starting settlement worker\njava.lang.OutOfMemoryError: heap space exhausted\nINFO worker stopped"
	matches := lib.Match(text)

	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}

	// Priority order within the line: the memory signature outranks the
	// generic java exception.
	if matches[0].Definition.Name != "out_of_memory" {
		t.Errorf("Expected first match out_of_memory, got %s", matches[0].Definition.Name)
	}
	if matches[0].Definition.Category != "memory" {
		t.Errorf("Expected category memory, got %s", matches[0].Definition.Category)
	}
	if matches[0].LineNumber != 2 {
		t.Errorf("Expected match on line 2, got line %d", matches[0].LineNumber)
	}
	if matches[1].Definition.Name != "java_exception" {
		t.Errorf("Expected second match java_exception, got %s", matches[1].Definition.Name)
	}
}

func TestMatchOverlapKeepsHigherPriority(t *testing.T) {
	defs := []PatternDefinition{
		{Name: "specific", Category: "memory", Expression: `out of memory`, Severity: models.SeverityHigh, Remediation: "check limits", Weight: 0.8, Priority: 1},
		{Name: "broad", Category: "application", Expression: `memory`, Severity: models.SeverityLow, Remediation: "read the log", Weight: 0.3, Priority: 2},
	}
	lib, err := NewPatternLibrary(defs)
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}

	// The broad hit lands inside the span the specific pattern already
	// claimed, so only the specific one survives.
	matches := lib.Match("worker died: out of memory")
	if len(matches) != 1 {
		t.Fatalf("Expected 1 match for overlapping spans, got %d", len(matches))
	}
	if matches[0].Definition.Name != "specific" {
		t.Errorf("Expected the higher-priority match to win, got %s", matches[0].Definition.Name)
	}

	// Disjoint spans on the same line are all reported.
	matches = lib.Match("memory usage climbed before out of memory kill")
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches for disjoint spans, got %d", len(matches))
	}
}

func TestMatchHonorsScanCap(t *testing.T) {
	lib, err := NewPatternLibrary(DefaultPatternDefinitions())
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}

	padding := strings.Repeat("x", 10100)

	matches := lib.Match(padding + "\nkernel panic - not syncing")
	if len(matches) != 0 {
		t.Errorf("Expected signature past the scan cap to be ignored, got %d matches", len(matches))
	}

	matches = lib.Match("kernel panic - not syncing\n" + padding)
	if len(matches) != 1 {
		t.Errorf("Expected signature before the scan cap to match, got %d matches", len(matches))
	}
}

func TestMatchEmptyText(t *testing.T) {
	lib, err := NewPatternLibrary(DefaultPatternDefinitions())
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}

	if matches := lib.Match(""); matches != nil {
		t.Errorf("Expected no matches for empty text, got %d", len(matches))
	}
}

func TestLoadPatternDefinitions(t *testing.T) {
	catalog := `patterns:
  - name: disk_full
    category: filesystem
    pattern: "no space left on device"
    severity: high
    remediation: "Free disk space on the affected volume."
    weight: 0.7
    priority: 1
`
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catalog), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	defs, err := LoadPatternDefinitions(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("Expected 1 definition, got %d", len(defs))
	}

	lib, err := NewPatternLibrary(defs)
	if err != nil {
		t.Fatalf("Loaded catalog failed validation: %v", err)
	}

	matches := lib.Match("write failed: No space left on device")
	if len(matches) != 1 {
		t.Errorf("Expected 1 match from the loaded catalog, got %d", len(matches))
	}
}

func TestLoadPatternDefinitionsErrors(t *testing.T) {
	if _, err := LoadPatternDefinitions(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing catalog file")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(empty, []byte("patterns: []\n"), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}
	if _, err := LoadPatternDefinitions(empty); err == nil {
		t.Error("Expected error for catalog with no patterns")
	}
}
