package services

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bugseek/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// PatternDefinition is one named error signature. Definitions are built once
// at startup and shared read-only across all analyses.
type PatternDefinition struct {
	Name        string
	Category    string
	Expression  string
	Severity    models.Severity
	Remediation string
	Weight      float64 // contribution to fallback confidence, (0, 1]
	Priority    int     // lower values are evaluated first

	matcher *regexp.Regexp
}

// PatternMatch is a single signature hit inside scanned text.
type PatternMatch struct {
	Definition *PatternDefinition
	LineNumber int // 1-based
	Snippet    string
}

const snippetMaxChars = 200

// PatternLibrary holds the compiled signature catalog. Construction compiles
// every matcher and fails on the first invalid definition; after that the
// library is immutable and safe for concurrent use.
type PatternLibrary struct {
	definitions  []PatternDefinition
	maxScanChars int
}

// NewPatternLibrary validates and compiles the given definitions. Any
// malformed expression, unknown severity, or out-of-range weight is a
// configuration error; callers are expected to treat it as fatal.
func NewPatternLibrary(definitions []PatternDefinition) (*PatternLibrary, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("pattern library: no definitions provided")
	}

	defs := make([]PatternDefinition, len(definitions))
	copy(defs, definitions)

	seen := make(map[string]bool, len(defs))
	for i := range defs {
		def := &defs[i]
		if def.Name == "" {
			return nil, fmt.Errorf("pattern library: definition %d has no name", i)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("pattern library: duplicate definition %q", def.Name)
		}
		seen[def.Name] = true
		if def.Category == "" {
			return nil, fmt.Errorf("pattern library: %q has no category", def.Name)
		}
		if !def.Severity.Valid() {
			return nil, fmt.Errorf("pattern library: %q has invalid severity %q", def.Name, def.Severity)
		}
		if def.Weight <= 0 || def.Weight > 1 {
			return nil, fmt.Errorf("pattern library: %q has weight %v outside (0,1]", def.Name, def.Weight)
		}
		matcher, err := regexp.Compile("(?i)" + def.Expression)
		if err != nil {
			return nil, fmt.Errorf("pattern library: %q: %w", def.Name, err)
		}
		def.matcher = matcher
	}

	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Priority != defs[j].Priority {
			return defs[i].Priority < defs[j].Priority
		}
		return defs[i].Name < defs[j].Name
	})

	return &PatternLibrary{
		definitions:  defs,
		maxScanChars: envInt("ANALYSIS_CONTENT_CAP", 10000),
	}, nil
}

// Definitions returns the catalog in evaluation order.
func (pl *PatternLibrary) Definitions() []PatternDefinition {
	return pl.definitions
}

// Match scans text against the catalog and returns every hit in line order.
// Patterns are tried in priority order per line; when two patterns hit
// overlapping spans of the same line only the higher-priority one is kept,
// while hits on disjoint spans of the same line are all reported. Content
// past the scan cap is ignored.
func (pl *PatternLibrary) Match(text string) []PatternMatch {
	if text == "" {
		return nil
	}
	if len(text) > pl.maxScanChars {
		text = text[:pl.maxScanChars]
	}

	var matches []PatternMatch
	lines := strings.Split(text, "\n")
	for lineIdx, line := range lines {
		if line == "" {
			continue
		}
		var claimed [][2]int
		for i := range pl.definitions {
			def := &pl.definitions[i]
			loc := def.matcher.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if overlapsAny(claimed, loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, [2]int{loc[0], loc[1]})
			matches = append(matches, PatternMatch{
				Definition: def,
				LineNumber: lineIdx + 1,
				Snippet:    snippet(line),
			})
		}
	}
	return matches
}

func overlapsAny(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && end > s[0] {
			return true
		}
	}
	return false
}

func snippet(line string) string {
	line = strings.TrimSpace(line)
	if len(line) > snippetMaxChars {
		return line[:snippetMaxChars]
	}
	return line
}

// DefaultPatternDefinitions is the built-in signature catalog. Priorities put
// the most specific categories first so they win overlapping hits.
func DefaultPatternDefinitions() []PatternDefinition {
	return []PatternDefinition{
		{
			Name:        "kernel_panic",
			Category:    "kernel",
			Expression:  `kernel panic|kernel oops|unable to handle kernel`,
			Severity:    models.SeverityCritical,
			Remediation: "Capture the full panic trace and check recently loaded kernel modules or driver updates.",
			Weight:      0.9,
			Priority:    1,
		},
		{
			Name:        "buffer_overflow",
			Category:    "security",
			Expression:  `buffer overflow|stack smashing|heap corruption`,
			Severity:    models.SeverityCritical,
			Remediation: "Audit the reported component for unchecked buffer writes and update it to a patched build.",
			Weight:      0.9,
			Priority:    2,
		},
		{
			Name:        "watchdog_timeout",
			Category:    "hardware",
			Expression:  `watchdog timeout|watchdog timer expired|soft lockup`,
			Severity:    models.SeverityHigh,
			Remediation: "Check for busy-looping tasks or starved interrupts around the timestamp of the watchdog event.",
			Weight:      0.8,
			Priority:    3,
		},
		{
			Name:        "segmentation_fault",
			Category:    "memory",
			Expression:  `segmentation fault|segfault|sigsegv`,
			Severity:    models.SeverityHigh,
			Remediation: "Collect the core dump and symbolize the faulting stack before restarting the service.",
			Weight:      0.85,
			Priority:    4,
		},
		{
			Name:        "out_of_memory",
			Category:    "memory",
			Expression:  `out of memory|outofmemory|oom[ -]killer|memory exhausted|heap space|cannot allocate memory`,
			Severity:    models.SeverityHigh,
			Remediation: "Review memory limits and recent allocation growth; raise the limit or fix the leak before retrying.",
			Weight:      0.85,
			Priority:    5,
		},
		{
			Name:        "deadlock",
			Category:    "concurrency",
			Expression:  `deadlock detected|possible deadlock|circular locking|lock inversion`,
			Severity:    models.SeverityHigh,
			Remediation: "Map the lock acquisition order of the threads in the report and break the cycle.",
			Weight:      0.8,
			Priority:    6,
		},
		{
			Name:        "io_error",
			Category:    "filesystem",
			Expression:  `i/o error|input/output error|read error|write error`,
			Severity:    models.SeverityHigh,
			Remediation: "Check disk health and filesystem mount state on the affected host.",
			Weight:      0.75,
			Priority:    7,
		},
		{
			Name:        "device_not_found",
			Category:    "hardware",
			Expression:  `device not found|no such device|device descriptor`,
			Severity:    models.SeverityMedium,
			Remediation: "Verify the device is attached and its driver enumerated it; re-seat or re-probe if not.",
			Weight:      0.6,
			Priority:    8,
		},
		{
			Name:        "permission_denied",
			Category:    "security",
			Expression:  `permission denied|access denied|operation not permitted`,
			Severity:    models.SeverityMedium,
			Remediation: "Compare the process credentials against the resource's ownership and ACLs.",
			Weight:      0.65,
			Priority:    9,
		},
		{
			Name:        "network_error",
			Category:    "network",
			Expression:  `network unreachable|connection refused|connection timeout|dns resolution failed`,
			Severity:    models.SeverityMedium,
			Remediation: "Confirm the peer endpoint is up and reachable from this host (routes, DNS, firewall).",
			Weight:      0.6,
			Priority:    10,
		},
		{
			Name:        "android_anr",
			Category:    "android",
			Expression:  `anr in|application not responding|input dispatching timed out`,
			Severity:    models.SeverityMedium,
			Remediation: "Pull the ANR trace and look for main-thread blocking calls.",
			Weight:      0.6,
			Priority:    11,
		},
		{
			Name:        "java_exception",
			Category:    "application",
			Expression:  `exception in thread|java\.lang\.|caused by:`,
			Severity:    models.SeverityMedium,
			Remediation: "Walk the stack trace from the first 'caused by' frame owned by your code.",
			Weight:      0.55,
			Priority:    12,
		},
	}
}

type patternCatalogFile struct {
	Patterns []struct {
		Name        string  `yaml:"name"`
		Category    string  `yaml:"category"`
		Pattern     string  `yaml:"pattern"`
		Severity    string  `yaml:"severity"`
		Remediation string  `yaml:"remediation"`
		Weight      float64 `yaml:"weight"`
		Priority    int     `yaml:"priority"`
	} `yaml:"patterns"`
}

// LoadPatternDefinitions reads a catalog override from a YAML file. The
// result still goes through NewPatternLibrary validation.
func LoadPatternDefinitions(path string) ([]PatternDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pattern catalog: %w", err)
	}

	var file patternCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("pattern catalog %s: %w", path, err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("pattern catalog %s: no patterns defined", path)
	}

	defs := make([]PatternDefinition, 0, len(file.Patterns))
	for _, p := range file.Patterns {
		defs = append(defs, PatternDefinition{
			Name:        p.Name,
			Category:    p.Category,
			Expression:  p.Pattern,
			Severity:    models.Severity(p.Severity),
			Remediation: p.Remediation,
			Weight:      p.Weight,
			Priority:    p.Priority,
		})
	}
	return defs, nil
}
