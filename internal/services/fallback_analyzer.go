package services

import (
	"fmt"

	"github.com/bugseek/backend/internal/models"
	"github.com/lib/pq"
)

const (
	fallbackBaseConfidence  = 0.4
	fallbackWeightBoost     = 0.3  // scaled by the strongest pattern weight
	fallbackExtraMatchBoost = 0.05 // per additional distinct pattern
)

const genericRemediation = "Review the raw log manually and attach recent context (deploys, config changes) before escalating."

// FallbackAnalyzer produces a best-effort analysis from the local pattern
// catalog when no live LLM result is available. It is pure computation over
// the provided text; it performs no I/O and is safe for concurrent use.
type FallbackAnalyzer struct {
	patterns  *PatternLibrary
	extractor *TextFeatureExtractor

	maxRemediations   int
	keywordLimit      int
	maxConfidence     float64
	noMatchConfidence float64
}

func NewFallbackAnalyzer(patterns *PatternLibrary, extractor *TextFeatureExtractor) *FallbackAnalyzer {
	return &FallbackAnalyzer{
		patterns:          patterns,
		extractor:         extractor,
		maxRemediations:   envInt("FALLBACK_MAX_REMEDIATIONS", 5),
		keywordLimit:      envInt("ANALYSIS_KEYWORD_LIMIT", 10),
		maxConfidence:     envFloat("FALLBACK_MAX_CONFIDENCE", 0.75),
		noMatchConfidence: envFloat("FALLBACK_NOMATCH_CONFIDENCE", 0.2),
	}
}

// Analyze scans text against the pattern catalog and assembles a
// fallback-tagged result. Overall severity is the maximum severity among the
// detected issues (low when there are none), and confidence never exceeds
// the fallback ceiling so a live LLM result always outranks it.
func (fa *FallbackAnalyzer) Analyze(text, team, module string) *models.AnalysisResult {
	vec := fa.extractor.Extract(text)
	keywords := fa.extractor.TopKeywords(vec, fa.keywordLimit)

	matches := fa.patterns.Match(text)
	if len(matches) == 0 {
		return &models.AnalysisResult{
			Summary: fmt.Sprintf(
				"No known error pattern matched the submitted log for %s/%s; manual review recommended.",
				team, module),
			Severity:     models.SeverityLow,
			Confidence:   fa.noMatchConfidence,
			Source:       models.SourceFallback,
			Issues:       models.IssueList{},
			Remediations: pq.StringArray{genericRemediation},
			Keywords:     pq.StringArray(keywords),
		}
	}

	issues := make(models.IssueList, 0, len(matches))
	overall := models.SeverityLow
	distinct := make(map[string]bool)
	var strongest float64
	dominant := matches[0].Definition

	for _, m := range matches {
		def := m.Definition
		issues = append(issues, models.DetectedIssue{
			LineNumber: m.LineNumber,
			Snippet:    m.Snippet,
			Category:   def.Category,
			Severity:   def.Severity,
			Confidence: def.Weight,
		})
		overall = models.MaxSeverity(overall, def.Severity)
		distinct[def.Name] = true
		if def.Weight > strongest {
			strongest = def.Weight
		}
		// Matches arrive in line-then-priority order, so on severity ties
		// the earlier hit keeps dominance.
		if def.Severity.Rank() > dominant.Severity.Rank() {
			dominant = def
		}
	}

	confidence := fallbackBaseConfidence + fallbackWeightBoost*strongest
	confidence += fallbackExtraMatchBoost * float64(len(distinct)-1)
	if confidence > fa.maxConfidence {
		confidence = fa.maxConfidence
	}

	remediations := fa.collectRemediations(matches)

	return &models.AnalysisResult{
		Summary: fmt.Sprintf(
			"Pattern scan found %d known error signature(s) in %s/%s; dominant category %s at severity %s.",
			len(matches), team, module, dominant.Category, overall),
		Severity:     overall,
		Confidence:   confidence,
		Source:       models.SourceFallback,
		Issues:       issues,
		Remediations: pq.StringArray(remediations),
		Keywords:     pq.StringArray(keywords),
		RootCause:    fmt.Sprintf("Likely %s issue (signature: %s)", dominant.Category, dominant.Name),
	}
}

// collectRemediations gathers each matched pattern's template, deduplicated
// in first-seen order and capped.
func (fa *FallbackAnalyzer) collectRemediations(matches []PatternMatch) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		r := m.Definition.Remediation
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
		if len(out) >= fa.maxRemediations {
			break
		}
	}
	return out
}
