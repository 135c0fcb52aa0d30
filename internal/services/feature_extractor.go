package services

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/bugseek/backend/internal/models"
)

// stopwords are dropped outright during tokenization. Terms that are merely
// overrepresented in log text stay in the vector but get damped below.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "was": true,
	"with": true, "this": true, "that": true, "from": true, "have": true,
	"has": true, "had": true, "been": true, "were": true, "will": true,
	"would": true, "there": true, "their": true, "when": true, "where": true,
	"what": true, "which": true, "while": true, "then": true, "than": true,
	"its": true, "into": true, "onto": true, "over": true, "under": true,
	"about": true, "after": true, "before": true, "because": true,
	"could": true, "should": true, "each": true, "such": true, "some": true,
	"more": true, "most": true, "other": true, "these": true, "those": true,
	"they": true, "them": true, "your": true, "our": true, "out": true,
	"off": true, "via": true,
}

// referenceDocFreq approximates how often a term shows up across log files
// in general. High-frequency terms carry little signal, so their weight is
// damped; terms missing from the table are treated as rare.
var referenceDocFreq = map[string]float64{
	"error":     0.95,
	"info":      0.90,
	"failed":    0.85,
	"warning":   0.80,
	"log":       0.80,
	"debug":     0.70,
	"warn":      0.70,
	"failure":   0.70,
	"file":      0.70,
	"message":   0.65,
	"exception": 0.60,
	"line":      0.60,
	"system":    0.60,
	"service":   0.60,
	"time":      0.60,
	"cannot":    0.55,
	"process":   0.55,
	"request":   0.55,
	"server":    0.55,
	"null":      0.50,
	"response":  0.50,
	"thread":    0.50,
	"timestamp": 0.50,
	"unable":    0.50,
	"value":     0.50,
}

const (
	minTokenChars   = 3
	rareTermDocFreq = 0.05
)

// TextFeatureExtractor turns raw log text into a sparse term-weight vector.
// Extraction is deterministic: identical text always produces an identical
// vector, which both the summary keywords and the similarity index rely on.
type TextFeatureExtractor struct{}

func NewTextFeatureExtractor() *TextFeatureExtractor {
	return &TextFeatureExtractor{}
}

// Extract tokenizes text (lowercase, split on non-alphanumerics, drop short
// tokens and stopwords), computes term frequency, and damps terms that are
// common across logs in general so domain-specific tokens rank higher.
func (e *TextFeatureExtractor) Extract(text string) models.FeatureVector {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return models.FeatureVector{}
	}

	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}

	total := float64(len(tokens))
	vec := make(models.FeatureVector, len(counts))
	for term, count := range counts {
		tf := float64(count) / total
		vec[term] = tf * dampingFactor(term)
	}
	return vec
}

// TopKeywords returns the n highest-weighted terms, ties broken
// alphabetically so the output is stable.
func (e *TextFeatureExtractor) TopKeywords(vec models.FeatureVector, n int) []string {
	if n <= 0 || len(vec) == 0 {
		return nil
	}

	terms := make([]string, 0, len(vec))
	for term := range vec {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if vec[terms[i]] != vec[terms[j]] {
			return vec[terms[i]] > vec[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func tokenize(text string) []string {
	raw := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) < minTokenChars || stopwords[t] {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// dampingFactor shrinks as the term's reference document frequency grows,
// an inverse-document-frequency style weighting against a fixed table.
func dampingFactor(term string) float64 {
	df, ok := referenceDocFreq[term]
	if !ok {
		df = rareTermDocFreq
	}
	return math.Log(1 + 1/df)
}
