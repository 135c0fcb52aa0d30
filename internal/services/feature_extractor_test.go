package services

import (
	"reflect"
	"testing"

	"github.com/bugseek/backend/internal/models"
)

func TestExtractIsDeterministic(t *testing.T) {
	extractor := NewTextFeatureExtractor()
	text := "ERROR: connection refused by gateway after 3 retries\nsegfault in decoder thread"

	first := extractor.Extract(text)
	second := extractor.Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical vectors for identical text")
	}
	if len(first) == 0 {
		t.Error("Expected a non-empty vector for error text")
	}
}

func TestExtractDropsShortTokensAndStopwords(t *testing.T) {
	extractor := NewTextFeatureExtractor()

	vec := extractor.Extract("the rm is at an io q")
	if len(vec) != 0 {
		t.Errorf("Expected empty vector for stopwords and short tokens, got %v", vec)
	}

	vec = extractor.Extract("the segfault and the deadlock")
	if _, ok := vec["segfault"]; !ok {
		t.Error("Expected segfault to survive tokenization")
	}
	if _, ok := vec["deadlock"]; !ok {
		t.Error("Expected deadlock to survive tokenization")
	}
	if _, ok := vec["the"]; ok {
		t.Error("Expected stopword 'the' to be dropped")
	}
	if len(vec) != 2 {
		t.Errorf("Expected 2 terms, got %d", len(vec))
	}
}

func TestExtractLowercasesAndSplitsOnNonAlphanumerics(t *testing.T) {
	extractor := NewTextFeatureExtractor()

	vec := extractor.Extract("Java.Lang.NullPointerException")
	for _, term := range []string{"java", "lang", "nullpointerexception"} {
		if _, ok := vec[term]; !ok {
			t.Errorf("Expected term %q in vector, got %v", term, vec)
		}
	}
}

func TestExtractDampsCommonLogTerms(t *testing.T) {
	extractor := NewTextFeatureExtractor()

	// Equal term frequency, so the weight difference comes entirely from
	// the reference document frequency damping.
	vec := extractor.Extract("error segfault")
	if vec["segfault"] <= vec["error"] {
		t.Errorf("Expected rare term to outweigh common term, got segfault=%v error=%v", vec["segfault"], vec["error"])
	}
}

func TestTopKeywordsOrdering(t *testing.T) {
	extractor := NewTextFeatureExtractor()
	vec := models.FeatureVector{"gamma": 0.9, "beta": 0.5, "alpha": 0.5}

	keywords := extractor.TopKeywords(vec, 3)
	want := []string{"gamma", "alpha", "beta"}
	if !reflect.DeepEqual(keywords, want) {
		t.Errorf("Expected %v, got %v", want, keywords)
	}

	keywords = extractor.TopKeywords(vec, 2)
	if len(keywords) != 2 || keywords[0] != "gamma" || keywords[1] != "alpha" {
		t.Errorf("Expected [gamma alpha], got %v", keywords)
	}

	if keywords := extractor.TopKeywords(vec, 0); keywords != nil {
		t.Errorf("Expected nil for n=0, got %v", keywords)
	}
	if keywords := extractor.TopKeywords(models.FeatureVector{}, 3); keywords != nil {
		t.Errorf("Expected nil for empty vector, got %v", keywords)
	}
}
