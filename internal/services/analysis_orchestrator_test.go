package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bugseek/backend/internal/models"
)

const validAnalysisJSON = `{
	"summary": "Worker heap exhausted during batch settlement",
	"severity": "high",
	"root_cause": "Unbounded allocation in the settlement loop",
	"confidence": 0.9,
	"keywords": ["heap", "settlement"],
	"remediations": ["Raise the worker heap limit", "Bound the allocation loop"],
	"issues": [
		{"line_number": 2, "snippet": "OutOfMemoryError", "category": "memory", "severity": "high", "confidence": 0.9}
	]
}`

type scriptedResponse struct {
	raw string
	err error
}

// scriptedLLM replays canned responses in order, repeating the last one, and
// records how many calls were made.
type scriptedLLM struct {
	mu        sync.Mutex
	calls     int
	responses []scriptedResponse
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	r := s.responses[idx]
	return r.raw, r.err
}

func (s *scriptedLLM) Configured() bool { return true }

func (s *scriptedLLM) Health(ctx context.Context) error { return nil }

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type staticCorpus struct {
	vectors map[string]models.FeatureVector
}

func (c *staticCorpus) FetchRecentVectors(excludingID string, limit int) (map[string]models.FeatureVector, error) {
	out := make(map[string]models.FeatureVector, len(c.vectors))
	for id, vec := range c.vectors {
		if id != excludingID {
			out[id] = vec
		}
	}
	return out, nil
}

func newTestOrchestrator(t *testing.T, llm LLMClient, corpus CorpusProvider) *AnalysisOrchestrator {
	t.Helper()
	lib, err := NewPatternLibrary(DefaultPatternDefinitions())
	if err != nil {
		t.Fatalf("Failed to build pattern library: %v", err)
	}
	extractor := NewTextFeatureExtractor()
	ao := NewAnalysisOrchestrator(llm, NewFallbackAnalyzer(lib, extractor), extractor, NewSimilarityIndex(), corpus)
	ao.enabled = true
	ao.backoffBase = time.Millisecond
	ao.backoffMax = 2 * time.Millisecond
	ao.jitter = func(d time.Duration) time.Duration { return d }
	return ao
}

func TestAnalyzeUsesLiveResult(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{{raw: validAnalysisJSON}}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-1", "OutOfMemoryError: heap space exhausted", "platform", "billing")

	if outcome.Result.Source != models.SourceLLM {
		t.Errorf("Expected source llm, got %s", outcome.Result.Source)
	}
	if outcome.LLMAttempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", outcome.LLMAttempts)
	}
	if llm.callCount() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", llm.callCount())
	}
	if outcome.Result.Severity != models.SeverityHigh {
		t.Errorf("Expected severity high, got %s", outcome.Result.Severity)
	}
	if outcome.Result.CrID != "cr-1" {
		t.Errorf("Expected result tagged with the log ID, got %q", outcome.Result.CrID)
	}
}

func TestAnalyzeAuthFailureMakesSingleAttempt(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{
		{err: &LLMError{Kind: FailureAuth, Err: errors.New("invalid api key")}},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-2", "segmentation fault in worker", "platform", "worker")

	if llm.callCount() != 1 {
		t.Errorf("Expected auth failure to stop after 1 call, got %d", llm.callCount())
	}
	if outcome.LLMAttempts != 1 {
		t.Errorf("Expected 1 recorded attempt, got %d", outcome.LLMAttempts)
	}
	if outcome.Result.Source != models.SourceFallback {
		t.Errorf("Expected fallback result, got %s", outcome.Result.Source)
	}
}

func TestAnalyzeTimeoutRetriesThenFallsBack(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{
		{err: &LLMError{Kind: FailureTimeout, Err: errors.New("deadline exceeded")}},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-3", "connection refused by upstream", "platform", "gateway")

	if llm.callCount() != 3 {
		t.Errorf("Expected 3 upstream calls for repeated timeouts, got %d", llm.callCount())
	}
	if outcome.LLMAttempts != 3 {
		t.Errorf("Expected 3 recorded attempts, got %d", outcome.LLMAttempts)
	}
	if outcome.Result.Source != models.SourceFallback {
		t.Errorf("Expected fallback result, got %s", outcome.Result.Source)
	}
}

func TestAnalyzeMalformedResponseFallsBack(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{
		{raw: "The log indicates a memory problem."},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-4", "out of memory in worker", "platform", "worker")

	if llm.callCount() != 1 {
		t.Errorf("Expected malformed response to stop after 1 call, got %d", llm.callCount())
	}
	if outcome.Result.Source != models.SourceFallback {
		t.Errorf("Expected fallback result, got %s", outcome.Result.Source)
	}
	if outcome.Result.Summary == "" {
		t.Error("Expected fallback to still produce a summary")
	}
}

func TestAnalyzeRecoversAfterTransientFailure(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{
		{err: &LLMError{Kind: FailureRateLimited, Err: errors.New("429")}},
		{raw: validAnalysisJSON},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-5", "OutOfMemoryError: heap space", "platform", "billing")

	if outcome.LLMAttempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", outcome.LLMAttempts)
	}
	if outcome.Result.Source != models.SourceLLM {
		t.Errorf("Expected recovery to a live result, got %s", outcome.Result.Source)
	}
}

func TestAnalyzeDisabledSkipsLiveBackend(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{{raw: validAnalysisJSON}}}
	ao := newTestOrchestrator(t, llm, nil)
	ao.enabled = false

	outcome := ao.Analyze(context.Background(), "cr-6", "kernel panic - not syncing", "devices", "boot")

	if llm.callCount() != 0 {
		t.Errorf("Expected no upstream calls when disabled, got %d", llm.callCount())
	}
	if outcome.LLMAttempts != 0 {
		t.Errorf("Expected 0 attempts, got %d", outcome.LLMAttempts)
	}
	if outcome.Result.Source != models.SourceFallback {
		t.Errorf("Expected fallback result, got %s", outcome.Result.Source)
	}
}

func TestAnalyzeNilClientUsesFallback(t *testing.T) {
	ao := newTestOrchestrator(t, nil, nil)

	outcome := ao.Analyze(context.Background(), "cr-7", "deadlock detected between tx threads", "platform", "db")

	if outcome.LLMAttempts != 0 {
		t.Errorf("Expected 0 attempts without a client, got %d", outcome.LLMAttempts)
	}
	if outcome.Result.Source != models.SourceFallback {
		t.Errorf("Expected fallback result, got %s", outcome.Result.Source)
	}
	if outcome.Result.Severity != models.SeverityHigh {
		t.Errorf("Expected pattern severity high, got %s", outcome.Result.Severity)
	}
}

func TestAnalyzeEmptyRemediationsTriggerFollowUp(t *testing.T) {
	noFixes := `{"summary": "Broker connection flapping", "severity": "medium", "confidence": 0.8, "remediations": [], "issues": []}`
	followUp := `{"summary": "Broker connection flapping", "severity": "medium", "remediations": ["Restart the ingest worker", "Check broker connectivity"]}`

	llm := &scriptedLLM{responses: []scriptedResponse{
		{raw: noFixes},
		{raw: followUp},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	outcome := ao.Analyze(context.Background(), "cr-8", "connection refused by broker", "platform", "ingest")

	if outcome.LLMAttempts != 1 {
		t.Errorf("Expected the follow-up to stay off the attempt count, got %d", outcome.LLMAttempts)
	}
	if llm.callCount() != 2 {
		t.Errorf("Expected 2 upstream calls including the follow-up, got %d", llm.callCount())
	}
	if len(outcome.Result.Remediations) != 2 {
		t.Errorf("Expected follow-up remediations attached, got %v", outcome.Result.Remediations)
	}
}

func TestAnalyzeCancelledContextStopsRetrying(t *testing.T) {
	llm := &scriptedLLM{responses: []scriptedResponse{
		{err: &LLMError{Kind: FailureTimeout, Err: errors.New("deadline exceeded")}},
	}}
	ao := newTestOrchestrator(t, llm, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := ao.Analyze(ctx, "cr-9", "i/o error on device sda1", "platform", "storage")

	if llm.callCount() != 1 {
		t.Errorf("Expected a cancelled caller to stop after 1 call, got %d", llm.callCount())
	}
	if outcome.Result == nil || outcome.Result.Source != models.SourceFallback {
		t.Error("Expected a fallback result even after cancellation")
	}
}

func TestAnalyzeAttachesSimilarMatches(t *testing.T) {
	extractor := NewTextFeatureExtractor()
	corpus := &staticCorpus{vectors: map[string]models.FeatureVector{
		"other-log": extractor.Extract("segmentation fault in decoder pipeline"),
		"unrelated": extractor.Extract("dns resolution failed for upstream"),
	}}
	ao := newTestOrchestrator(t, nil, corpus)

	outcome := ao.Analyze(context.Background(), "this-log", "segmentation fault in decoder pipeline", "media", "decoder")

	if len(outcome.Matches) != 1 {
		t.Fatalf("Expected 1 similarity match, got %d", len(outcome.Matches))
	}
	if outcome.Matches[0].CrID != "other-log" {
		t.Errorf("Expected the near-identical log to match, got %s", outcome.Matches[0].CrID)
	}
	if len(outcome.Result.SimilarMatches) != 1 {
		t.Errorf("Expected matches attached to the result, got %d", len(outcome.Result.SimilarMatches))
	}
}

func TestAnalyzeExcludesSelfFromCorpus(t *testing.T) {
	extractor := NewTextFeatureExtractor()
	text := "watchdog timeout on core 3"
	corpus := &staticCorpus{vectors: map[string]models.FeatureVector{
		"this-log": extractor.Extract(text),
	}}
	ao := newTestOrchestrator(t, nil, corpus)

	outcome := ao.Analyze(context.Background(), "this-log", text, "devices", "firmware")

	if len(outcome.Matches) != 0 {
		t.Errorf("Expected the log not to match itself, got %d matches", len(outcome.Matches))
	}
}

func TestFeatureVectorForIsCached(t *testing.T) {
	ao := newTestOrchestrator(t, nil, nil)

	first := ao.FeatureVectorFor("cr-10", "segmentation fault in worker")
	second := ao.FeatureVectorFor("cr-10", "completely different text")

	if len(first) == 0 {
		t.Fatal("Expected a non-empty vector")
	}
	if _, ok := second["segmentation"]; !ok {
		t.Error("Expected the cached vector for the same ID, got a fresh extraction")
	}
}
