package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bugseek/backend/internal/models"
)

func TestParseAnalysisResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"plain json", `{"summary": "heap exhausted"}`, false},
		{"fenced json", "```json\n{\"summary\": \"heap exhausted\"}\n```", false},
		{"bare fence", "```\n{\"summary\": \"heap exhausted\"}\n```", false},
		{"surrounding whitespace", "  \n{\"summary\": \"heap exhausted\"}\n  ", false},
		{"prose instead of json", "The log shows a memory problem.", true},
		{"missing summary", `{"severity": "high"}`, true},
		{"blank summary", `{"summary": "   "}`, true},
		{"truncated json", `{"summary": "heap`, true},
	}

	for _, test := range tests {
		payload, err := ParseAnalysisResponse(test.raw)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got payload %+v", test.name, payload)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: expected success, got %v", test.name, err)
			continue
		}
		if payload.Summary != "heap exhausted" {
			t.Errorf("%s: expected summary 'heap exhausted', got %q", test.name, payload.Summary)
		}
	}
}

func TestParseAnalysisResponseDefaults(t *testing.T) {
	payload, err := ParseAnalysisResponse(`{"summary": "s", "confidence": 7}`)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if payload.Confidence != 0.85 {
		t.Errorf("Expected out-of-range confidence reset to 0.85, got %v", payload.Confidence)
	}
	if payload.Keywords == nil || payload.Remediations == nil {
		t.Error("Expected nil slices replaced with empty ones")
	}
	if payload.RootCause == "" {
		t.Error("Expected a default root cause")
	}
}

func TestParseAnalysisResponseErrorsAreMalformed(t *testing.T) {
	_, err := ParseAnalysisResponse("not json at all")
	if err == nil {
		t.Fatal("Expected error")
	}
	if FailureKindOf(err) != FailureMalformed {
		t.Errorf("Expected malformed classification, got %s", FailureKindOf(err))
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusUnauthorized, FailureAuth},
		{http.StatusForbidden, FailureAuth},
		{http.StatusTooManyRequests, FailureRateLimited},
		{http.StatusInternalServerError, FailureNetwork},
		{http.StatusServiceUnavailable, FailureNetwork},
		{http.StatusBadRequest, FailureMalformed},
		{http.StatusNotFound, FailureMalformed},
	}

	for _, test := range tests {
		if got := classifyStatus(test.status); got != test.want {
			t.Errorf("Status %d: expected %s, got %s", test.status, test.want, got)
		}
	}
}

func TestFailureKindTransient(t *testing.T) {
	tests := []struct {
		kind FailureKind
		want bool
	}{
		{FailureTimeout, true},
		{FailureRateLimited, true},
		{FailureNetwork, true},
		{FailureAuth, false},
		{FailureMalformed, false},
	}

	for _, test := range tests {
		if got := test.kind.Transient(); got != test.want {
			t.Errorf("Kind %s: expected transient=%v, got %v", test.kind, test.want, got)
		}
	}
}

func TestFailureKindOf(t *testing.T) {
	authErr := &LLMError{Kind: FailureAuth, Err: errors.New("bad key")}

	if got := FailureKindOf(authErr); got != FailureAuth {
		t.Errorf("Expected auth, got %s", got)
	}
	if got := FailureKindOf(fmt.Errorf("call failed: %w", authErr)); got != FailureAuth {
		t.Errorf("Expected auth through wrapping, got %s", got)
	}
	if got := FailureKindOf(context.DeadlineExceeded); got != FailureTimeout {
		t.Errorf("Expected timeout for deadline errors, got %s", got)
	}
	if got := FailureKindOf(errors.New("boom")); got != FailureNetwork {
		t.Errorf("Expected network default, got %s", got)
	}
}

func TestToAnalysisResultSeverityFromIssues(t *testing.T) {
	payload := &LLMAnalysisPayload{
		Summary:    "crash during boot",
		Severity:   "low",
		Confidence: 0.9,
		Issues: []LLMIssue{
			{LineNumber: 1, Snippet: "panic", Category: "kernel", Severity: "critical", Confidence: 0.95},
			{LineNumber: 4, Snippet: "warn", Category: "application", Severity: "medium", Confidence: 0.6},
		},
	}

	result := payload.ToAnalysisResult()

	if result.Severity != models.SeverityCritical {
		t.Errorf("Expected overall severity lifted to critical, got %s", result.Severity)
	}
	if result.Source != models.SourceLLM {
		t.Errorf("Expected source llm, got %s", result.Source)
	}
	if len(result.Issues) != 2 {
		t.Errorf("Expected 2 issues, got %d", len(result.Issues))
	}
}

func TestToAnalysisResultWithoutIssuesKeepsPayloadSeverity(t *testing.T) {
	payload := &LLMAnalysisPayload{
		Summary:    "intermittent slowness",
		Severity:   "major",
		Confidence: 0.7,
	}

	result := payload.ToAnalysisResult()

	if result.Severity != models.SeverityHigh {
		t.Errorf("Expected normalized severity high, got %s", result.Severity)
	}
	if len(result.Issues) != 0 {
		t.Errorf("Expected no issues, got %d", len(result.Issues))
	}
}

func TestToAnalysisResultInheritsConfidence(t *testing.T) {
	payload := &LLMAnalysisPayload{
		Summary:    "flaky disk",
		Severity:   "high",
		Confidence: 0.8,
		Issues: []LLMIssue{
			{LineNumber: 2, Snippet: "i/o error", Category: "filesystem", Severity: "high"},
		},
	}

	result := payload.ToAnalysisResult()

	if result.Issues[0].Confidence != 0.8 {
		t.Errorf("Expected issue to inherit payload confidence, got %v", result.Issues[0].Confidence)
	}
}

func TestTruncateForLog(t *testing.T) {
	short := "short body"
	if got := truncateForLog(short); got != short {
		t.Errorf("Expected short strings unchanged, got %q", got)
	}

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateForLog(string(long))
	if len(got) != 303 {
		t.Errorf("Expected 300 chars plus ellipsis, got %d", len(got))
	}
}
