package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
)

// FailureKind classifies an upstream LLM failure for retry decisions.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureAuth        FailureKind = "auth_error"
	FailureRateLimited FailureKind = "rate_limited"
	FailureMalformed   FailureKind = "malformed_response"
	FailureNetwork     FailureKind = "network_error"
)

// Transient reports whether a failure of this kind is worth retrying.
// Auth failures and malformed payloads won't improve on retry.
func (k FailureKind) Transient() bool {
	switch k {
	case FailureTimeout, FailureRateLimited, FailureNetwork:
		return true
	default:
		return false
	}
}

// LLMError wraps an upstream failure with its classification.
type LLMError struct {
	Kind FailureKind
	Err  error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// FailureKindOf extracts the classification from an error, defaulting to
// network for anything unclassified.
func FailureKindOf(err error) FailureKind {
	var le *LLMError
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureNetwork
}

// LLMClient is the live AI backend collaborator. Implementations must honor
// the context deadline and classify every failure with an LLMError.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
	Health(ctx context.Context) error
}

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
}

func NewOpenAIClient() *OpenAIClient {
	timeout := envInt("AI_REQUEST_TIMEOUT_SECONDS", 30)
	return &OpenAIClient{
		baseURL:     strings.TrimRight(envString("LLM_BASE_URL", "https://api.openai.com"), "/"),
		apiKey:      envString("LLM_API_KEY", ""),
		model:       envString("LLM_MODEL", "gpt-4o-mini"),
		maxTokens:   envInt("LLM_MAX_TOKENS", 1500),
		temperature: envFloat("LLM_TEMPERATURE", 0.3),
		// Backstop only; per-attempt deadlines come from the caller's context.
		client: &http.Client{Timeout: time.Duration(timeout+10) * time.Second},
	}
}

// Configured reports whether the client has enough configuration to attempt
// a live call at all.
func (c *OpenAIClient) Configured() bool {
	return c.apiKey != "" && c.baseURL != ""
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one chat completion request and returns the raw assistant
// message. Failures always come back as *LLMError.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", &LLMError{Kind: FailureAuth, Err: errors.New("LLM_API_KEY not configured")}
	}

	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SYSTEM_PROMPT},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &LLMError{Kind: FailureMalformed, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &LLMError{Kind: FailureNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		kind := classifyTransportError(ctx, err)
		logger.WithLLM("", "chat_completion").Warnf("LLM request failed after %v: %v", elapsed, err)
		return "", &LLMError{Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		kind := classifyStatus(resp.StatusCode)
		logger.WithLLM("", "chat_completion").Warnf("LLM API returned status %d after %v", resp.StatusCode, elapsed)
		return "", &LLMError{
			Kind: kind,
			Err:  fmt.Errorf("LLM API returned status %d, body: %s", resp.StatusCode, truncateForLog(string(body))),
		}
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &LLMError{Kind: FailureMalformed, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &LLMError{Kind: FailureMalformed, Err: errors.New("response contained no choices")}
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Health probes the models endpoint to check reachability and credentials.
func (c *OpenAIClient) Health(ctx context.Context) error {
	if !c.Configured() {
		return &LLMError{Kind: FailureAuth, Err: errors.New("LLM_API_KEY not configured")}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/v1/models", c.baseURL), nil)
	if err != nil {
		return &LLMError{Kind: FailureNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return &LLMError{Kind: classifyTransportError(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &LLMError{
			Kind: classifyStatus(resp.StatusCode),
			Err:  fmt.Errorf("models endpoint returned status %d", resp.StatusCode),
		}
	}
	return nil
}

func classifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status >= 500:
		return FailureNetwork
	default:
		return FailureMalformed
	}
}

func classifyTransportError(ctx context.Context, err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}

func truncateForLog(s string) string {
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// LLMAnalysisPayload is the JSON document the model is instructed to return.
type LLMAnalysisPayload struct {
	Summary      string     `json:"summary"`
	Severity     string     `json:"severity"`
	RootCause    string     `json:"root_cause"`
	Keywords     []string   `json:"keywords"`
	Remediations []string   `json:"remediations"`
	Confidence   float64    `json:"confidence"`
	Issues       []LLMIssue `json:"issues"`
}

type LLMIssue struct {
	LineNumber int     `json:"line_number"`
	Snippet    string  `json:"snippet"`
	Category   string  `json:"category"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
}

// ParseAnalysisResponse cleans and validates the raw model output. Markdown
// code fences are tolerated; anything that does not decode to a payload with
// a summary is a malformed response.
func ParseAnalysisResponse(response string) (*LLMAnalysisPayload, error) {
	cleanResponse := strings.TrimSpace(response)

	// Remove markdown code blocks if present
	if strings.HasPrefix(cleanResponse, "```json") {
		cleanResponse = strings.TrimPrefix(cleanResponse, "```json")
	}
	if strings.HasPrefix(cleanResponse, "```") {
		cleanResponse = strings.TrimPrefix(cleanResponse, "```")
	}
	if strings.HasSuffix(cleanResponse, "```") {
		cleanResponse = strings.TrimSuffix(cleanResponse, "```")
	}
	cleanResponse = strings.TrimSpace(cleanResponse)

	if !strings.HasPrefix(cleanResponse, "{") {
		return nil, &LLMError{
			Kind: FailureMalformed,
			Err:  fmt.Errorf("LLM did not return a JSON object, raw response: %q", truncateForLog(cleanResponse)),
		}
	}

	var payload LLMAnalysisPayload
	if err := json.Unmarshal([]byte(cleanResponse), &payload); err != nil {
		return nil, &LLMError{
			Kind: FailureMalformed,
			Err:  fmt.Errorf("failed to parse JSON response: %w", err),
		}
	}

	if strings.TrimSpace(payload.Summary) == "" {
		return nil, &LLMError{Kind: FailureMalformed, Err: errors.New("response missing required summary field")}
	}

	if payload.Confidence <= 0 || payload.Confidence > 1 {
		payload.Confidence = 0.85
	}
	if payload.Keywords == nil {
		payload.Keywords = []string{}
	}
	if payload.Remediations == nil {
		payload.Remediations = []string{}
	}
	if payload.RootCause == "" {
		payload.RootCause = "Unable to determine root cause"
	}

	return &payload, nil
}

// ToAnalysisResult converts a validated payload into the persistent result
// shape, normalizing severities and enforcing the overall-severity invariant
// when per-issue severities are present.
func (p *LLMAnalysisPayload) ToAnalysisResult() *models.AnalysisResult {
	issues := make(models.IssueList, 0, len(p.Issues))
	overall := models.NormalizeSeverity(p.Severity)
	fromIssues := models.SeverityLow
	for _, issue := range p.Issues {
		sev := models.NormalizeSeverity(issue.Severity)
		conf := issue.Confidence
		if conf <= 0 || conf > 1 {
			conf = p.Confidence
		}
		issues = append(issues, models.DetectedIssue{
			LineNumber: issue.LineNumber,
			Snippet:    issue.Snippet,
			Category:   issue.Category,
			Severity:   sev,
			Confidence: conf,
		})
		fromIssues = models.MaxSeverity(fromIssues, sev)
	}
	if len(issues) > 0 {
		overall = fromIssues
	}

	return &models.AnalysisResult{
		Summary:      p.Summary,
		Severity:     overall,
		Confidence:   p.Confidence,
		Source:       models.SourceLLM,
		Issues:       issues,
		Remediations: p.Remediations,
		Keywords:     p.Keywords,
		RootCause:    p.RootCause,
	}
}
