package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bugseek/backend/internal/logger"
	"github.com/bugseek/backend/internal/models"
)

// CorpusProvider supplies feature vectors of previously analyzed logs for
// similarity ranking.
type CorpusProvider interface {
	FetchRecentVectors(excludingID string, limit int) (map[string]models.FeatureVector, error)
}

// AnalysisOutcome is everything one analysis call produced. LLMAttempts
// counts retry-machine attempts against the live backend (0 when the live
// path was skipped).
type AnalysisOutcome struct {
	Result      *models.AnalysisResult
	Matches     []models.SimilarityMatch
	LLMAttempts int
}

// AnalysisOrchestrator is the single entry point for analyzing a log: it
// tries the live LLM backend under the retry state machine, falls back to
// the local pattern analyzer on any exhausted or permanent failure, and
// ranks similar historical logs. Analyze never returns an error; the worst
// case is a degraded fallback-tagged result.
type AnalysisOrchestrator struct {
	llm        LLMClient
	fallback   *FallbackAnalyzer
	extractor  *TextFeatureExtractor
	similarity *SimilarityIndex
	corpus     CorpusProvider

	enabled        bool
	maxRetries     int
	requestTimeout time.Duration
	backoffBase    time.Duration
	backoffMax     time.Duration
	corpusLimit    int
	jitter         func(time.Duration) time.Duration

	cacheMu     sync.RWMutex
	vectorCache map[string]models.FeatureVector
}

func NewAnalysisOrchestrator(llm LLMClient, fallback *FallbackAnalyzer, extractor *TextFeatureExtractor, similarity *SimilarityIndex, corpus CorpusProvider) *AnalysisOrchestrator {
	return &AnalysisOrchestrator{
		llm:            llm,
		fallback:       fallback,
		extractor:      extractor,
		similarity:     similarity,
		corpus:         corpus,
		enabled:        envBool("AI_ANALYSIS_ENABLED", true),
		maxRetries:     envInt("AI_MAX_RETRIES", 3),
		requestTimeout: time.Duration(envInt("AI_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		backoffBase:    time.Duration(envInt("AI_BACKOFF_BASE_MS", 500)) * time.Millisecond,
		backoffMax:     time.Duration(envInt("AI_BACKOFF_MAX_SECONDS", 8)) * time.Second,
		corpusLimit:    envInt("SIMILARITY_CORPUS_LIMIT", 200),
		jitter:         equalJitter,
		vectorCache:    make(map[string]models.FeatureVector),
	}
}

// Analyze runs the full pipeline for one log. The returned result is tagged
// with the source that produced it; similarity matches are attached to it
// and also returned on the outcome.
func (ao *AnalysisOrchestrator) Analyze(ctx context.Context, crID, text, team, module string) *AnalysisOutcome {
	outcome := &AnalysisOutcome{}

	if ao.liveEnabled() {
		result, attempts := ao.tryLLM(ctx, crID, text, team, module)
		outcome.LLMAttempts = attempts
		outcome.Result = result
		if result != nil && len(result.Remediations) == 0 {
			ao.enrichRemediations(ctx, crID, result, text)
		}
	} else {
		logger.WithAnalysis(crID, string(models.SourceFallback)).Info("live analysis disabled or unconfigured, using fallback")
	}

	if outcome.Result == nil {
		outcome.Result = ao.fallback.Analyze(text, team, module)
	}

	vec := ao.vectorFor(crID, text)
	outcome.Matches = ao.rankSimilar(crID, vec)

	outcome.Result.CrID = crID
	outcome.Result.SimilarMatches = models.MatchList(outcome.Matches)
	return outcome
}

func (ao *AnalysisOrchestrator) liveEnabled() bool {
	return ao.enabled && ao.llm != nil && ao.llm.Configured()
}

// tryLLM drives the retry state machine against the live backend. It returns
// nil when the machine lands in fallback, along with the number of attempts
// actually made.
func (ao *AnalysisOrchestrator) tryLLM(ctx context.Context, crID, text, team, module string) (*models.AnalysisResult, int) {
	prompt := buildAnalysisPrompt(team, module, text)

	var result *models.AnalysisResult
	attempts := 0
	state := StartRetry()

	for {
		switch state.Phase {
		case PhaseAttempting:
			attempts++
			raw, err := ao.completeOnce(ctx, prompt)
			if err == nil {
				payload, perr := ParseAnalysisResponse(raw)
				if perr == nil {
					result = payload.ToAnalysisResult()
					state = NextRetryState(state, OutcomeSuccess, ao.maxRetries)
					continue
				}
				err = perr
			}

			kind := FailureKindOf(err)
			outcome := OutcomePermanent
			if kind.Transient() && ctx.Err() == nil {
				outcome = OutcomeTransient
			}
			logger.WithLLM(crID, "analysis").Warnf("attempt %d failed (%s): %v", state.Attempt, kind, err)
			state = NextRetryState(state, outcome, ao.maxRetries)

		case PhaseBackoff:
			if !ao.waitBackoff(ctx, state.Attempt) {
				return nil, attempts
			}
			state = NextRetryState(state, OutcomeTransient, ao.maxRetries)

		case PhaseFallback:
			logger.WithAnalysis(crID, string(models.SourceFallback)).Infof("live analysis exhausted after %d attempt(s)", attempts)
			return nil, attempts

		case PhaseDone:
			logger.WithAnalysis(crID, string(models.SourceLLM)).Infof("live analysis succeeded on attempt %d", attempts)
			return result, attempts
		}
	}
}

func (ao *AnalysisOrchestrator) completeOnce(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, ao.requestTimeout)
	defer cancel()
	return ao.llm.Complete(attemptCtx, prompt)
}

// enrichRemediations makes one follow-up request when a live analysis came
// back without fixes. Best effort: any failure leaves the result untouched.
func (ao *AnalysisOrchestrator) enrichRemediations(ctx context.Context, crID string, result *models.AnalysisResult, text string) {
	raw, err := ao.completeOnce(ctx, buildRemediationPrompt(result.Summary, string(result.Severity), text))
	if err != nil {
		logger.WithLLM(crID, "remediation").Warnf("follow-up request failed: %v", err)
		return
	}
	payload, err := ParseAnalysisResponse(raw)
	if err != nil || len(payload.Remediations) == 0 {
		logger.WithLLM(crID, "remediation").Warn("follow-up produced no usable remediations")
		return
	}
	result.Remediations = payload.Remediations
}

// waitBackoff sleeps the jittered delay for the given failed attempt.
// Returns false when the caller's context ended first.
func (ao *AnalysisOrchestrator) waitBackoff(ctx context.Context, attempt int) bool {
	delay := ao.jitter(BackoffDelay(attempt, ao.backoffBase, ao.backoffMax))
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// FeatureVectorFor exposes the cached vector so callers persisting analysis
// memories reuse the same extraction.
func (ao *AnalysisOrchestrator) FeatureVectorFor(crID, text string) models.FeatureVector {
	return ao.vectorFor(crID, text)
}

// vectorFor returns the cached feature vector for a log, extracting and
// caching it on first use. The cache is append-only; concurrent extraction
// for the same ID keeps the first stored vector (extraction is deterministic
// so both are identical anyway).
func (ao *AnalysisOrchestrator) vectorFor(crID, text string) models.FeatureVector {
	ao.cacheMu.RLock()
	vec, ok := ao.vectorCache[crID]
	ao.cacheMu.RUnlock()
	if ok {
		return vec
	}

	vec = ao.extractor.Extract(text)

	ao.cacheMu.Lock()
	if existing, ok := ao.vectorCache[crID]; ok {
		vec = existing
	} else {
		ao.vectorCache[crID] = vec
	}
	ao.cacheMu.Unlock()
	return vec
}

func (ao *AnalysisOrchestrator) rankSimilar(crID string, vec models.FeatureVector) []models.SimilarityMatch {
	if ao.corpus == nil || len(vec) == 0 {
		return nil
	}
	corpus, err := ao.corpus.FetchRecentVectors(crID, ao.corpusLimit)
	if err != nil {
		logger.WithError(err, "analysis_orchestrator").Warn("failed to fetch similarity corpus, skipping matches")
		return nil
	}
	return ao.similarity.Rank(vec, corpus)
}

// LLMHealth probes the configured live backend.
func (ao *AnalysisOrchestrator) LLMHealth(ctx context.Context) error {
	if ao.llm == nil || !ao.llm.Configured() {
		return &LLMError{Kind: FailureAuth, Err: fmt.Errorf("live LLM backend not configured")}
	}
	return ao.llm.Health(ctx)
}

// Enabled reports the AI feature flag state.
func (ao *AnalysisOrchestrator) Enabled() bool {
	return ao.enabled
}

func buildAnalysisPrompt(team, module, text string) string {
	if len(text) > SUMMARY_PROMPT_CONTENT_CAP {
		text = text[:SUMMARY_PROMPT_CONTENT_CAP]
	}
	return fmt.Sprintf(ERROR_ANALYSIS_PROMPT, team, module, text)
}

func buildRemediationPrompt(summary, severity, text string) string {
	if len(text) > REMEDIATION_PROMPT_CONTENT_CAP {
		text = text[:REMEDIATION_PROMPT_CONTENT_CAP]
	}
	return fmt.Sprintf(REMEDIATION_PROMPT, summary, severity, text)
}
