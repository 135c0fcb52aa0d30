package services

import (
	"math/rand"
	"time"
)

// RetryPhase names a state of the LLM retry machine.
type RetryPhase string

const (
	PhaseAttempting RetryPhase = "attempting"
	PhaseBackoff    RetryPhase = "backoff"
	PhaseFallback   RetryPhase = "fallback"
	PhaseDone       RetryPhase = "done"
)

// RetryState is one state of the retry machine. Attempt is 1-based and names
// the attempt being made (attempting) or just failed (backoff). Fallback and
// done are terminal.
type RetryState struct {
	Phase   RetryPhase
	Attempt int
}

// AttemptOutcome classifies what happened to an upstream attempt.
type AttemptOutcome string

const (
	OutcomeSuccess   AttemptOutcome = "success"
	OutcomeTransient AttemptOutcome = "transient_failure"
	OutcomePermanent AttemptOutcome = "permanent_failure"
)

// StartRetry returns the machine's initial state.
func StartRetry() RetryState {
	return RetryState{Phase: PhaseAttempting, Attempt: 1}
}

// NextRetryState is the pure transition function of the retry machine.
//
//	attempting --success--------------------> done
//	attempting --permanent failure---------> fallback
//	attempting --transient, attempts left--> backoff
//	attempting --transient, attempts used--> fallback
//	backoff    ------------------------------> attempting (next attempt)
//
// The outcome argument only matters in the attempting phase; backoff always
// proceeds to the next attempt, and terminal states return themselves.
func NextRetryState(s RetryState, outcome AttemptOutcome, maxAttempts int) RetryState {
	switch s.Phase {
	case PhaseAttempting:
		switch outcome {
		case OutcomeSuccess:
			return RetryState{Phase: PhaseDone, Attempt: s.Attempt}
		case OutcomePermanent:
			return RetryState{Phase: PhaseFallback, Attempt: s.Attempt}
		default:
			if s.Attempt >= maxAttempts {
				return RetryState{Phase: PhaseFallback, Attempt: s.Attempt}
			}
			return RetryState{Phase: PhaseBackoff, Attempt: s.Attempt}
		}
	case PhaseBackoff:
		return RetryState{Phase: PhaseAttempting, Attempt: s.Attempt + 1}
	default:
		return s
	}
}

// BackoffDelay returns the pre-jitter delay after the given (1-based) failed
// attempt: base doubled per completed attempt, capped at max.
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// equalJitter spreads a delay uniformly across [d/2, d] so simultaneous
// failures don't retry in lockstep while later attempts still wait longer
// than earlier ones.
func equalJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
