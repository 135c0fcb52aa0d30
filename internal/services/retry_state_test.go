package services

import (
	"testing"
	"time"
)

func TestStartRetry(t *testing.T) {
	state := StartRetry()
	if state.Phase != PhaseAttempting {
		t.Errorf("Expected initial phase attempting, got %s", state.Phase)
	}
	if state.Attempt != 1 {
		t.Errorf("Expected initial attempt 1, got %d", state.Attempt)
	}
}

func TestNextRetryStateTransitions(t *testing.T) {
	maxAttempts := 3

	tests := []struct {
		name    string
		state   RetryState
		outcome AttemptOutcome
		want    RetryState
	}{
		{
			name:    "success finishes",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 1},
			outcome: OutcomeSuccess,
			want:    RetryState{Phase: PhaseDone, Attempt: 1},
		},
		{
			name:    "permanent failure falls back immediately",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 1},
			outcome: OutcomePermanent,
			want:    RetryState{Phase: PhaseFallback, Attempt: 1},
		},
		{
			name:    "transient failure with attempts left backs off",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 1},
			outcome: OutcomeTransient,
			want:    RetryState{Phase: PhaseBackoff, Attempt: 1},
		},
		{
			name:    "transient failure on second attempt backs off",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 2},
			outcome: OutcomeTransient,
			want:    RetryState{Phase: PhaseBackoff, Attempt: 2},
		},
		{
			name:    "transient failure on final attempt falls back",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 3},
			outcome: OutcomeTransient,
			want:    RetryState{Phase: PhaseFallback, Attempt: 3},
		},
		{
			name:    "success on final attempt still finishes",
			state:   RetryState{Phase: PhaseAttempting, Attempt: 3},
			outcome: OutcomeSuccess,
			want:    RetryState{Phase: PhaseDone, Attempt: 3},
		},
		{
			name:    "backoff proceeds to the next attempt",
			state:   RetryState{Phase: PhaseBackoff, Attempt: 1},
			outcome: OutcomeTransient,
			want:    RetryState{Phase: PhaseAttempting, Attempt: 2},
		},
		{
			name:    "done is terminal",
			state:   RetryState{Phase: PhaseDone, Attempt: 2},
			outcome: OutcomeTransient,
			want:    RetryState{Phase: PhaseDone, Attempt: 2},
		},
		{
			name:    "fallback is terminal",
			state:   RetryState{Phase: PhaseFallback, Attempt: 3},
			outcome: OutcomeSuccess,
			want:    RetryState{Phase: PhaseFallback, Attempt: 3},
		},
	}

	for _, test := range tests {
		got := NextRetryState(test.state, test.outcome, maxAttempts)
		if got != test.want {
			t.Errorf("%s: expected %+v, got %+v", test.name, test.want, got)
		}
	}
}

// Walking the machine with permanent transient failures must visit exactly
// maxAttempts attempting states before landing in fallback.
func TestRetryMachineAttemptBudget(t *testing.T) {
	maxAttempts := 3
	state := StartRetry()
	attempts := 0

	for i := 0; i < 20 && state.Phase != PhaseFallback; i++ {
		if state.Phase == PhaseAttempting {
			attempts++
		}
		state = NextRetryState(state, OutcomeTransient, maxAttempts)
	}

	if attempts != maxAttempts {
		t.Errorf("Expected %d attempts before fallback, got %d", maxAttempts, attempts)
	}
	if state.Phase != PhaseFallback {
		t.Errorf("Expected terminal phase fallback, got %s", state.Phase)
	}
}

func TestBackoffDelayGrowth(t *testing.T) {
	base := 500 * time.Millisecond
	max := 8 * time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 500 * time.Millisecond}, // clamped to attempt 1
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 8 * time.Second},
		{6, 8 * time.Second}, // capped
		{10, 8 * time.Second},
	}

	for _, test := range tests {
		if got := BackoffDelay(test.attempt, base, max); got != test.want {
			t.Errorf("Attempt %d: expected %v, got %v", test.attempt, test.want, got)
		}
	}
}

func TestEqualJitterBounds(t *testing.T) {
	d := 4 * time.Second
	for i := 0; i < 200; i++ {
		j := equalJitter(d)
		if j < d/2 || j > d {
			t.Fatalf("Expected jitter within [%v, %v], got %v", d/2, d, j)
		}
	}

	if j := equalJitter(0); j != 0 {
		t.Errorf("Expected zero jitter for zero delay, got %v", j)
	}
}
