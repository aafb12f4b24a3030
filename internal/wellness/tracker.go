package wellness

import (
	"fmt"
	"time"

	"wellness-check-service/internal/domain"
)

const (
	DefaultFailureWindow    = 30 * time.Minute
	DefaultFailureThreshold = 2
)

// EscalationPolicy controls whether delegates hear about every qualifying failure or only the
// first one after the threshold is crossed.
type EscalationPolicy string

const (
	// EscalateOnce notifies when the threshold is first reached; the tracker must reset before
	// another notification goes out.
	EscalateOnce EscalationPolicy = "once"
	// EscalateEvery notifies on every failure at or above the threshold.
	EscalateEvery EscalationPolicy = "every"
)

// ParseEscalationPolicy maps a config value to a policy; empty means EscalateOnce.
func ParseEscalationPolicy(raw string) (EscalationPolicy, error) {
	switch EscalationPolicy(raw) {
	case "", EscalateOnce:
		return EscalateOnce, nil
	case EscalateEvery:
		return EscalateEvery, nil
	default:
		return "", fmt.Errorf("unknown escalation policy %q", raw)
	}
}

// FailureTracker counts consecutive failed checks inside a rolling window.
// It is not safe for concurrent use; a Session guards it with its own lock.
type FailureTracker struct {
	window    time.Duration
	threshold int
	policy    EscalationPolicy
	state     domain.TrackerState
}

func NewFailureTracker(window time.Duration, threshold int, policy EscalationPolicy) *FailureTracker {
	if window <= 0 {
		window = DefaultFailureWindow
	}
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	if policy == "" {
		policy = EscalateOnce
	}
	return &FailureTracker{window: window, threshold: threshold, policy: policy}
}

// RecordSuccess resets the tracker.
func (t *FailureTracker) RecordSuccess() {
	t.state = domain.TrackerState{}
}

// RecordFailure registers a failed check at now and reports whether delegates should be notified.
func (t *FailureTracker) RecordFailure(now time.Time) bool {
	last := t.state.LastFailureAt
	if last != nil && now.Sub(*last) < t.window {
		t.state.ConsecutiveFailures++
	} else {
		t.state.ConsecutiveFailures = 1
		t.state.Notified = false
	}
	at := now
	t.state.LastFailureAt = &at

	if t.state.ConsecutiveFailures < t.threshold {
		return false
	}
	if t.policy == EscalateOnce && t.state.Notified {
		return false
	}
	t.state.Notified = true
	return true
}

// State returns a copy of the current counters.
func (t *FailureTracker) State() domain.TrackerState {
	out := t.state
	if t.state.LastFailureAt != nil {
		at := *t.state.LastFailureAt
		out.LastFailureAt = &at
	}
	return out
}

// Restore replaces the counters, e.g. with state loaded from a store.
func (t *FailureTracker) Restore(state domain.TrackerState) {
	if state.ConsecutiveFailures < 0 {
		state.ConsecutiveFailures = 0
	}
	if state.LastFailureAt != nil {
		at := *state.LastFailureAt
		state.LastFailureAt = &at
	}
	t.state = state
}
