package wellness

import (
	"testing"
	"time"

	"wellness-check-service/internal/domain"
)

var t0 = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

func TestTrackerWindowExpiredResetsCount(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateOnce)

	if tr.RecordFailure(t0) {
		t.Fatalf("first failure must not escalate")
	}
	if tr.RecordFailure(t0.Add(31 * time.Minute)) {
		t.Fatalf("failure outside the window must not escalate")
	}
	if got := tr.State().ConsecutiveFailures; got != 1 {
		t.Fatalf("expected count 1 after window expiry, got %d", got)
	}
}

func TestTrackerAccumulatesInsideWindow(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateOnce)

	escalations := 0
	if tr.RecordFailure(t0) {
		escalations++
	}
	if tr.RecordFailure(t0.Add(10 * time.Minute)) {
		escalations++
	}
	if got := tr.State().ConsecutiveFailures; got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
	if escalations != 1 {
		t.Fatalf("expected exactly one escalation, got %d", escalations)
	}
}

func TestTrackerWindowBoundaryIsExclusive(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateOnce)
	tr.RecordFailure(t0)
	if tr.RecordFailure(t0.Add(30 * time.Minute)) {
		t.Fatalf("failure exactly one window later must start a new streak")
	}
	if got := tr.State().ConsecutiveFailures; got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
}

func TestTrackerSuccessResets(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateOnce)
	tr.RecordFailure(t0)
	tr.RecordFailure(t0.Add(time.Minute))
	tr.RecordFailure(t0.Add(2 * time.Minute))

	tr.RecordSuccess()
	state := tr.State()
	if state.ConsecutiveFailures != 0 || state.LastFailureAt != nil || state.Notified {
		t.Fatalf("expected cleared tracker, got %+v", state)
	}
}

func TestTrackerOncePolicyNotifiesPerCrossing(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateOnce)

	results := []bool{
		tr.RecordFailure(t0),
		tr.RecordFailure(t0.Add(5 * time.Minute)),
		tr.RecordFailure(t0.Add(10 * time.Minute)),
		tr.RecordFailure(t0.Add(15 * time.Minute)),
	}
	want := []bool{false, true, false, false}
	for i := range want {
		if results[i] != want[i] {
			t.Fatalf("failure %d: escalate=%v, want %v", i+1, results[i], want[i])
		}
	}

	// A gap longer than the window starts a fresh streak that may escalate again.
	tr.RecordFailure(t0.Add(time.Hour))
	if !tr.RecordFailure(t0.Add(time.Hour + time.Minute)) {
		t.Fatalf("expected a new escalation after the tracker reset")
	}
}

func TestTrackerEveryPolicyNotifiesEachFailure(t *testing.T) {
	tr := NewFailureTracker(30*time.Minute, 2, EscalateEvery)
	tr.RecordFailure(t0)
	for i := 1; i <= 3; i++ {
		if !tr.RecordFailure(t0.Add(time.Duration(i) * time.Minute)) {
			t.Fatalf("failure %d above threshold should escalate", i+1)
		}
	}
}

func TestTrackerRestoreCopiesState(t *testing.T) {
	tr := NewFailureTracker(0, 0, "")
	last := t0
	tr.Restore(domain.TrackerState{ConsecutiveFailures: 1, LastFailureAt: &last})
	last = t0.Add(-time.Hour)

	if !tr.RecordFailure(t0.Add(5 * time.Minute)) {
		t.Fatalf("restored failure should count toward the threshold")
	}
}

func TestParseEscalationPolicy(t *testing.T) {
	if p, err := ParseEscalationPolicy(""); err != nil || p != EscalateOnce {
		t.Fatalf("empty policy: got %q, %v", p, err)
	}
	if p, err := ParseEscalationPolicy("every"); err != nil || p != EscalateEvery {
		t.Fatalf("every policy: got %q, %v", p, err)
	}
	if _, err := ParseEscalationPolicy("sometimes"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
