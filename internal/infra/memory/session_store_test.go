package memory

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
	"wellness-check-service/internal/wellness"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	created := 0
	create := func() (*wellness.Session, error) {
		created++
		return wellness.NewSession(wellness.SessionConfig{UserID: "u1"})
	}

	session, err := store.GetOrCreate("u1", create)
	if err != nil || session == nil {
		t.Fatalf("expected session, got %v", err)
	}
	if again, _ := store.GetOrCreate("u1", create); again != session || created != 1 {
		t.Fatalf("expected the same session to be reused")
	}
	if _, ok := store.Get("u1"); !ok {
		t.Fatalf("expected session present")
	}

	session.Close()
	if replaced, _ := store.GetOrCreate("u1", create); replaced == session || created != 2 {
		t.Fatalf("expected a closed session to be replaced")
	}

	if ids := store.UserIDs(); len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("expected u1 listed, got %v", ids)
	}

	store.Delete("u1")
	if ids := store.UserIDs(); len(ids) != 0 {
		t.Fatalf("expected no users after delete, got %v", ids)
	}
	if _, ok := store.Get("u1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestTrackerStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewTrackerStore()

	last := time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, "u1", domain.TrackerState{ConsecutiveFailures: 1, LastFailureAt: &last}); err != nil {
		t.Fatalf("save: %v", err)
	}
	state, err := store.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if state.ConsecutiveFailures != 1 || !state.LastFailureAt.Equal(last) {
		t.Fatalf("unexpected state %+v", state)
	}

	_ = store.Save(ctx, "u1", domain.TrackerState{})
	if state, _ := store.Load(ctx, "u1"); state.ConsecutiveFailures != 0 || state.LastFailureAt != nil {
		t.Fatalf("expected cleared state, got %+v", state)
	}
}

func TestAttemptLogAndOutbox(t *testing.T) {
	ctx := context.Background()
	log := NewAttemptLog(zap.NewNop())
	_ = log.RecordAttempt(ctx, domain.AttemptRecord{ID: "a1", UserID: "u1", Score: 1})
	_ = log.RecordAttempt(ctx, domain.AttemptRecord{ID: "a2", UserID: "u2"})
	if got := log.Records("u1"); len(got) != 1 || got[0].ID != "a1" {
		t.Fatalf("unexpected records %+v", got)
	}

	outbox := NewOutbox(zap.NewNop())
	_ = outbox.NotifyDelegates(ctx, domain.EscalationEvent{UserID: "u1", Delegates: domain.DelegateList{Emails: []string{"sam@example.com"}}})
	if events := outbox.Events(); len(events) != 1 || events[0].UserID != "u1" {
		t.Fatalf("unexpected events %+v", events)
	}
}
