package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
	"wellness-check-service/internal/wellness"
)

// AttemptRecorder persists scored attempts.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, record domain.AttemptRecord) error
}

// DelegateDirectory lists the verified delegate addresses of a user.
type DelegateDirectory interface {
	VerifiedDelegateEmails(ctx context.Context, userID string) ([]string, error)
}

// Notifier tells delegates about an escalation.
type Notifier interface {
	NotifyDelegates(ctx context.Context, event domain.EscalationEvent) error
}

// TrackerStore keeps failure tracker state between sessions.
type TrackerStore interface {
	Load(ctx context.Context, userID string) (domain.TrackerState, error)
	Save(ctx context.Context, userID string, state domain.TrackerState) error
}

const defaultSideEffectTimeout = 10 * time.Second

// Dispatcher runs the side effects of scored attempts in the background. Failures are logged and
// never reach the quiz. Side effects outlive the session that produced them; only the per-effect
// timeout bounds them.
type Dispatcher struct {
	recorder  AttemptRecorder
	directory DelegateDirectory
	notifier  Notifier
	trackers  TrackerStore
	timeout   time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(recorder AttemptRecorder, directory DelegateDirectory, notifier Notifier, trackers TrackerStore, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultSideEffectTimeout
	}
	return &Dispatcher{
		recorder:  recorder,
		directory: directory,
		notifier:  notifier,
		trackers:  trackers,
		timeout:   timeout,
		logger:    logger,
	}
}

// HandleOutcome implements wellness.OutcomeHandler. It returns immediately.
func (d *Dispatcher) HandleOutcome(ctx context.Context, outcome wellness.Outcome) {
	log := d.logger.With(zap.String("user_id", outcome.UserID), zap.String("attempt_id", outcome.Attempt.ID))

	d.spawn(ctx, log, "record attempt", func(ctx context.Context) error {
		return d.recorder.RecordAttempt(ctx, AttemptRecordFor(outcome))
	})
	if d.trackers != nil {
		d.spawn(ctx, log, "save failure tracker", func(ctx context.Context) error {
			return d.trackers.Save(ctx, outcome.UserID, outcome.Tracker)
		})
	}
	if outcome.Escalate {
		d.spawn(ctx, log, "notify delegates", func(ctx context.Context) error {
			return d.escalate(ctx, log, outcome)
		})
	}
}

// Wait blocks until every spawned side effect has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) escalate(ctx context.Context, log *zap.Logger, outcome wellness.Outcome) error {
	emails, err := d.directory.VerifiedDelegateEmails(ctx, outcome.UserID)
	if err != nil && !errors.Is(err, domain.ErrDelegatesNotFound) {
		return fmt.Errorf("lookup delegates: %w", err)
	}
	if len(emails) == 0 {
		log.Warn("escalation skipped: no verified delegates")
		return nil
	}

	event := EscalationEventFor(outcome, emails)
	if err := d.notifier.NotifyDelegates(ctx, event); err != nil {
		return fmt.Errorf("notify %d delegates: %w", len(emails), err)
	}
	log.Info("delegates notified", zap.Int("delegates", len(emails)))
	return nil
}

func (d *Dispatcher) spawn(parent context.Context, log *zap.Logger, name string, fn func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Error("side effect panicked", zap.String("effect", name), zap.Any("panic", r))
			}
		}()

		// Closing the session must not cancel an escalation that is already on its way.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			log.Error("side effect failed", zap.String("effect", name), zap.Error(err))
		}
	}()
}

// AttemptRecordFor builds the persisted form of a scored attempt.
func AttemptRecordFor(outcome wellness.Outcome) domain.AttemptRecord {
	a := outcome.Attempt
	score := 0
	if a.IsCorrect {
		score = 1
	}
	return domain.AttemptRecord{
		ID:             a.ID,
		UserID:         outcome.UserID,
		Question:       "Which word was not shown? " + strings.Join(a.Options, ", "),
		Answer:         a.Selected,
		CorrectAnswer:  a.Distractor,
		Score:          score,
		ResponseTimeMs: a.ResponseTime.Milliseconds(),
		TakenAt:        a.AnsweredAt,
	}
}

// EscalationEventFor builds the delegate notification payload.
func EscalationEventFor(outcome wellness.Outcome, emails []string) domain.EscalationEvent {
	a := outcome.Attempt
	return domain.EscalationEvent{
		UserDetails: domain.AttemptDetails{
			TestTime:       a.TestStarted,
			Words:          append([]string(nil), a.PromptWords...),
			SelectedAnswer: a.Selected,
			CorrectAnswer:  a.Distractor,
			ResponseTimeMs: a.ResponseTime.Milliseconds(),
		},
		Delegates: domain.DelegateList{Emails: append([]string(nil), emails...)},
		UserID:    outcome.UserID,
	}
}
