package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
)

// Outbox is a notifier that only logs and retains escalation events.
type Outbox struct {
	logger *zap.Logger
	mu     sync.RWMutex
	events []domain.EscalationEvent
}

func NewOutbox(logger *zap.Logger) *Outbox {
	return &Outbox{logger: logger}
}

func (o *Outbox) NotifyDelegates(_ context.Context, event domain.EscalationEvent) error {
	o.mu.Lock()
	o.events = append(o.events, event)
	o.mu.Unlock()
	o.logger.Warn("delegate notification queued (no mail transport configured)",
		zap.String("user_id", event.UserID),
		zap.Strings("delegates", event.Delegates.Emails),
		zap.Time("test_time", event.UserDetails.TestTime),
	)
	return nil
}

// Events returns the escalations seen so far.
func (o *Outbox) Events() []domain.EscalationEvent {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]domain.EscalationEvent(nil), o.events...)
}
