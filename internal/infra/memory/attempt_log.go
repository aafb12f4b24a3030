package memory

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"wellness-check-service/internal/domain"
)

// AttemptLog records scored attempts in memory. Used when no database is configured.
type AttemptLog struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	records []domain.AttemptRecord
}

func NewAttemptLog(logger *zap.Logger) *AttemptLog {
	return &AttemptLog{logger: logger}
}

func (l *AttemptLog) RecordAttempt(_ context.Context, record domain.AttemptRecord) error {
	l.mu.Lock()
	l.records = append(l.records, record)
	l.mu.Unlock()
	l.logger.Debug("attempt recorded",
		zap.String("user_id", record.UserID),
		zap.String("attempt_id", record.ID),
		zap.Int("score", record.Score),
	)
	return nil
}

// Records returns the attempts recorded for a user, oldest first.
func (l *AttemptLog) Records(userID string) []domain.AttemptRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []domain.AttemptRecord
	for _, r := range l.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}
