package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"wellness-check-service/internal/domain"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:wellness_attempts"`

	ID             string    `bun:"id,pk,type:uuid"`
	UserID         string    `bun:"user_id,notnull"`
	Question       string    `bun:"question,notnull"`
	Answer         string    `bun:"answer,notnull"`
	CorrectAnswer  string    `bun:"correct_answer,notnull"`
	Score          int16     `bun:"score,notnull"`
	ResponseTimeMs int32     `bun:"response_time_ms,notnull"`
	TakenAt        time.Time `bun:"taken_at,notnull"`
}

// AttemptRecorder stores scored attempts in the wellness_attempts table.
type AttemptRecorder struct {
	db *bun.DB
}

func NewAttemptRecorder(db *bun.DB) *AttemptRecorder {
	return &AttemptRecorder{db: db}
}

func (r *AttemptRecorder) RecordAttempt(ctx context.Context, record domain.AttemptRecord) error {
	row := &attemptRow{
		ID:             record.ID,
		UserID:         record.UserID,
		Question:       record.Question,
		Answer:         record.Answer,
		CorrectAnswer:  record.CorrectAnswer,
		Score:          int16(record.Score),
		ResponseTimeMs: int32(record.ResponseTimeMs),
		TakenAt:        record.TakenAt,
	}
	if _, err := r.db.NewInsert().Model(row).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the latest attempts of a user, newest first.
func (r *AttemptRecorder) RecentAttempts(ctx context.Context, userID string, limit int) ([]domain.AttemptRecord, error) {
	var rows []attemptRow
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		OrderExpr("taken_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AttemptRecord{
			ID:             row.ID,
			UserID:         row.UserID,
			Question:       row.Question,
			Answer:         row.Answer,
			CorrectAnswer:  row.CorrectAnswer,
			Score:          int(row.Score),
			ResponseTimeMs: int64(row.ResponseTimeMs),
			TakenAt:        row.TakenAt,
		})
	}
	return out, nil
}
