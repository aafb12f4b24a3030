package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"wellness-check-service/internal/domain"
)

// TrackerStore persists failure trackers so a reconnecting user keeps their streak.
// State is stored as: HSET wellness:tracker:{userID} count {n} last_failure_at {rfc3339} notified {0|1}
// The key expires one failure window after the last failure, after which the streak is void anyway.
type TrackerStore struct {
	client *redis.Client
	window time.Duration
}

func NewTrackerStore(client *redis.Client, window time.Duration) *TrackerStore {
	return &TrackerStore{client: client, window: window}
}

func (s *TrackerStore) Load(ctx context.Context, userID string) (domain.TrackerState, error) {
	fields, err := s.client.HGetAll(ctx, s.key(userID)).Result()
	if err != nil {
		return domain.TrackerState{}, fmt.Errorf("load tracker: %w", err)
	}
	if len(fields) == 0 {
		return domain.TrackerState{}, nil
	}

	var state domain.TrackerState
	if raw, ok := fields["count"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.TrackerState{}, fmt.Errorf("parse tracker count: %w", err)
		}
		state.ConsecutiveFailures = n
	}
	if raw, ok := fields["last_failure_at"]; ok && raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.TrackerState{}, fmt.Errorf("parse tracker timestamp: %w", err)
		}
		state.LastFailureAt = &at
	}
	state.Notified = fields["notified"] == "1"
	return state, nil
}

func (s *TrackerStore) Save(ctx context.Context, userID string, state domain.TrackerState) error {
	key := s.key(userID)
	if state.ConsecutiveFailures == 0 || state.LastFailureAt == nil {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("clear tracker: %w", err)
		}
		return nil
	}

	notified := "0"
	if state.Notified {
		notified = "1"
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"count", state.ConsecutiveFailures,
		"last_failure_at", state.LastFailureAt.UTC().Format(time.RFC3339Nano),
		"notified", notified,
	)
	if s.window > 0 {
		pipe.Expire(ctx, key, s.window)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save tracker: %w", err)
	}
	return nil
}

func (s *TrackerStore) key(userID string) string {
	return "wellness:tracker:" + userID
}
