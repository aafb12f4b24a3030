package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"wellness-check-service/internal/wellness"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own live timers, so they stay in a local map.
//   - Redis marks which users have an open check, which lets other instances or operators see
//     live sessions; the marker expires on its own if this process dies.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*wellness.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*wellness.Session),
	}
}

func (s *SessionStore) GetOrCreate(userID string, create func() (*wellness.Session, error)) (*wellness.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok && !session.Closed() {
		// best-effort liveness refresh
		_ = s.client.Expire(context.Background(), s.key(userID), s.ttl).Err()
		return session, nil
	}
	session, err := create()
	if err != nil {
		return nil, err
	}
	s.sessions[userID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(userID), "1", s.ttl).Err()
	return session, nil
}

func (s *SessionStore) Get(userID string) (*wellness.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// UserIDs lists users with a session held by this process.
func (s *SessionStore) UserIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; !ok {
		return
	}
	delete(s.sessions, userID)
	_ = s.client.Del(context.Background(), s.key(userID)).Err()
}

func (s *SessionStore) key(userID string) string {
	return "wellness:session:" + userID
}
