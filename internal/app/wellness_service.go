package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wellness-check-service/internal/clock"
	"wellness-check-service/internal/domain"
	"wellness-check-service/internal/wellness"
)

// SessionRepository abstracts where open wellness sessions live (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(userID string, create func() (*wellness.Session, error)) (*wellness.Session, error)
	Get(userID string) (*wellness.Session, bool)
	Delete(userID string)
	UserIDs() []string
}

// Settings configures the sessions created by the service.
type Settings struct {
	Timings          wellness.Timings
	FailureWindow    time.Duration
	FailureThreshold int
	Policy           wellness.EscalationPolicy
	Pools            *wellness.WordPools
}

// WellnessService contains the wellness check use cases.
type WellnessService struct {
	sessions SessionRepository
	trackers TrackerStore
	handler  wellness.OutcomeHandler
	clock    clock.Clock
	settings Settings
	logger   *zap.Logger
	seed     func() int64
}

func NewWellnessService(sessions SessionRepository, trackers TrackerStore, handler wellness.OutcomeHandler, settings Settings, logger *zap.Logger) *WellnessService {
	return NewWellnessServiceWithClock(sessions, trackers, handler, settings, logger, clock.Real{})
}

// NewWellnessServiceWithClock is used by tests to drive timed phases deterministically.
func NewWellnessServiceWithClock(sessions SessionRepository, trackers TrackerStore, handler wellness.OutcomeHandler, settings Settings, logger *zap.Logger, c clock.Clock) *WellnessService {
	if settings.Pools == nil {
		settings.Pools = wellness.DefaultWordPools()
	}
	return &WellnessService{
		sessions: sessions,
		trackers: trackers,
		handler:  handler,
		clock:    c,
		settings: settings,
		logger:   logger,
		seed:     func() int64 { return time.Now().UnixNano() },
	}
}

// Open returns the user's session, creating it and restoring the failure tracker if needed.
func (s *WellnessService) Open(ctx context.Context, userID string) (domain.Snapshot, error) {
	session, err := s.sessions.GetOrCreate(userID, func() (*wellness.Session, error) {
		return s.newSession(ctx, userID)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Start begins a new check for the user.
func (s *WellnessService) Start(_ context.Context, userID string) (domain.Snapshot, error) {
	session, err := s.get(userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Start()
}

// Answer submits the selected word during the response window.
func (s *WellnessService) Answer(_ context.Context, userID, word string) (domain.Snapshot, error) {
	session, err := s.get(userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Answer(word)
}

// Restart dismisses the result screen; the failure streak carries over to the next check.
func (s *WellnessService) Restart(_ context.Context, userID string) (domain.Snapshot, error) {
	session, err := s.get(userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Restart()
}

// Snapshot returns the current state of the user's session.
func (s *WellnessService) Snapshot(_ context.Context, userID string) (domain.Snapshot, error) {
	session, err := s.get(userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives state updates for the user's session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *WellnessService) Subscribe(_ context.Context, userID string) (<-chan domain.Snapshot, func(), error) {
	session, err := s.get(userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

// Close ends the user's session and cancels its timers. Side effects already dispatched still run.
func (s *WellnessService) Close(_ context.Context, userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(userID)
}

// CloseAll closes every open session. Called on shutdown before draining the dispatcher so no
// timer can dispatch new side effects while the drain is running.
func (s *WellnessService) CloseAll(ctx context.Context) {
	for _, userID := range s.sessions.UserIDs() {
		s.Close(ctx, userID)
	}
}

// Leave closes the session once nobody is watching it any more.
func (s *WellnessService) Leave(ctx context.Context, userID string) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	if session.Idle() {
		s.Close(ctx, userID)
	}
}

func (s *WellnessService) get(userID string) (*wellness.Session, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *WellnessService) newSession(ctx context.Context, userID string) (*wellness.Session, error) {
	tracker := wellness.NewFailureTracker(s.settings.FailureWindow, s.settings.FailureThreshold, s.settings.Policy)
	if s.trackers != nil {
		state, err := s.trackers.Load(ctx, userID)
		if err != nil {
			s.logger.Error("load failure tracker", zap.String("user_id", userID), zap.Error(err))
		} else {
			tracker.Restore(state)
		}
	}

	return wellness.NewSession(wellness.SessionConfig{
		UserID:  userID,
		Clock:   s.clock,
		Pools:   s.settings.Pools,
		Timings: s.settings.Timings,
		Tracker: tracker,
		Seed:    s.seed(),
		Handler: s.handler,
		Logger:  s.logger,
	})
}
