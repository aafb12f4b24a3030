package wellness

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"wellness-check-service/internal/clock"
	"wellness-check-service/internal/domain"
)

const tick = time.Second

// Timings are the durations of the three timed phases. Each is counted down in whole seconds.
type Timings struct {
	Study    time.Duration
	GetReady time.Duration
	Response time.Duration
}

// DefaultTimings matches the standard check: 10s study, 5s get-ready, 7s response window.
func DefaultTimings() Timings {
	return Timings{Study: 10 * time.Second, GetReady: 5 * time.Second, Response: 7 * time.Second}
}

// Validate rejects phases shorter than one tick.
func (t Timings) Validate() error {
	for name, d := range map[string]time.Duration{"study": t.Study, "get_ready": t.GetReady, "response": t.Response} {
		if d < tick {
			return fmt.Errorf("%w: %s is %v", domain.ErrInvalidTimings, name, d)
		}
	}
	return nil
}

// Outcome is produced once per scored attempt.
type Outcome struct {
	UserID   string
	Attempt  domain.QuizAttempt
	Tracker  domain.TrackerState
	Escalate bool
}

// OutcomeHandler receives scored attempts. Implementations must not block.
type OutcomeHandler interface {
	HandleOutcome(ctx context.Context, outcome Outcome)
}

// OutcomeHandlerFunc adapts a function to OutcomeHandler.
type OutcomeHandlerFunc func(ctx context.Context, outcome Outcome)

func (f OutcomeHandlerFunc) HandleOutcome(ctx context.Context, outcome Outcome) { f(ctx, outcome) }

// SessionConfig collects the collaborators of a Session.
type SessionConfig struct {
	UserID  string
	Clock   clock.Clock
	Pools   *WordPools
	Timings Timings
	Tracker *FailureTracker
	Seed    int64
	Handler OutcomeHandler
	Logger  *zap.Logger
}

// Session runs the wellness check for one user. Timed phases advance on one-second ticks; each
// phase owns at most one pending timer which is stopped whenever the phase is left.
type Session struct {
	userID  string
	clock   clock.Clock
	pools   *WordPools
	timings Timings
	tracker *FailureTracker
	rnd     *rand.Rand
	handler OutcomeHandler
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	phase       domain.Phase
	remaining   int
	epoch       uint64
	timer       clock.Timer
	attempt     *domain.QuizAttempt
	subscribers map[chan domain.Snapshot]struct{}
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.Pools == nil {
		cfg.Pools = DefaultWordPools()
	}
	if cfg.Timings == (Timings{}) {
		cfg.Timings = DefaultTimings()
	}
	if err := cfg.Timings.Validate(); err != nil {
		return nil, err
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewFailureTracker(DefaultFailureWindow, DefaultFailureThreshold, EscalateOnce)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Handler == nil {
		cfg.Handler = OutcomeHandlerFunc(func(context.Context, Outcome) {})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		userID:      cfg.UserID,
		clock:       cfg.Clock,
		pools:       cfg.Pools,
		timings:     cfg.Timings,
		tracker:     cfg.Tracker,
		rnd:         rand.New(rand.NewSource(cfg.Seed)),
		handler:     cfg.Handler,
		logger:      cfg.Logger.With(zap.String("user_id", cfg.UserID)),
		ctx:         ctx,
		cancel:      cancel,
		phase:       domain.PhaseInstructions,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}, nil
}

// Start begins a new attempt. It is only accepted from the instructions or result phase.
func (s *Session) Start() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseClosed:
		return domain.Snapshot{}, domain.ErrSessionClosed
	case domain.PhaseInstructions, domain.PhaseResult:
	default:
		return s.snapshotLocked(), domain.ErrQuizInProgress
	}

	s.attempt = &domain.QuizAttempt{
		ID:          uuid.NewString(),
		PromptWords: s.pools.PickStudySet(s.rnd),
	}
	s.enterLocked(domain.PhaseShowing, s.timings.Study)
	s.logger.Debug("wellness check started", zap.String("attempt_id", s.attempt.ID))
	return s.broadcastLocked(), nil
}

// Answer scores the selected word. It is only accepted during the response window.
func (s *Session) Answer(word string) (domain.Snapshot, error) {
	s.mu.Lock()
	switch {
	case s.phase == domain.PhaseClosed:
		s.mu.Unlock()
		return domain.Snapshot{}, domain.ErrSessionClosed
	case s.phase != domain.PhaseTesting:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrNotAcceptingAnswers
	case word == "" || !contains(s.attempt.Options, word):
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrUnknownOption
	}

	outcome := s.scoreLocked(word)
	snap := s.broadcastLocked()
	s.mu.Unlock()

	s.handler.HandleOutcome(s.ctx, outcome)
	return snap, nil
}

// Restart dismisses the result and returns to the instructions. The failure tracker is kept so
// consecutive failures across restarts can still reach the escalation threshold.
func (s *Session) Restart() (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case domain.PhaseClosed:
		return domain.Snapshot{}, domain.ErrSessionClosed
	case domain.PhaseInstructions:
		return s.snapshotLocked(), nil
	case domain.PhaseResult:
	default:
		return s.snapshotLocked(), domain.ErrNoResult
	}

	s.attempt = nil
	s.enterLocked(domain.PhaseInstructions, 0)
	return s.broadcastLocked(), nil
}

// Close stops any pending timer, cancels the session context and releases subscribers.
// It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == domain.PhaseClosed {
		return
	}
	s.enterLocked(domain.PhaseClosed, 0)
	s.cancel()
	s.broadcastLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.logger.Debug("wellness session closed")
}

// Snapshot returns the current render state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.Phase() == domain.PhaseClosed
}

// Idle reports whether nobody is watching the session.
func (s *Session) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0
}

// UserID returns the owner of the session.
func (s *Session) UserID() string { return s.userID }

// Subscribe returns a channel of state updates, primed with the current state.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	if s.phase == domain.PhaseClosed {
		ch <- s.snapshotLocked()
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// enterLocked leaves the current phase (stopping its timer) and enters p with a countdown of d.
func (s *Session) enterLocked(p domain.Phase, d time.Duration) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
	s.phase = p
	s.remaining = int(d / tick)
	if s.remaining > 0 {
		s.scheduleTickLocked()
	}
}

func (s *Session) scheduleTickLocked() {
	epoch := s.epoch
	s.timer = s.clock.AfterFunc(tick, func() { s.onTick(epoch) })
}

func (s *Session) onTick(epoch uint64) {
	s.mu.Lock()
	// A tick from a phase that has already been left must not act.
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.remaining--

	var outcome *Outcome
	if s.remaining == 0 {
		switch s.phase {
		case domain.PhaseShowing:
			s.enterLocked(domain.PhaseCountdown, s.timings.GetReady)
		case domain.PhaseCountdown:
			s.beginTestingLocked()
		case domain.PhaseTesting:
			o := s.scoreLocked("")
			outcome = &o
		}
	} else {
		s.scheduleTickLocked()
	}
	s.broadcastLocked()
	s.mu.Unlock()

	if outcome != nil {
		s.handler.HandleOutcome(s.ctx, *outcome)
	}
}

func (s *Session) beginTestingLocked() {
	a := s.attempt
	a.Distractor = s.pools.PickDistractor(s.rnd, a.PromptWords)
	a.Options = BuildOptions(s.rnd, a.PromptWords, a.Distractor)
	a.TestStarted = s.clock.Now()
	s.enterLocked(domain.PhaseTesting, s.timings.Response)
}

func (s *Session) scoreLocked(selected string) Outcome {
	now := s.clock.Now()
	a := s.attempt
	a.Selected = selected
	a.IsCorrect = selected != "" && selected == a.Distractor
	a.AnsweredAt = now
	a.ResponseTime = now.Sub(a.TestStarted)

	escalate := false
	if a.IsCorrect {
		s.tracker.RecordSuccess()
	} else {
		escalate = s.tracker.RecordFailure(now)
	}
	s.enterLocked(domain.PhaseResult, 0)

	state := s.tracker.State()
	s.logger.Info("wellness check scored",
		zap.String("attempt_id", a.ID),
		zap.Bool("correct", a.IsCorrect),
		zap.Bool("timed_out", selected == ""),
		zap.Duration("response_time", a.ResponseTime),
		zap.Int("consecutive_failures", state.ConsecutiveFailures),
		zap.Bool("escalate", escalate),
	)

	attempt := *a
	attempt.PromptWords = append([]string(nil), a.PromptWords...)
	attempt.Options = append([]string(nil), a.Options...)
	return Outcome{
		UserID:   s.userID,
		Attempt:  attempt,
		Tracker:  state,
		Escalate: escalate,
	}
}

func (s *Session) broadcastLocked() domain.Snapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the stale update so a slow reader only ever sees the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		UserID:              s.userID,
		Phase:               s.phase,
		Remaining:           s.remaining,
		ConsecutiveFailures: s.tracker.State().ConsecutiveFailures,
		UpdatedAt:           s.clock.Now(),
	}
	a := s.attempt
	if a == nil {
		return snap
	}
	switch s.phase {
	case domain.PhaseShowing:
		snap.Words = append([]string(nil), a.PromptWords...)
	case domain.PhaseTesting:
		snap.Options = append([]string(nil), a.Options...)
	case domain.PhaseResult:
		correct := a.IsCorrect
		snap.Options = append([]string(nil), a.Options...)
		snap.Selected = a.Selected
		snap.Correct = &correct
		snap.CorrectAnswer = a.Distractor
		snap.ResponseTimeMs = a.ResponseTime.Milliseconds()
	}
	return snap
}
