package domain

import "time"

// Phase is a stage of the wellness check quiz.
type Phase string

const (
	PhaseInstructions Phase = "instructions"
	PhaseShowing      Phase = "showing"
	PhaseCountdown    Phase = "countdown"
	PhaseTesting      Phase = "testing"
	PhaseResult       Phase = "result"
	PhaseClosed       Phase = "closed"
)

// QuizAttempt is the per-test state: the study words, the recognition options and the answer.
type QuizAttempt struct {
	ID           string
	PromptWords  []string
	Distractor   string
	Options      []string
	Selected     string // empty when the response window elapsed
	IsCorrect    bool
	ResponseTime time.Duration
	TestStarted  time.Time
	AnsweredAt   time.Time
}

// TrackerState is the persisted form of a failure tracker.
type TrackerState struct {
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	Notified            bool       `json:"notified"`
}

// AttemptRecord is what gets persisted for every scored attempt.
type AttemptRecord struct {
	ID             string
	UserID         string
	Question       string
	Answer         string
	CorrectAnswer  string
	Score          int // 1 correct, 0 otherwise
	ResponseTimeMs int64
	TakenAt        time.Time
}

// AttemptDetails describes the attempt that triggered an escalation.
type AttemptDetails struct {
	TestTime       time.Time `json:"testTime"`
	Words          []string  `json:"words"`
	SelectedAnswer string    `json:"selectedAnswer"`
	CorrectAnswer  string    `json:"correctAnswer"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
}

// DelegateList carries the verified delegate addresses for a user.
type DelegateList struct {
	Emails []string `json:"emails"`
}

// EscalationEvent is sent to delegates after repeated failed checks.
type EscalationEvent struct {
	UserDetails AttemptDetails `json:"userDetails"`
	Delegates   DelegateList   `json:"delegates"`
	UserID      string         `json:"userId"`
}

// Snapshot is the render-friendly view of a quiz session.
type Snapshot struct {
	UserID              string    `json:"userId"`
	Phase               Phase     `json:"phase"`
	Remaining           int       `json:"remaining"` // seconds left in a timed phase
	Words               []string  `json:"words,omitempty"`
	Options             []string  `json:"options,omitempty"`
	Selected            string    `json:"selected,omitempty"`
	Correct             *bool     `json:"correct,omitempty"`
	CorrectAnswer       string    `json:"correctAnswer,omitempty"`
	ResponseTimeMs      int64     `json:"responseTimeMs,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	UpdatedAt           time.Time `json:"updatedAt"`
}
