package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no wellness session is open for a user.
	ErrSessionNotFound = errors.New("wellness session not found")
	// ErrSessionClosed is returned for any operation on a closed session.
	ErrSessionClosed = errors.New("wellness session closed")
	// ErrQuizInProgress rejects a start request while a quiz is running.
	ErrQuizInProgress = errors.New("quiz already in progress")
	// ErrNotAcceptingAnswers is returned when an answer arrives outside the response window.
	ErrNotAcceptingAnswers = errors.New("quiz is not accepting answers")
	// ErrUnknownOption indicates the selected word is not one of the offered options.
	ErrUnknownOption = errors.New("option not offered")
	// ErrNoResult is returned when restarting a session that has no result to dismiss.
	ErrNoResult = errors.New("quiz has no result to dismiss")
	// ErrInvalidWordPool indicates the configured word tables cannot produce valid attempts.
	ErrInvalidWordPool = errors.New("invalid word pool")
	// ErrInvalidTimings indicates a timed phase shorter than one tick.
	ErrInvalidTimings = errors.New("invalid quiz timings")
	// ErrDelegatesNotFound indicates the directory has no entry for a user.
	ErrDelegatesNotFound = errors.New("delegates not found")
)
