package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded        = errors.New("session not loaded")
	ErrAlreadyLoaded    = errors.New("session already loaded")
	ErrSessionClosed    = errors.New("session is closed")
	ErrSubmitInProgress = errors.New("submission in progress")
	ErrSubmitCancelled  = errors.New("submission cancelled")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrInvalidIndex     = errors.New("question index out of range")
	ErrTimeUp           = errors.New("time is up")
)

// LoadError means the quiz could not be fetched. The session is exited.
type LoadError struct {
	QuizID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load quiz %s: %v", e.QuizID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SubmitError means the submission call failed. Local state is kept so the
// caller can retry.
type SubmitError struct {
	QuizID string
	Err    error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submit quiz %s: %v", e.QuizID, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// ConfirmationRequiredError is returned by a manual submit with unanswered
// questions when no Confirmer is available to ask.
type ConfirmationRequiredError struct {
	Answered int
	Total    int
}

func (e *ConfirmationRequiredError) Error() string {
	return fmt.Sprintf("%d of %d questions unanswered, confirmation required", e.Total-e.Answered, e.Total)
}
