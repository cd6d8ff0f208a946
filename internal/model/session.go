package model

import "encoding/json"

// SessionStatus enumerates quiz session lifecycle states.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusSubmitting SessionStatus = "submitting"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusExited     SessionStatus = "exited"
)

// AutosaveStatus is derived from whether a snapshot write is pending.
type AutosaveStatus string

const (
	AutosaveSaving AutosaveStatus = "saving"
	AutosaveSaved  AutosaveStatus = "saved"
)

// SessionSnapshot is the locally persisted form of an in-progress session,
// stored under config.CacheKey.QuizProgressKey(quizID).
type SessionSnapshot struct {
	Answers              map[string]json.RawMessage `json:"answers"`
	CurrentQuestionIndex int                        `json:"current_question_index"`
	FlaggedQuestions     []string                   `json:"flagged_questions"`
	TimeRemainingSeconds *int                       `json:"time_remaining_seconds,omitempty"`
}

// SessionState is the read model handed to views.
type SessionState struct {
	QuizID               string                     `json:"quiz_id"`
	Title                string                     `json:"title"`
	Questions            []Question                 `json:"questions"`
	Answers              map[string]json.RawMessage `json:"answers"`
	CurrentQuestionIndex int                        `json:"current_question_index"`
	FlaggedQuestions     []string                   `json:"flagged_questions"`
	TimeRemainingSeconds *int                       `json:"time_remaining_seconds,omitempty"`
	Paused               bool                       `json:"paused"`
	AutosaveStatus       AutosaveStatus             `json:"autosave_status"`
	Status               SessionStatus              `json:"status"`
	Answered             int                        `json:"answered"`
	Total                int                        `json:"total"`
	Result               *SubmitResult              `json:"result,omitempty"`
}

// SubmitSessionRequest is the companion-server payload for finishing a session.
type SubmitSessionRequest struct {
	Confirmed bool `json:"confirmed"`
}

// NavigateRequest moves the question cursor.
type NavigateRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// SetAnswerRequest carries a raw answer value from the view.
type SetAnswerRequest struct {
	Value json.RawMessage `json:"value" binding:"required"`
}
