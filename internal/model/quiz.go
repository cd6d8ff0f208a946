package model

import (
	"encoding/json"
	"time"
)

// Quiz is the question set returned by the backend for a quiz or assignment.
type Quiz struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"time_limit_minutes,omitempty"`
	PassingScore     float64    `json:"passing_score,omitempty"`
	Questions        []Question `json:"questions"`
}

// Timed reports whether the quiz enforces a time limit.
func (q *Quiz) Timed() bool {
	return q.TimeLimitMinutes > 0
}

// TimeBudgetSeconds is the full countdown for a fresh session.
func (q *Quiz) TimeBudgetSeconds() int {
	if !q.Timed() {
		return 0
	}
	return q.TimeLimitMinutes * 60
}

// QuestionIDs returns the identifier set of the quiz.
func (q *Quiz) QuestionIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		ids[question.ID] = struct{}{}
	}
	return ids
}

// SubmitRequest is the payload POSTed when a quiz attempt is finished.
type SubmitRequest struct {
	Answers          map[string]json.RawMessage `json:"answers"`
	AutoSubmitted    bool                       `json:"auto_submitted"`
	TimeSpentSeconds int                        `json:"time_spent_seconds,omitempty"`
}

// SubmitResult is the backend's grading outcome.
type SubmitResult struct {
	AttemptID   string    `json:"attempt_id"`
	Score       float64   `json:"score"`
	MaxScore    float64   `json:"max_score"`
	Percentage  float64   `json:"percentage"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submitted_at"`
}
