package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswerSet  Action = "answer_set"
	ActionFlagToggle Action = "flag_toggle"
	ActionNavigate   Action = "navigate"
	ActionPause      Action = "pause"
	ActionResume     Action = "resume"
	ActionSubmit     Action = "submit"
	ActionPing       Action = "ping"
)

// Request is every client message. Only the fields the action needs are read.
type Request struct {
	Action     Action          `json:"action"`
	QuestionID string          `json:"question_id,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	Index      *int            `json:"index,omitempty"`
	Confirmed  bool            `json:"confirmed,omitempty"`
}

// SessionAction maps a client request to a controller action. Ping has no
// session counterpart and is handled by the transport.
func (r *Request) SessionAction() (session.Action, error) {
	switch r.Action {
	case ActionAnswerSet:
		if r.QuestionID == "" {
			return session.Action{}, fmt.Errorf("question_id is required")
		}
		return session.Action{Type: session.ActionAnswerSet, QuestionID: r.QuestionID, Value: r.Value}, nil
	case ActionFlagToggle:
		if r.QuestionID == "" {
			return session.Action{}, fmt.Errorf("question_id is required")
		}
		return session.Action{Type: session.ActionFlagToggle, QuestionID: r.QuestionID}, nil
	case ActionNavigate:
		if r.Index == nil {
			return session.Action{}, fmt.Errorf("index is required")
		}
		return session.Action{Type: session.ActionNavigate, Index: *r.Index}, nil
	case ActionPause:
		return session.Action{Type: session.ActionPause}, nil
	case ActionResume:
		return session.Action{Type: session.ActionResume}, nil
	case ActionSubmit:
		return session.Action{Type: session.ActionSubmit, Confirmed: r.Confirmed}, nil
	default:
		return session.Action{}, fmt.Errorf("unknown action: %s", r.Action)
	}
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

type StateResponse struct {
	Event Event              `json:"event"`
	State model.SessionState `json:"state"`
}

type SubmittedResponse struct {
	Event  Event               `json:"event"`
	Result *model.SubmitResult `json:"result"`
}

type ErrorResponse struct {
	Event  Event             `json:"event"`
	Code   string            `json:"code,omitempty"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
