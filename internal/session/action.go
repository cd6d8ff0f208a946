package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// ActionType tags a Dispatch message.
type ActionType string

const (
	ActionAnswerSet  ActionType = "ANSWER_SET"
	ActionFlagToggle ActionType = "FLAG_TOGGLE"
	ActionNavigate   ActionType = "NAVIGATE"
	ActionTick       ActionType = "TICK"
	ActionPause      ActionType = "PAUSE"
	ActionResume     ActionType = "RESUME"
	ActionSubmit     ActionType = "SUBMIT"
)

// Action is one view event. Only the fields relevant to Type are read.
type Action struct {
	Type       ActionType
	QuestionID string
	Value      json.RawMessage
	Index      int
	// Confirmed skips the unanswered-questions prompt on SUBMIT.
	Confirmed bool
}

// Dispatch applies a tagged action to the session.
func (c *Controller) Dispatch(ctx context.Context, a Action) error {
	switch a.Type {
	case ActionAnswerSet:
		return c.SetAnswer(a.QuestionID, a.Value)
	case ActionFlagToggle:
		return c.ToggleFlag(a.QuestionID)
	case ActionNavigate:
		return c.Navigate(a.Index)
	case ActionTick:
		return c.Tick(ctx)
	case ActionPause:
		return c.Pause()
	case ActionResume:
		return c.Resume()
	case ActionSubmit:
		var err error
		if a.Confirmed {
			_, err = c.SubmitWith(ctx, false, Confirmed)
		} else {
			_, err = c.Submit(ctx, false)
		}
		return err
	default:
		return fmt.Errorf("unknown action %q", a.Type)
	}
}
