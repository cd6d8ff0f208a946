package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/stemsi/exstem-player/internal/model"
)

var errQuizIDRequired = errors.New("quiz id is required")

func quizPath(quizID string, suffix string) string {
	return "/quizzes/" + url.PathEscape(quizID) + suffix
}

// GetQuiz fetches the question set for a quiz or assignment.
func (c *Client) GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return nil, errQuizIDRequired
	}
	var quiz model.Quiz
	if err := c.doJSON(ctx, http.MethodGet, quizPath(quizID, ""), nil, &quiz); err != nil {
		return nil, err
	}
	if quiz.ID == "" {
		quiz.ID = quizID
	}
	return &quiz, nil
}

// SubmitQuiz posts the full answer map. idempotencyKey should stay the same
// across user retries of one attempt so the backend can dedupe.
func (c *Client) SubmitQuiz(ctx context.Context, quizID string, req model.SubmitRequest, idempotencyKey string) (*model.SubmitResult, error) {
	if strings.TrimSpace(quizID) == "" {
		return nil, errQuizIDRequired
	}
	h := http.Header{}
	if idempotencyKey != "" {
		h.Set("X-Idempotency-Key", idempotencyKey)
	}
	var result model.SubmitResult
	if err := c.doJSON(ctx, http.MethodPost, quizPath(quizID, "/submit"), req, &result, h); err != nil {
		return nil, err
	}
	return &result, nil
}
