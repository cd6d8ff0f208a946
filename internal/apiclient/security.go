package apiclient

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/stemsi/exstem-player/internal/model"
)

// GetSecurityConfig fetches the security record. A missing record surfaces
// as an *APIError with status 404; use IsNotFound.
func (c *Client) GetSecurityConfig(ctx context.Context, quizID string) (*model.SecurityConfig, error) {
	if strings.TrimSpace(quizID) == "" {
		return nil, errQuizIDRequired
	}
	var cfg model.SecurityConfig
	if err := c.doJSON(ctx, http.MethodGet, quizPath(quizID, "/security"), nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CreateSecurityConfig POSTs a record that has no backend id yet.
func (c *Client) CreateSecurityConfig(ctx context.Context, cfg *model.SecurityConfig) (*model.SecurityConfig, error) {
	return c.saveSecurityConfig(ctx, http.MethodPost, cfg)
}

// UpdateSecurityConfig PUTs the whole record, replacing what the backend has.
func (c *Client) UpdateSecurityConfig(ctx context.Context, cfg *model.SecurityConfig) (*model.SecurityConfig, error) {
	if cfg.ID == nil {
		return nil, errors.New("security config id is required for update")
	}
	return c.saveSecurityConfig(ctx, http.MethodPut, cfg)
}

func (c *Client) saveSecurityConfig(ctx context.Context, method string, cfg *model.SecurityConfig) (*model.SecurityConfig, error) {
	if strings.TrimSpace(cfg.QuizID) == "" {
		return nil, errQuizIDRequired
	}
	var saved model.SecurityConfig
	if err := c.doJSON(ctx, method, quizPath(cfg.QuizID, "/security"), cfg, &saved); err != nil {
		return nil, err
	}
	// Some backends answer 204 or an empty body; echo what we sent.
	if saved.QuizID == "" {
		saved = *cfg
	}
	return &saved, nil
}
