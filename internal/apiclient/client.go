// Package apiclient wraps the backend REST endpoints the player calls.
// Calls are single-shot: nothing here retries.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/response"
)

// ErrServiceUnavailable wraps transport-level failures (DNS, refused, timeout).
var ErrServiceUnavailable = errors.New("backend unavailable")

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Code       response.ErrCode
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// envelope mirrors the backend's {data, error, metadata} response shape.
type envelope struct {
	Data     json.RawMessage     `json:"data"`
	Error    *response.ErrorBody `json:"error,omitempty"`
	Metadata response.Metadata   `json:"metadata"`
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Identity       *auth.Identity
	MaxUploadBytes int64
	Log            zerolog.Logger
}

// Client talks to the backend API on behalf of one identity.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	identity       *auth.Identity
	maxUploadBytes int64
	log            zerolog.Logger
}

// New creates a Client. A nil HTTPClient gets a 15 second timeout.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080/api/v1"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     httpClient,
		identity:       opts.Identity,
		maxUploadBytes: maxUpload,
		log:            opts.Log.With().Str("component", "api_client").Logger(),
	}
}

// WithIdentity returns a copy of c that authenticates as id.
func (c *Client) WithIdentity(id *auth.Identity) *Client {
	clone := *c
	clone.identity = id
	return &clone
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody, responseData any, headers ...http.Header) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	h := http.Header{}
	if requestBody != nil {
		h.Set("Content-Type", "application/json")
	}
	for _, extra := range headers {
		for k, v := range extra {
			h[k] = v
		}
	}
	return c.do(ctx, method, path, body, h, responseData)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers http.Header, responseData any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	reqID, ok := response.RequestIDFromContext(ctx)
	if !ok {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	if authz := c.identity.AuthorizationHeader(); authz != "" {
		req.Header.Set("Authorization", authz)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Msg("Request failed")
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Backend call")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp, raw)
	}

	if responseData == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, responseData); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response, raw []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error != nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		apiErr.Fields = env.Error.Fields
	}
	if apiErr.Message == "" {
		// Some gateways answer with {"error": "..."} or plain text.
		var flat struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &flat); err == nil && flat.Error != "" {
			apiErr.Message = flat.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}
