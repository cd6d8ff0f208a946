//go:build e2e
// +build e2e

// Package e2e drives a running player against a real quiz backend.
//
//	PLAYER_URL      player API base (default http://localhost:8090/api/v1)
//	E2E_QUIZ_ID     quiz to take (required)
//	E2E_TOKEN       bearer token for the backend
//	DATABASE_URL    when set, snapshot rows are checked in quiz_progress
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
)

const defaultBaseURL = "http://localhost:8090/api/v1"

var (
	baseURL string
	dbURL   string
	quizID  string
	token   string
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")

	baseURL = os.Getenv("PLAYER_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	dbURL = os.Getenv("DATABASE_URL")
	quizID = os.Getenv("E2E_QUIZ_ID")
	token = os.Getenv("E2E_TOKEN")

	if quizID == "" {
		fmt.Println("E2E_QUIZ_ID not set, skipping e2e suite")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func call(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
	}
	return resp.StatusCode, env
}

func state(t *testing.T, env envelope) model.SessionState {
	t.Helper()
	var s model.SessionState
	if err := json.Unmarshal(env.Data, &s); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return s
}

// snapshotRows counts quiz_progress rows for the quiz under any user prefix.
func snapshotRows(t *testing.T) int {
	t.Helper()
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	defer conn.Close(ctx)

	var n int
	key := config.CacheKey.QuizProgressKey(quizID)
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM quiz_progress WHERE key = $1 OR key LIKE '%:' || $1`, key).Scan(&n); err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	return n
}

func TestE2EFlow(t *testing.T) {
	// Start from a clean slate in case a previous run left a session behind.
	call(t, http.MethodDelete, "/sessions/"+quizID, nil)

	var loaded model.SessionState
	t.Run("Load", func(t *testing.T) {
		code, env := call(t, http.MethodPost, "/sessions/"+quizID, nil)
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %+v", code, env.Error)
		}
		loaded = state(t, env)
		if loaded.Total == 0 {
			t.Fatalf("quiz %s has no questions", quizID)
		}
	})

	first := loaded.Questions[0]
	t.Run("AnswerAndAutosave", func(t *testing.T) {
		code, env := call(t, http.MethodPut, "/sessions/"+quizID+"/answers/"+first.ID, map[string]interface{}{"value": 0})
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %+v", code, env.Error)
		}
		if dbURL == "" {
			t.Skip("DATABASE_URL not set")
		}
		deadline := time.Now().Add(10 * time.Second)
		for snapshotRows(t) == 0 {
			if time.Now().After(deadline) {
				t.Fatal("snapshot was never written")
			}
			time.Sleep(500 * time.Millisecond)
		}
	})

	t.Run("FlagAndNavigate", func(t *testing.T) {
		if code, env := call(t, http.MethodPost, "/sessions/"+quizID+"/flags/"+first.ID, nil); code != http.StatusOK {
			t.Fatalf("flag: %d %+v", code, env.Error)
		}
		code, env := call(t, http.MethodPost, "/sessions/"+quizID+"/navigate", map[string]int{"index": loaded.Total})
		if code != http.StatusBadRequest {
			t.Fatalf("expected out-of-range navigate to fail, got %d", code)
		}
		_ = env
	})

	t.Run("SubmitNeedsConfirmation", func(t *testing.T) {
		if loaded.Total < 2 {
			t.Skip("single-question quiz is always complete")
		}
		code, env := call(t, http.MethodPost, "/sessions/"+quizID+"/submit", nil)
		if code != http.StatusConflict || env.Error == nil || env.Error.Code != response.ErrConfirmationRequired {
			t.Fatalf("expected confirmation prompt, got %d %+v", code, env.Error)
		}
	})

	t.Run("Submit", func(t *testing.T) {
		code, env := call(t, http.MethodPost, "/sessions/"+quizID+"/submit", map[string]bool{"confirmed": true})
		if code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %+v", code, env.Error)
		}
		var result model.SubmitResult
		if err := json.Unmarshal(env.Data, &result); err != nil || result.AttemptID == "" {
			t.Fatalf("expected an attempt id, got %s", env.Data)
		}
		if dbURL != "" && snapshotRows(t) != 0 {
			t.Fatal("snapshot left behind after submit")
		}
	})
}
