package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(srv *httptest.Server, id *auth.Identity) *Client {
	return New(Options{
		BaseURL:        srv.URL + "/",
		HTTPClient:     srv.Client(),
		Identity:       id,
		MaxUploadBytes: 1024,
		Log:            zerolog.Nop(),
	})
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, status int, data any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"data": data, "metadata": map[string]string{"request_id": "r"}}); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestGetQuizDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/quizzes/q 1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.EscapedPath())
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		writeEnvelope(t, w, http.StatusOK, model.Quiz{
			Title:            "Algebra",
			TimeLimitMinutes: 10,
			Questions:        []model.Question{{ID: "a", Type: model.QuestionTypeMultipleChoice, Text: "1+1?", Options: []string{"1", "2"}}},
		})
	}))
	defer srv.Close()

	quiz, err := newTestClient(srv, &auth.Identity{Token: "tok"}).GetQuiz(context.Background(), "q 1")
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if quiz.ID != "q 1" {
		t.Errorf("ID = %q, want fallback to requested id", quiz.ID)
	}
	if quiz.Title != "Algebra" || len(quiz.Questions) != 1 || quiz.TimeLimitMinutes != 10 {
		t.Errorf("unexpected quiz %+v", quiz)
	}
}

func TestForwardsRequestIDFromContext(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		writeEnvelope(t, w, http.StatusOK, model.Quiz{Title: "Algebra"})
	}))
	defer srv.Close()

	ctx := response.WithRequestID(context.Background(), "view-click-7")
	if _, err := newTestClient(srv, nil).GetQuiz(ctx, "q1"); err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	if got != "view-click-7" {
		t.Fatalf("X-Request-ID = %q", got)
	}
}

func TestAPIErrorFromEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(response.Response{
			Error: &response.ErrorBody{Code: response.ErrNotFound, Message: "no such quiz"},
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).GetSecurityConfig(context.Background(), "q1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != response.ErrNotFound || apiErr.Message != "no such quiz" {
		t.Errorf("unexpected APIError %+v", apiErr)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false")
	}
}

func TestAPIErrorFlatBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"quiz closed"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).SubmitQuiz(context.Background(), "q1", model.SubmitRequest{}, "")
	if err == nil || err.Error() != "quiz closed" {
		t.Fatalf("err = %v, want quiz closed", err)
	}
	if IsNotFound(err) {
		t.Error("400 reported as not found")
	}
}

func TestTransportErrorIsServiceUnavailable(t *testing.T) {
	c := New(Options{
		BaseURL: "http://backend.invalid",
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		})},
		Log: zerolog.Nop(),
	})
	_, err := c.GetQuiz(context.Background(), "q1")
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestSubmitQuizSendsAnswersAndIdempotencyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/quizzes/q1/submit" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Idempotency-Key"); got != "key-1" {
			t.Errorf("X-Idempotency-Key = %q", got)
		}
		var body model.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.AutoSubmitted || body.TimeSpentSeconds != 42 || string(body.Answers["a"]) != "1" {
			t.Errorf("unexpected body %+v", body)
		}
		writeEnvelope(t, w, http.StatusCreated, model.SubmitResult{AttemptID: "att-1", Score: 1, MaxScore: 1, Passed: true})
	}))
	defer srv.Close()

	res, err := newTestClient(srv, nil).SubmitQuiz(context.Background(), "q1", model.SubmitRequest{
		Answers:          map[string]json.RawMessage{"a": json.RawMessage("1")},
		AutoSubmitted:    true,
		TimeSpentSeconds: 42,
	}, "key-1")
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if res.AttemptID != "att-1" || !res.Passed {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSaveSecurityConfigMethods(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path != "/quizzes/q1/security" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var cfg model.SecurityConfig
		_ = json.NewDecoder(r.Body).Decode(&cfg)
		id := "cfg-1"
		cfg.ID = &id
		writeEnvelope(t, w, http.StatusOK, cfg)
	}))
	defer srv.Close()

	c := newTestClient(srv, nil)
	cfg := model.DefaultSecurityConfig("q1")
	created, err := c.CreateSecurityConfig(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == nil || *created.ID != "cfg-1" {
		t.Fatalf("created id = %v", created.ID)
	}
	if _, err := c.UpdateSecurityConfig(context.Background(), created); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := c.UpdateSecurityConfig(context.Background(), &cfg); err == nil {
		t.Error("Update without id should fail before sending")
	}
	if strings.Join(methods, ",") != "POST,PUT" {
		t.Errorf("methods = %v", methods)
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestDigitizeQuestionPaperSniffsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		if hdr.Header.Get("Content-Type") != "image/png" {
			t.Errorf("part content type = %q", hdr.Header.Get("Content-Type"))
		}
		data, _ := io.ReadAll(f)
		if !bytes.Equal(data, pngHeader) {
			t.Error("uploaded bytes differ")
		}
		writeEnvelope(t, w, http.StatusOK, model.DigitizedPaper{Title: "Scan", Questions: []model.Question{{ID: "x"}}})
	}))
	defer srv.Close()

	c := newTestClient(srv, nil)
	paper, err := c.DigitizeQuestionPaper(context.Background(), Attachment{Filename: "scan.bin", Content: bytes.NewReader(pngHeader)})
	if err != nil {
		t.Fatalf("DigitizeQuestionPaper: %v", err)
	}
	if paper.Title != "Scan" || len(paper.Questions) != 1 {
		t.Errorf("unexpected paper %+v", paper)
	}
}

func TestUploadRejectedBeforeSending(t *testing.T) {
	c := New(Options{
		BaseURL:        "http://backend.invalid",
		MaxUploadBytes: 16,
		HTTPClient: &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			t.Fatal("request should not be sent")
			return nil, nil
		})},
		Log: zerolog.Nop(),
	})
	ctx := context.Background()

	if _, err := c.DigitizeQuestionPaper(ctx, Attachment{Filename: "a.txt", Content: strings.NewReader("plain text")}); !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("text upload: err = %v, want ErrUnsupportedFileType", err)
	}
	if _, err := c.DigitizeQuestionPaper(ctx, Attachment{Filename: "big.png", Content: bytes.NewReader(pngHeader)}); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("large upload: err = %v, want ErrFileTooLarge", err)
	}
	if _, err := c.DigitizeQuestionPaper(ctx, Attachment{Filename: "empty.png", Content: bytes.NewReader(nil)}); !errors.Is(err, ErrFileRequired) {
		t.Errorf("empty upload: err = %v, want ErrFileRequired", err)
	}
}

func TestSubmitFeedbackFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if r.FormValue("category") != "bug" || r.FormValue("message") != "timer froze" {
			t.Errorf("fields = %v", r.MultipartForm.Value)
		}
		if r.FormValue("context") != `{"quiz_id":"q1"}` {
			t.Errorf("context = %q", r.FormValue("context"))
		}
		if n := len(r.MultipartForm.File["screenshots"]); n != 1 {
			t.Errorf("screenshots = %d", n)
		}
		writeEnvelope(t, w, http.StatusCreated, model.FeedbackReceipt{ID: "fb-1"})
	}))
	defer srv.Close()

	receipt, err := newTestClient(srv, nil).SubmitFeedback(context.Background(), model.FeedbackRequest{
		Category: "bug",
		Message:  "timer froze",
		Context:  json.RawMessage(`{"quiz_id":"q1"}`),
	}, []Attachment{{Filename: "shot.png", Content: bytes.NewReader(pngHeader)}})
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if receipt.ID != "fb-1" {
		t.Errorf("receipt = %+v", receipt)
	}
}
