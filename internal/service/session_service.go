package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/session"
	"github.com/stemsi/exstem-player/internal/storage"
	"github.com/stemsi/exstem-player/internal/worker"
)

// ErrSessionNotFound is returned when no session was loaded for the quiz.
var ErrSessionNotFound = errors.New("session not found")

// SessionService keeps one live quiz session per user and quiz.
type SessionService struct {
	api      *apiclient.Client
	store    storage.Store
	debounce time.Duration
	log      zerolog.Logger

	// workerCtx bounds every tick worker started by this service.
	workerCtx context.Context

	mu       sync.Mutex
	sessions map[string]*session.Controller
}

// NewSessionService creates a SessionService. Tick workers stop when
// workerCtx is cancelled.
func NewSessionService(workerCtx context.Context, api *apiclient.Client, store storage.Store, debounce time.Duration, log zerolog.Logger) *SessionService {
	return &SessionService{
		api:       api,
		store:     store,
		debounce:  debounce,
		log:       log,
		workerCtx: workerCtx,
		sessions:  make(map[string]*session.Controller),
	}
}

func registryKey(id *auth.Identity, quizID string) string {
	return userPrefix(id) + quizID
}

func userPrefix(id *auth.Identity) string {
	if id == nil || id.UserID == "" {
		return ""
	}
	return "u" + id.UserID + ":"
}

func ended(ctrl *session.Controller) bool {
	select {
	case <-ctrl.Done():
		return true
	default:
		return false
	}
}

// Load returns the live session for the quiz, loading a new one when none is
// running. A finished session is replaced.
func (s *SessionService) Load(ctx context.Context, id *auth.Identity, quizID string) (*session.Controller, error) {
	key := registryKey(id, quizID)

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok && !ended(existing) {
		s.mu.Unlock()
		return existing, nil
	}
	s.mu.Unlock()

	ctrl := session.New(session.Options{
		API:      s.api.WithIdentity(id),
		Store:    storage.WithPrefix(s.store, userPrefix(id)),
		Debounce: s.debounce,
		Log:      s.log,
	})
	if err := ctrl.LoadSession(ctx, quizID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok && !ended(existing) {
		// Lost a race with a concurrent load.
		s.mu.Unlock()
		ctrl.Close()
		return existing, nil
	}
	s.sessions[key] = ctrl
	s.mu.Unlock()

	go worker.NewTickWorker(ctrl, s.log).Start(s.workerCtx)
	return ctrl, nil
}

// Get returns the session for the quiz, including a finished one so its
// result can still be read.
func (s *SessionService) Get(id *auth.Identity, quizID string) (*session.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctrl, ok := s.sessions[registryKey(id, quizID)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Exit abandons the session and forgets it.
func (s *SessionService) Exit(id *auth.Identity, quizID string) error {
	key := registryKey(id, quizID)

	s.mu.Lock()
	ctrl, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	ctrl.Exit()
	ctrl.Close()
	return nil
}

// Shutdown closes every session. Stored snapshots are kept for the next run.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session.Controller)
	s.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
	}
	if len(sessions) > 0 {
		s.log.Info().Int("count", len(sessions)).Msg("Closed live sessions")
	}
}
