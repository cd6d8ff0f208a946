package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/security"
)

// SecurityService keeps the security settings form of each user and quiz.
type SecurityService struct {
	api     *apiclient.Client
	locator security.Locator
	log     zerolog.Logger

	mu    sync.Mutex
	forms map[string]*security.Controller
}

// NewSecurityService creates a SecurityService. locator may be nil.
func NewSecurityService(api *apiclient.Client, locator security.Locator, log zerolog.Logger) *SecurityService {
	return &SecurityService{
		api:     api,
		locator: locator,
		log:     log,
		forms:   make(map[string]*security.Controller),
	}
}

// Open returns the form for the quiz, loading it from the backend the first
// time or when refresh is set. Unsaved edits are discarded on refresh.
func (s *SecurityService) Open(ctx context.Context, id *auth.Identity, quizID string, refresh bool) (*security.Controller, error) {
	key := registryKey(id, quizID)

	s.mu.Lock()
	ctrl, ok := s.forms[key]
	s.mu.Unlock()
	if ok && !refresh {
		return ctrl, nil
	}

	if !ok {
		ctrl = security.NewController(s.api.WithIdentity(id), s.locator, s.log)
	}
	if _, err := ctrl.Load(ctx, quizID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, found := s.forms[key]; found && existing != ctrl {
		s.mu.Unlock()
		return existing, nil
	}
	s.forms[key] = ctrl
	s.mu.Unlock()
	return ctrl, nil
}
