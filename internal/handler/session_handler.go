package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/session"
	"github.com/stemsi/exstem-player/internal/validator"
)

// SessionHandler exposes the quiz session controller over REST.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func quizIDParam(c *gin.Context) (string, bool) {
	quizID := strings.TrimSpace(c.Param("quiz_id"))
	if quizID == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return "", false
	}
	return quizID, true
}

// current resolves the caller's live session or writes the error response.
func (h *SessionHandler) current(c *gin.Context) (*session.Controller, bool) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return nil, false
	}
	ctrl, err := h.sessions.Get(middleware.GetIdentity(c), quizID)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return ctrl, true
}

// LoadSession godoc
// POST /api/v1/sessions/:quiz_id
// Fetches the quiz and restores any saved progress. Idempotent while the
// session is live.
func (h *SessionHandler) LoadSession(c *gin.Context) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}

	ctrl, err := h.sessions.Load(c.Request.Context(), middleware.GetIdentity(c), quizID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// GetState godoc
// GET /api/v1/sessions/:quiz_id
func (h *SessionHandler) GetState(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// SetAnswer godoc
// PUT /api/v1/sessions/:quiz_id/answers/:question_id
// Overwrites one answer. The value is stored as sent.
func (h *SessionHandler) SetAnswer(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.SetAnswer(c.Param("question_id"), req.Value); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// ToggleFlag godoc
// POST /api/v1/sessions/:quiz_id/flags/:question_id
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}
	if err := ctrl.ToggleFlag(c.Param("question_id")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// Navigate godoc
// POST /api/v1/sessions/:quiz_id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.Navigate(*req.Index); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// Pause godoc
// POST /api/v1/sessions/:quiz_id/pause
func (h *SessionHandler) Pause(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}
	if err := ctrl.Pause(); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// Resume godoc
// POST /api/v1/sessions/:quiz_id/resume
func (h *SessionHandler) Resume(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}
	if err := ctrl.Resume(); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.State())
}

// Submit godoc
// POST /api/v1/sessions/:quiz_id/submit
// Submits the answers. With unanswered questions the first call answers 409
// CONFIRMATION_REQUIRED; repeat it with {"confirmed": true}.
func (h *SessionHandler) Submit(c *gin.Context) {
	ctrl, ok := h.current(c)
	if !ok {
		return
	}

	var req model.SubmitSessionRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	var confirm session.Confirmer
	if req.Confirmed {
		confirm = session.Confirmed
	}
	result, err := ctrl.SubmitWith(c.Request.Context(), false, confirm)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// Exit godoc
// DELETE /api/v1/sessions/:quiz_id
// Abandons the session and clears saved progress.
func (h *SessionHandler) Exit(c *gin.Context) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return
	}
	if err := h.sessions.Exit(middleware.GetIdentity(c), quizID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": model.SessionStatusExited})
}
