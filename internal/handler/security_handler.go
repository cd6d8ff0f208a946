package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
	"github.com/stemsi/exstem-player/internal/security"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/validator"
)

// SecurityHandler exposes the security settings form.
type SecurityHandler struct {
	forms *service.SecurityService
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(forms *service.SecurityService) *SecurityHandler {
	return &SecurityHandler{forms: forms}
}

func (h *SecurityHandler) open(c *gin.Context, refresh bool) (*security.Controller, bool) {
	quizID, ok := quizIDParam(c)
	if !ok {
		return nil, false
	}
	ctrl, err := h.forms.Open(c.Request.Context(), middleware.GetIdentity(c), quizID, refresh)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return ctrl, true
}

func writeForm(c *gin.Context, ctrl *security.Controller, cfg model.SecurityConfig) {
	response.Success(c, http.StatusOK, model.SecurityConfigState{Config: cfg, Dirty: ctrl.Dirty()})
}

// GetConfig godoc
// GET /api/v1/security/:quiz_id?refresh=true
// Returns the form, loading it from the backend on first use. A quiz with no
// record yet gets the defaults.
func (h *SecurityHandler) GetConfig(c *gin.Context) {
	ctrl, ok := h.open(c, c.Query("refresh") == "true")
	if !ok {
		return
	}
	cfg, err := ctrl.Config()
	if err != nil {
		fail(c, err)
		return
	}
	writeForm(c, ctrl, cfg)
}

// PatchConfig godoc
// PATCH /api/v1/security/:quiz_id
// Applies form edits locally. Nothing is sent until save.
func (h *SecurityHandler) PatchConfig(c *gin.Context) {
	ctrl, ok := h.open(c, false)
	if !ok {
		return
	}

	var req model.SecurityPatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cfg, err := ctrl.Update(req.Apply)
	if err != nil {
		fail(c, err)
		return
	}
	writeForm(c, ctrl, cfg)
}

// UseCurrentLocation godoc
// POST /api/v1/security/:quiz_id/locate
// Moves the geofence center to the device position.
func (h *SecurityHandler) UseCurrentLocation(c *gin.Context) {
	ctrl, ok := h.open(c, false)
	if !ok {
		return
	}
	loc, err := ctrl.UseCurrentLocationAsCenter(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	cfg, _ := ctrl.Config()
	response.Success(c, http.StatusOK, gin.H{"location": loc, "config": cfg, "dirty": ctrl.Dirty()})
}

// CheckLocation godoc
// POST /api/v1/security/:quiz_id/check
// Tests a point against the geofence as currently edited. With geofencing
// off every point is inside.
func (h *SecurityHandler) CheckLocation(c *gin.Context) {
	ctrl, ok := h.open(c, false)
	if !ok {
		return
	}

	var req model.GeofenceCheckRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	inside, err := ctrl.Contains(*req.Latitude, *req.Longitude)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"inside": inside})
}

// Save godoc
// POST /api/v1/security/:quiz_id/save
// Validates and saves the whole record. Validation failures never reach the
// backend.
func (h *SecurityHandler) Save(c *gin.Context) {
	ctrl, ok := h.open(c, false)
	if !ok {
		return
	}
	saved, err := ctrl.Save(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	writeForm(c, ctrl, saved)
}
