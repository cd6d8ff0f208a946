package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/response"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/validator"
)

// UploadHandler proxies file uploads to the backend.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// DigitizeQuestionPaper godoc
// POST /api/v1/uploads/question-paper
// Sends a scanned paper (PDF or image) for digitization and returns the
// extracted questions.
func (h *UploadHandler) DigitizeQuestionPaper(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	paper, err := h.uploads.DigitizeQuestionPaper(c.Request.Context(), middleware.GetIdentity(c), header)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, paper)
}

// SubmitFeedback godoc
// POST /api/v1/feedback
// Multipart form: category, message, optional context (JSON) and any number
// of "screenshots" files.
func (h *UploadHandler) SubmitFeedback(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	req := model.FeedbackRequest{
		Category: strings.TrimSpace(c.PostForm("category")),
		Message:  strings.TrimSpace(c.PostForm("message")),
	}
	if raw := strings.TrimSpace(c.PostForm("context")); raw != "" {
		if !json.Valid([]byte(raw)) {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
				"context": "must be valid JSON",
			})
			return
		}
		req.Context = json.RawMessage(raw)
	}
	if fields := validator.Struct(&req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	receipt, err := h.uploads.SubmitFeedback(c.Request.Context(), middleware.GetIdentity(c), req, form.File["screenshots"])
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, receipt)
}
