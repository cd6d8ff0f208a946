package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/response"
	"github.com/stemsi/exstem-player/internal/security"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/session"
)

// failure is an error translated for the client.
type failure struct {
	status  int
	code    response.ErrCode
	message string
	fields  map[string]string
}

// classify maps controller and client errors onto HTTP status and error code.
func classify(err error) failure {
	var (
		confirmErr *session.ConfirmationRequiredError
		loadErr    *session.LoadError
		submitErr  *session.SubmitError
		secLoadErr *security.LoadError
		validErr   *security.ValidationError
		locErr     *security.LocationError
		saveErr    *security.SaveError
	)

	switch {
	// ─── Session ───────────────────────────────────────────────────────
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, session.ErrNotLoaded):
		return failure{status: http.StatusNotFound, code: response.ErrSessionNotLoaded}
	case errors.Is(err, session.ErrSessionClosed):
		return failure{status: http.StatusConflict, code: response.ErrSessionClosed}
	case errors.Is(err, session.ErrSubmitInProgress):
		return failure{status: http.StatusConflict, code: response.ErrConflict}
	case errors.Is(err, session.ErrTimeUp):
		return failure{status: http.StatusConflict, code: response.ErrTimeUp}
	case errors.Is(err, session.ErrUnknownQuestion):
		return failure{status: http.StatusNotFound, code: response.ErrUnknownQuestion}
	case errors.Is(err, session.ErrInvalidIndex):
		return failure{status: http.StatusBadRequest, code: response.ErrInvalidIndex}
	case errors.Is(err, session.ErrSubmitCancelled):
		return failure{status: http.StatusConflict, code: response.ErrConfirmationRequired}
	case errors.As(err, &confirmErr):
		return failure{
			status: http.StatusConflict,
			code:   response.ErrConfirmationRequired,
			fields: map[string]string{
				"answered": strconv.Itoa(confirmErr.Answered),
				"total":    strconv.Itoa(confirmErr.Total),
			},
		}
	case errors.As(err, &loadErr):
		return upstream(loadErr.Err, response.ErrQuizLoadFailed)
	case errors.As(err, &submitErr):
		return upstream(submitErr.Err, response.ErrSubmitFailed)

	// ─── Security settings ─────────────────────────────────────────────
	case errors.Is(err, security.ErrNotLoaded):
		return failure{status: http.StatusNotFound, code: response.ErrNotFound}
	case errors.As(err, &validErr):
		return failure{status: http.StatusBadRequest, code: response.ErrValidation, fields: validErr.Fields}
	case errors.As(err, &locErr):
		if errors.Is(locErr, security.ErrPermissionDenied) {
			return failure{status: http.StatusForbidden, code: response.ErrLocationDenied}
		}
		return failure{status: http.StatusServiceUnavailable, code: response.ErrLocationUnavailable}
	case errors.As(err, &secLoadErr):
		return upstream(secLoadErr.Err, response.ErrNotFound)
	case errors.As(err, &saveErr):
		return upstream(saveErr.Err, response.ErrSaveFailed)

	// ─── Uploads ───────────────────────────────────────────────────────
	case errors.Is(err, apiclient.ErrFileRequired):
		return failure{status: http.StatusBadRequest, code: response.ErrFileRequired}
	case errors.Is(err, apiclient.ErrUnsupportedFileType):
		return failure{status: http.StatusBadRequest, code: response.ErrUnsupportedFile}
	case errors.Is(err, apiclient.ErrFileTooLarge):
		return failure{status: http.StatusBadRequest, code: response.ErrFileTooLarge}
	}

	return upstream(err, response.ErrInternal)
}

// upstream maps a backend call failure. The backend's own message is passed
// through so the user sees why the call failed.
func upstream(err error, fallback response.ErrCode) failure {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrServiceUnavailable):
		return failure{status: http.StatusServiceUnavailable, code: response.ErrBackendUnavailable}
	case errors.As(err, &apiErr):
		f := failure{status: http.StatusBadGateway, code: fallback, message: apiErr.Message, fields: apiErr.Fields}
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			f.status, f.code = http.StatusNotFound, response.ErrNotFound
		case http.StatusUnauthorized:
			f.status, f.code = http.StatusUnauthorized, response.ErrTokenInvalid
		case http.StatusForbidden:
			f.status, f.code = http.StatusForbidden, response.ErrForbidden
		case http.StatusConflict:
			f.status, f.code = http.StatusConflict, response.ErrConflict
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			f.status, f.code = http.StatusBadRequest, response.ErrValidation
		}
		return f
	}
	return failure{status: http.StatusInternalServerError, code: fallback}
}

func fail(c *gin.Context, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if f.message != "" {
		response.FailWithMessage(c, f.status, f.code, f.message, f.fields)
		return
	}
	if f.fields != nil {
		response.FailWithFields(c, f.status, f.code, f.fields)
		return
	}
	response.Fail(c, f.status, f.code)
}
