package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Quiz session ──────────────────────────────────────────────────
	ErrSessionNotLoaded     ErrCode = "SESSION_NOT_LOADED"
	ErrSessionClosed        ErrCode = "SESSION_CLOSED"
	ErrQuizLoadFailed       ErrCode = "QUIZ_LOAD_FAILED"
	ErrUnknownQuestion      ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidIndex         ErrCode = "INVALID_QUESTION_INDEX"
	ErrConfirmationRequired ErrCode = "CONFIRMATION_REQUIRED"
	ErrSubmitFailed         ErrCode = "SUBMIT_FAILED"
	ErrTimeUp               ErrCode = "TIME_UP"

	// ─── Security settings ─────────────────────────────────────────────
	ErrLocationDenied      ErrCode = "LOCATION_PERMISSION_DENIED"
	ErrLocationUnavailable ErrCode = "LOCATION_UNAVAILABLE"
	ErrSaveFailed          ErrCode = "SAVE_FAILED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource was changed by someone else."

	// ─── Quiz session ──────────────────────────────────────────────────
	case ErrSessionNotLoaded:
		return "No session is loaded for this quiz."
	case ErrSessionClosed:
		return "This session has already been submitted or exited."
	case ErrQuizLoadFailed:
		return "Failed to load quiz."
	case ErrUnknownQuestion:
		return "The question does not belong to this quiz."
	case ErrInvalidIndex:
		return "The question index is out of range."
	case ErrConfirmationRequired:
		return "Please confirm before submitting."
	case ErrSubmitFailed:
		return "Failed to submit quiz."
	case ErrTimeUp:
		return "Time is up. Answers can no longer be changed."

	// ─── Security settings ─────────────────────────────────────────────
	case ErrLocationDenied:
		return "Location permission was denied."
	case ErrLocationUnavailable:
		return "Current location is unavailable."
	case ErrSaveFailed:
		return "Failed to save security settings."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "The quiz service is unreachable. Please try again."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
