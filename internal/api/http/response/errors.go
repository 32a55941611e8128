package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cityworks/project-registry/internal/ingest"
	projectdomain "github.com/cityworks/project-registry/internal/projects/domain"
	"github.com/cityworks/project-registry/internal/spreadsheet"
	uploaddomain "github.com/cityworks/project-registry/internal/uploads/domain"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Message: message}
}

func NewValidationError(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: message}
}

func NewConflictError(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: "CONFLICT", Message: message}
}

func NewTooLargeError(message string) *APIError {
	return &APIError{Status: http.StatusRequestEntityTooLarge, Code: "PAYLOAD_TOO_LARGE", Message: message}
}

func NewInternalError(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: "INTERNAL_ERROR", Message: message}
}

func NewServiceUnavailableError(message string) *APIError {
	return &APIError{Status: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE", Message: message}
}

// FromError maps a domain error onto its HTTP shape.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var (
		verr    *spreadsheet.ValidationError
		noNames *ingest.NoNamesError
	)

	switch {
	case errors.Is(err, spreadsheet.ErrFileTooLarge), errors.Is(err, uploaddomain.ErrUploadTooLarge):
		return NewTooLargeError(err.Error())
	case errors.As(err, &noNames):
		details := strings.Join(noNames.Errors, "\n")
		if noNames.More {
			details += "\n..."
		}
		return &APIError{Status: http.StatusBadRequest, Code: "NO_VALID_NAMES", Message: ingest.ErrNoNames.Error(), Details: details}
	case errors.As(err, &verr):
		return NewValidationError(verr.Reason)
	case errors.Is(err, projectdomain.ErrInvalidName),
		errors.Is(err, projectdomain.ErrEmptyKeyword),
		errors.Is(err, uploaddomain.ErrInvalidRequest):
		return NewValidationError(err.Error())
	case errors.Is(err, uploaddomain.ErrChunksIncomplete):
		return &APIError{Status: http.StatusBadRequest, Code: "CHUNKS_INCOMPLETE", Message: err.Error()}
	case errors.Is(err, projectdomain.ErrProjectNotFound),
		errors.Is(err, uploaddomain.ErrSessionNotFound),
		errors.Is(err, uploaddomain.ErrArtifactNotFound):
		return NewNotFoundError(err.Error())
	case errors.Is(err, projectdomain.ErrProjectNameExists):
		return NewConflictError(err.Error())
	case errors.Is(err, uploaddomain.ErrIntegrity):
		return &APIError{Status: http.StatusUnprocessableEntity, Code: "INTEGRITY_ERROR", Message: err.Error()}
	case errors.Is(err, projectdomain.ErrImportFailed):
		return NewInternalError(projectdomain.ErrImportFailed.Error())
	case errors.Is(err, projectdomain.ErrStoreFailure):
		return NewInternalError(projectdomain.ErrStoreFailure.Error())
	default:
		return NewInternalError("an unexpected error occurred")
	}
}

// Error writes err as a JSON error body and records it on the gin context.
func Error(c *gin.Context, err error) {
	apiErr := FromError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		c.Error(err)
	}
	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"ok":      false,
		"code":    apiErr.Code,
		"error":   apiErr.Message,
		"details": apiErr.Details,
	})
}

// OK writes body with ok=true.
func OK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["ok"] = true
	c.JSON(status, body)
}
