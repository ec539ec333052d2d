package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medscribe/medscribe-api/internal/ai"
	"github.com/medscribe/medscribe-api/internal/domain/transcription"
	"github.com/medscribe/medscribe-api/internal/service"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// respondServiceError maps domain and upstream failures onto the HTTP
// taxonomy: validation 400, oversize 413, absence 404, precondition 400,
// transient upstream 503, hard upstream 502, persistence 500.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var upstreamErr *ai.UpstreamError
	if errors.As(err, &upstreamErr) {
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "UPSTREAM_FAILURE"})
		return
	}

	switch {
	case errors.Is(err, transcription.ErrTranscriptionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, transcription.ErrUnsupportedFormat),
		errors.Is(err, transcription.ErrEmptyFile):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, transcription.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})

	case errors.Is(err, transcription.ErrNoteRequired),
		errors.Is(err, transcription.ErrCodesRequired):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "PRECONDITION_FAILED"})

	case errors.Is(err, ai.ErrModelLoading):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "model is loading, please retry in 30 seconds",
			Code:  "MODEL_LOADING",
		})

	case errors.Is(err, transcription.ErrUpdateFailed):
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "account is inactive"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseRecordID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id: must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + key + ": must be an integer"})
		return 0, false
	}
	return v, true
}
