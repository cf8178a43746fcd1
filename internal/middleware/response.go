package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/apperr"
	"github.com/eaglebank/accounts/internal/validation"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	APIPath      string    `json:"apiPath"`
	ErrorCode    int       `json:"errorCode"`
	ErrorMessage string    `json:"errorMessage"`
	ErrorTime    time.Time `json:"errorTime"`
}

type BadRequestErrorResponse struct {
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details"`
}

// ValidateRequest checks obj against its validate tags.
func ValidateRequest(obj any) []apperr.FieldError {
	return validation.Struct(obj)
}

func RespondWithValidationError(c *gin.Context, validationErrors []apperr.FieldError) {
	c.AbortWithStatusJSON(http.StatusBadRequest, BadRequestErrorResponse{
		Message: "Invalid request data",
		Details: validationErrors,
	})
}

func RespondWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		APIPath:      "uri=" + c.Request.URL.Path,
		ErrorCode:    code,
		ErrorMessage: message,
		ErrorTime:    time.Now().UTC(),
	})
}

// RespondWithAppError maps err to a status code by its apperr.Kind.
// Unclassified errors are reported as 500 without leaking their text.
func RespondWithAppError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind == apperr.KindValidation && len(appErr.Details) > 0 {
		RespondWithValidationError(c, appErr.Details)
		return
	}
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError && apperr.KindOf(err) == apperr.KindUnknown {
		_ = c.Error(err)
		message = "An unexpected error occurred"
	}
	RespondWithError(c, status, message)
}

func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindAlreadyExists:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
