package notification

import (
	"net/http"

	"github.com/Abraxas-365/relay-match/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("NOTIFICATION")

// Error codes
var (
	CodeInvalidFrequency = ErrRegistry.Register("INVALID_FREQUENCY", errx.TypeValidation, http.StatusBadRequest, "Digest frequency must be daily or weekly")
	CodeInvalidTask      = ErrRegistry.Register("INVALID_TASK", errx.TypeValidation, http.StatusBadRequest, "Notification task is invalid")
	CodeInvalidToken     = ErrRegistry.Register("INVALID_TOKEN", errx.TypeAuthorization, http.StatusForbidden, "Tracking token is invalid or expired")
	CodeEmployerNotFound = ErrRegistry.Register("EMPLOYER_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Employer not found")
	CodeQueueFailed      = ErrRegistry.Register("QUEUE_FAILED", errx.TypeInternal, http.StatusServiceUnavailable, "Failed to enqueue notification task")
	CodeRenderFailed     = ErrRegistry.Register("RENDER_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to render notification email")
)

// Helper functions
func ErrInvalidFrequency() *errx.Error {
	return ErrRegistry.New(CodeInvalidFrequency)
}

func ErrInvalidTask() *errx.Error {
	return ErrRegistry.New(CodeInvalidTask)
}

func ErrInvalidToken() *errx.Error {
	return ErrRegistry.New(CodeInvalidToken)
}

func ErrEmployerNotFound() *errx.Error {
	return ErrRegistry.New(CodeEmployerNotFound)
}

func ErrQueueFailed() *errx.Error {
	return ErrRegistry.New(CodeQueueFailed)
}

func ErrRenderFailed() *errx.Error {
	return ErrRegistry.New(CodeRenderFailed)
}
