package application

import (
	"net/http"

	"github.com/Abraxas-365/relay-match/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("APPLICATION")

// Error codes
var (
	CodeLookupFailed = ErrRegistry.Register("LOOKUP_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to look up applications")
)

// Helper functions
func ErrLookupFailed() *errx.Error {
	return ErrRegistry.New(CodeLookupFailed)
}
