package matching

import (
	"net/http"

	"github.com/Abraxas-365/relay-match/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("MATCH")

// Error codes
var (
	CodeInvalidInput   = ErrRegistry.Register("INVALID_INPUT", errx.TypeValidation, http.StatusBadRequest, "Invalid matching input")
	CodeInvalidOptions = ErrRegistry.Register("INVALID_OPTIONS", errx.TypeValidation, http.StatusBadRequest, "Invalid matching options")
	CodeBatchCancelled = ErrRegistry.Register("BATCH_CANCELLED", errx.TypeInternal, http.StatusServiceUnavailable, "Batch run was cancelled")
	CodeSourceFailed   = ErrRegistry.Register("SOURCE_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to load candidates for batch")
	CodeExportFailed   = ErrRegistry.Register("EXPORT_FAILED", errx.TypeExternal, http.StatusBadGateway, "Failed to export batch results")
	CodeHistoryFailed  = ErrRegistry.Register("HISTORY_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Failed to read match history")
)

// Helper functions
func ErrInvalidInput() *errx.Error {
	return ErrRegistry.New(CodeInvalidInput)
}

func ErrInvalidOptions() *errx.Error {
	return ErrRegistry.New(CodeInvalidOptions)
}

func ErrBatchCancelled() *errx.Error {
	return ErrRegistry.New(CodeBatchCancelled)
}

func ErrSourceFailed() *errx.Error {
	return ErrRegistry.New(CodeSourceFailed)
}

func ErrExportFailed() *errx.Error {
	return ErrRegistry.New(CodeExportFailed)
}

func ErrHistoryFailed() *errx.Error {
	return ErrRegistry.New(CodeHistoryFailed)
}
