package candidate

import (
	"net/http"

	"github.com/Abraxas-365/relay-match/pkg/errx"
)

var ErrRegistry = errx.NewRegistry("CANDIDATE")

// Error codes
var (
	CodeCandidateNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Candidate not found")
	CodeCandidateInactive = ErrRegistry.Register("INACTIVE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Candidate is not active")
	CodeInvalidProfile    = ErrRegistry.Register("INVALID_PROFILE", errx.TypeValidation, http.StatusBadRequest, "Candidate profile is invalid")
)

// Helper functions
func ErrCandidateNotFound() *errx.Error {
	return ErrRegistry.New(CodeCandidateNotFound)
}

func ErrCandidateInactive() *errx.Error {
	return ErrRegistry.New(CodeCandidateInactive)
}

func ErrInvalidProfile() *errx.Error {
	return ErrRegistry.New(CodeInvalidProfile)
}
