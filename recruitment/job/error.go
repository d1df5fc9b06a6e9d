package job

import (
	"net/http"

	"github.com/Abraxas-365/relay-match/pkg/errx"
)

// Error Registry
var ErrRegistry = errx.NewRegistry("JOB")

// Error codes
var (
	CodeJobNotFound    = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Job not found")
	CodeJobNotEligible = ErrRegistry.Register("NOT_ELIGIBLE", errx.TypeBusiness, http.StatusUnprocessableEntity, "Job is not open or published")
)

// Helper functions
func ErrJobNotFound() *errx.Error {
	return ErrRegistry.New(CodeJobNotFound)
}

func ErrJobNotEligible() *errx.Error {
	return ErrRegistry.New(CodeJobNotEligible)
}
