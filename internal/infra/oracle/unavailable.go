package oracle

import (
	"context"
	"errors"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// Unavailable is the analysis oracle used when no API key is configured.
// Every attempt fails with the same message the original client surfaced.
type Unavailable struct{}

// Analyze always fails.
func (Unavailable) Analyze(context.Context, string, string) (*domain.VerificationResult, error) {
	return nil, errors.New("API key is missing; set SENTINEL_GEMINI_API_KEY")
}
