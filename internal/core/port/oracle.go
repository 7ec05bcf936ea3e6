package port

import (
	"context"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// AnalysisOracle is the external forensic/biometric assessment service. Both
// images are self-describing encoded blobs (data URLs or raw base64).
type AnalysisOracle interface {
	Analyze(ctx context.Context, documentImage, selfieImage string) (*domain.VerificationResult, error)
}

// AssistantOracle is the external conversational support service.
type AssistantOracle interface {
	Reply(ctx context.Context, history []domain.ChatMessage, message, contextHint string) (string, error)
}
