package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
)

const (
	assistantFallbackReply = "I am currently offline. Please try again later."
	assistantEmptyReply    = "I'm having trouble connecting. Please try again."
)

// AssistantService bridges the conversational oracle. It never surfaces an
// error: any failure collapses into a fixed fallback reply so a broken
// assistant cannot interrupt the verification flow.
type AssistantService struct {
	oracle port.AssistantOracle
	log    *zap.Logger
}

// NewAssistantService constructs an assistant service.
func NewAssistantService(oracle port.AssistantOracle, log *zap.Logger) *AssistantService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AssistantService{oracle: oracle, log: log}
}

// Send forwards the conversation to the oracle and returns its reply.
func (s *AssistantService) Send(ctx context.Context, history []domain.ChatMessage, message, contextHint string) string {
	if s.oracle == nil {
		return assistantFallbackReply
	}

	reply, err := s.oracle.Reply(ctx, history, message, contextHint)
	if err != nil {
		s.log.Warn("assistant oracle failed", zap.Error(err))
		return assistantFallbackReply
	}
	if reply == "" {
		return assistantEmptyReply
	}

	return reply
}
