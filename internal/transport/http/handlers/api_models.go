package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/sentinel-identity/internal/core/domain"
)

// ErrorResponse represents a generic error payload with the request ID for debugging.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: c.Writer.Header().Get("X-Request-ID"),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRequest defines the payload for the registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionResponse is the sanitized account projection returned to the client.
type SessionResponse struct {
	Session *domain.Session `json:"session"`
}

// ImageRequest carries one self-describing encoded image blob.
type ImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// FlowStateResponse is the verification flow snapshot returned to the client.
type FlowStateResponse struct {
	Phase  domain.FlowPhase           `json:"phase"`
	Result *domain.VerificationResult `json:"result,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

// AssistantRequest defines the payload for the assistant endpoint.
type AssistantRequest struct {
	Message string               `json:"message" binding:"required"`
	History []domain.ChatMessage `json:"history"`
}

// AssistantResponse carries the assistant's reply.
type AssistantResponse struct {
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}
