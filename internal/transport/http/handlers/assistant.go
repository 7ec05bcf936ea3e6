package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/sentinel-identity/internal/usecase"
)

// AssistantHandler exposes the support assistant. Assistant failures never
// produce an error status; the fallback reply travels the same 200 path.
type AssistantHandler struct {
	assistant *usecase.AssistantService
	flows     *usecase.FlowRegistry
	sessions  *usecase.SessionService
}

// NewAssistantHandler constructs AssistantHandler.
func NewAssistantHandler(assistant *usecase.AssistantService, flows *usecase.FlowRegistry, sessions *usecase.SessionService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, flows: flows, sessions: sessions}
}

// RegisterRoutes binds assistant routes.
func (h *AssistantHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/message", h.message)
}

func (h *AssistantHandler) message(c *gin.Context) {
	var req AssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid assistant payload"))
		return
	}

	session, err := h.sessions.Bootstrap(c.Request.Context())
	if err != nil {
		session = nil
	}

	accountID := ""
	if session != nil {
		accountID = session.AccountID
	}
	hint := h.flows.FlowFor(accountID).ContextHint(session)

	reply := h.assistant.Send(c.Request.Context(), req.History, req.Message, hint)

	c.JSON(http.StatusOK, AssistantResponse{
		Reply:     reply,
		Timestamp: time.Now().UTC(),
	})
}
