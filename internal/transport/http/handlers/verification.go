package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/infra/telemetry"
	"github.com/arklim/sentinel-identity/internal/usecase"
)

// VerificationHandler exposes the verification flow's events and state.
// Every request resolves the flow bound to the current session's account, so
// the single-oracle-call invariant holds per account even under concurrent
// requests.
type VerificationHandler struct {
	flows    *usecase.FlowRegistry
	sessions *usecase.SessionService
	metrics  *telemetry.VerificationMetrics
	log      *zap.Logger
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(
	flows *usecase.FlowRegistry,
	sessions *usecase.SessionService,
	metrics *telemetry.VerificationMetrics,
	log *zap.Logger,
) *VerificationHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &VerificationHandler{flows: flows, sessions: sessions, metrics: metrics, log: log}
}

// RegisterRoutes binds verification flow routes.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/document", h.submitDocument)
	r.POST("/selfie", h.submitSelfie)
	r.POST("/reset", h.reset)
	r.GET("/state", h.state)
}

// flowForSession resolves the caller's flow; anonymous callers share the
// unbound flow whose results are not persisted.
func (h *VerificationHandler) flowForSession(c *gin.Context) *usecase.VerificationFlow {
	session, err := h.sessions.Bootstrap(c.Request.Context())
	if err != nil || session == nil {
		return h.flows.FlowFor("")
	}
	return h.flows.FlowFor(session.AccountID)
}

func (h *VerificationHandler) submitDocument(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid document payload"))
		return
	}

	flow := h.flowForSession(c)
	if err := flow.SubmitDocument(c.Request.Context(), req.Image); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalysisInProgress, Status: http.StatusConflict, Message: "analysis already in progress"},
			{Err: usecase.ErrInvalidPhase, Status: http.StatusConflict, Message: "document not expected in current phase"},
		}, http.StatusBadRequest, "document submission failed")
		return
	}

	c.JSON(http.StatusAccepted, stateResponse(flow))
}

func (h *VerificationHandler) submitSelfie(c *gin.Context) {
	var req ImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid selfie payload"))
		return
	}

	flow := h.flowForSession(c)
	result, err := flow.SubmitSelfie(c.Request.Context(), req.Image)
	if err != nil {
		// Phase conflicts are rejected requests, not attempts; only errors
		// that terminated an attempt count toward the outcome metric.
		if !errors.Is(err, usecase.ErrInvalidPhase) && !errors.Is(err, usecase.ErrAnalysisInProgress) {
			h.metrics.ObserveOutcome("failed", nil)
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrMissingDocument, Status: http.StatusUnprocessableEntity, Message: "identity document missing"},
			{Err: usecase.ErrAnalysisInProgress, Status: http.StatusConflict, Message: "analysis already in progress"},
			{Err: usecase.ErrInvalidPhase, Status: http.StatusConflict, Message: "selfie not expected in current phase"},
			{Err: usecase.ErrAnalysisUnavailable, Status: http.StatusBadGateway, Message: "verification analysis unavailable"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	h.metrics.ObserveOutcome("completed", result)
	c.JSON(http.StatusOK, stateResponse(flow))
}

func (h *VerificationHandler) reset(c *gin.Context) {
	flow := h.flowForSession(c)
	if err := flow.Reset(); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAnalysisInProgress, Status: http.StatusConflict, Message: "analysis already in progress"},
		}, http.StatusInternalServerError, "reset failed")
		return
	}

	c.JSON(http.StatusOK, stateResponse(flow))
}

func (h *VerificationHandler) state(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse(h.flowForSession(c)))
}

func stateResponse(flow *usecase.VerificationFlow) FlowStateResponse {
	state := flow.State()
	return FlowStateResponse{
		Phase:  state.Phase,
		Result: state.Result,
		Error:  state.Error,
	}
}
