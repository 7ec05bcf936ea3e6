package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/infra/device"
	appLogger "github.com/arklim/sentinel-identity/internal/infra/logger"
	"github.com/arklim/sentinel-identity/internal/usecase"
)

// AuthHandler exposes registration, login, logout and the session projection.
type AuthHandler struct {
	credentials *usecase.CredentialService
	sessions    *usecase.SessionService
	collector   *device.Collector
	flows       *usecase.FlowRegistry
	log         *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	credentials *usecase.CredentialService,
	sessions *usecase.SessionService,
	collector *device.Collector,
	flows *usecase.FlowRegistry,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		credentials: credentials,
		sessions:    sessions,
		collector:   collector,
		flows:       flows,
		log:         log,
	}
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.register)
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)
	r.GET("/session", h.session)
}

func (h *AuthHandler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	account, err := h.credentials.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDuplicateAccount, Status: http.StatusConflict, Message: "account already exists"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: err.Error()},
		}, http.StatusInternalServerError, "registration failed")
		return
	}

	appLogger.WithContext(c.Request.Context()).Info("account registered",
		zap.String("email", appLogger.MaskEmail(account.Email)))

	// Registration never starts a session; the client logs in explicitly.
	c.JSON(http.StatusCreated, SessionResponse{Session: &account})
}

func (h *AuthHandler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	session, err := h.credentials.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	if err := h.sessions.Login(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	current := h.recordDevice(c.Request.Context(), session.AccountID, c.Request.UserAgent())
	if current == nil {
		current = &session
	}

	appLogger.WithContext(c.Request.Context()).Info("session started",
		zap.String("email", appLogger.MaskEmail(session.Email)))

	c.JSON(http.StatusOK, SessionResponse{Session: current})
}

func (h *AuthHandler) logout(c *gin.Context) {
	session, err := h.sessions.Bootstrap(c.Request.Context())
	if err == nil && session != nil && h.flows != nil {
		h.flows.Drop(session.AccountID)
	}

	if err := h.sessions.Logout(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) session(c *gin.Context) {
	session, err := h.sessions.Bootstrap(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "session lookup failed"))
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, SessionResponse{Session: nil})
		return
	}

	if current := h.recordDevice(c.Request.Context(), session.AccountID, c.Request.UserAgent()); current != nil {
		session = current
	}

	c.JSON(http.StatusOK, SessionResponse{Session: session})
}

// recordDevice collects a fingerprint and writes it through the credential
// store. Device intelligence is best-effort: any failure is logged and the
// caller proceeds with whatever projection it has.
func (h *AuthHandler) recordDevice(ctx context.Context, accountID, userAgent string) *domain.Session {
	if h.collector == nil {
		return nil
	}

	fp := h.collector.Collect(ctx, userAgent)
	if err := h.credentials.MergeDeviceFingerprint(ctx, accountID, fp); err != nil {
		h.log.Warn("record device fingerprint",
			zap.String("account_id", appLogger.MaskString(accountID)),
			zap.Error(err))
		return nil
	}

	session, err := h.sessions.Refresh(ctx, accountID)
	if err != nil {
		h.log.Warn("refresh session after device update",
			zap.String("account_id", appLogger.MaskString(accountID)),
			zap.Error(err))
		return nil
	}

	return session
}
