package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/core/domain"
	"github.com/arklim/sentinel-identity/internal/core/port"
	"github.com/arklim/sentinel-identity/internal/infra/config"
	"github.com/arklim/sentinel-identity/internal/infra/device"
	"github.com/arklim/sentinel-identity/internal/infra/logger"
	"github.com/arklim/sentinel-identity/internal/infra/oracle"
	"github.com/arklim/sentinel-identity/internal/infra/security"
	"github.com/arklim/sentinel-identity/internal/infra/telemetry"
	"github.com/arklim/sentinel-identity/internal/repository/localstore"
	"github.com/arklim/sentinel-identity/internal/transport/http/routes"
	"github.com/arklim/sentinel-identity/internal/usecase"
)

// Application bundles the wired service and its HTTP engine.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

// New wires the full service from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	store, err := localstore.New(cfg.Storage.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	accounts := localstore.NewAccountRepository(store)
	sessionStore := localstore.NewSessionStore(store)

	digestAlgo := domain.DigestAlgo(cfg.Security.DigestAlgo)
	var validator port.PasswordPolicyValidator
	if cfg.Security.PasswordPolicy {
		validator = security.NewPasswordValidator(
			security.MinLengthRule(8),
			security.RequireCharacterClassesRule(2),
			security.RequirePasswordStrengthRule(cfg.Security.PasswordPolicyScore),
		)
	} else {
		validator = security.PermissivePasswordValidator()
	}

	credentials, err := usecase.NewCredentialService(accounts, digestAlgo, validator)
	if err != nil {
		return nil, fmt.Errorf("init credential service: %w", err)
	}
	sessions := usecase.NewSessionService(accounts, sessionStore)

	// The oracles need a Gemini API key; without one the flow still runs
	// and every analysis fails into the Failed phase with a clear message,
	// and the assistant answers with its fallback.
	var analysisOracle port.AnalysisOracle
	var assistantOracle port.AssistantOracle
	if cfg.Gemini.APIKey != "" {
		analysis, err := oracle.NewAnalysisClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.AnalysisModel)
		if err != nil {
			return nil, fmt.Errorf("init analysis oracle: %w", err)
		}
		assistant, err := oracle.NewAssistantClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.AssistantModel)
		if err != nil {
			return nil, fmt.Errorf("init assistant oracle: %w", err)
		}
		analysisOracle = analysis
		assistantOracle = assistant
	} else {
		log.Warn("gemini api key not configured; analysis and assistant oracles disabled")
		analysisOracle = oracle.Unavailable{}
	}

	flows := usecase.NewFlowRegistry(analysisOracle, credentials, sessions, usecase.VerificationFlowConfig{
		ScanDelay:       cfg.Flow.ScanDelay,
		AnalysisTimeout: cfg.Flow.AnalysisTimeout,
	}, log)

	assistant := usecase.NewAssistantService(assistantOracle, log)

	resolver := device.NewHTTPIPResolver(cfg.Device.IPLookupURL, cfg.Device.IPLookupTimeout)
	collector := device.NewCollector(resolver, log)

	var metrics *telemetry.VerificationMetrics
	if cfg.Telemetry.MetricsEnabled {
		metrics, err = telemetry.NewVerificationMetrics(cfg.Telemetry.Namespace, nil)
		if err != nil {
			return nil, fmt.Errorf("init verification metrics: %w", err)
		}
	}

	engine, err := routes.Register(routes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: routes.ServiceSet{
			Credentials: credentials,
			Sessions:    sessions,
			Flows:       flows,
			Assistant:   assistant,
		},
		Collector: collector,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Application{cfg: cfg, engine: engine, logger: log}, nil
}

// Run serves HTTP until the context is canceled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting sentinel identity API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
