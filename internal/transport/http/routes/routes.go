package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/arklim/sentinel-identity/internal/infra/config"
	"github.com/arklim/sentinel-identity/internal/infra/device"
	"github.com/arklim/sentinel-identity/internal/infra/telemetry"
	"github.com/arklim/sentinel-identity/internal/transport/http/handlers"
	"github.com/arklim/sentinel-identity/internal/transport/http/middleware"
	"github.com/arklim/sentinel-identity/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Credentials *usecase.CredentialService
	Sessions    *usecase.SessionService
	Flows       *usecase.FlowRegistry
	Assistant   *usecase.AssistantService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config    *config.AppConfig
	Logger    *zap.Logger
	Services  ServiceSet
	Collector *device.Collector
	Metrics   *telemetry.VerificationMetrics
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) (*gin.Engine, error) {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	if deps.Config.Telemetry.MetricsEnabled {
		httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{
			Namespace: deps.Config.Telemetry.Namespace,
		})
		if err != nil {
			return nil, err
		}
		r.Use(httpMetrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	healthHandler := handlers.NewHealthHandler()
	r.GET("/healthz", healthHandler.Status)

	api := r.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(
		deps.Services.Credentials,
		deps.Services.Sessions,
		deps.Collector,
		deps.Services.Flows,
		deps.Logger,
	)
	authHandler.RegisterRoutes(api.Group("/auth"))

	verificationHandler := handlers.NewVerificationHandler(
		deps.Services.Flows,
		deps.Services.Sessions,
		deps.Metrics,
		deps.Logger,
	)
	verificationHandler.RegisterRoutes(api.Group("/verification"))

	assistantHandler := handlers.NewAssistantHandler(
		deps.Services.Assistant,
		deps.Services.Flows,
		deps.Services.Sessions,
	)
	assistantHandler.RegisterRoutes(api.Group("/assistant"))

	return r, nil
}
