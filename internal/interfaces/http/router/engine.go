// Package router assembles the gin engine: the global middleware chain,
// the unauthenticated operational endpoints and the versioned API.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentals/backend/internal/infrastructure/config"
	"github.com/rentals/backend/internal/infrastructure/logger"
	"github.com/rentals/backend/internal/infrastructure/telemetry"
	"github.com/rentals/backend/internal/interfaces/http/dto"
	"github.com/rentals/backend/internal/interfaces/http/handler"
	"github.com/rentals/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Applications handler.ApplicationService
	Verifier     middleware.TokenVerifier

	DatabasePing handler.PingFunc
	RedisPing    handler.PingFunc // nil when Redis is not configured

	// MetricsHandler serves GET /metrics. Nil leaves the route unregistered.
	MetricsHandler http.Handler
	// MeterProvider feeds the HTTP server metrics; nil disables them.
	MeterProvider *telemetry.MeterProvider
	// TracerProvider overrides the global provider for server spans.
	TracerProvider trace.TracerProvider
}

// NewEngine builds the gin engine with every route and middleware in place
func NewEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before anything logs, and the
	// span helpers must run inside the otelgin span.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log, respondPanic))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName:    serviceName(cfg),
		Enabled:        cfg.Telemetry.Enabled,
		TracerProvider: deps.TracerProvider,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: deps.MeterProvider,
		Enabled:       cfg.Telemetry.Enabled,
		Logger:        log,
	}))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsConfig(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	health := handler.NewHealthHandler(deps.DatabasePing, deps.RedisPing)
	engine.GET("/health", health.Check)
	if deps.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	applications := handler.NewApplicationHandler(deps.Applications)
	rentalRoutes := NewDomainGroup("rental", "/applications")
	rentalRoutes.GET("/:id", applications.GetApplication)
	rentalRoutes.PATCH("/:id/status", applications.UpdateStatus)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddleware(deps.Verifier, log))
	r.Register(rentalRoutes)
	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Route not found", middleware.GetRequestID(c)))
	})

	return engine
}

func respondPanic(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", middleware.GetRequestID(c)))
}

func serviceName(cfg *config.Config) string {
	if cfg.Telemetry.ServiceName != "" {
		return cfg.Telemetry.ServiceName
	}
	return telemetry.TracerName
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.CORSAllowHeaders
	}
	return corsCfg
}
