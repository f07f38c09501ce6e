package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apprental "github.com/rentals/backend/internal/application/rental"
	"github.com/rentals/backend/internal/domain/shared"
	"github.com/rentals/backend/internal/infrastructure/auth"
	"github.com/rentals/backend/internal/infrastructure/cache"
	"github.com/rentals/backend/internal/infrastructure/config"
	"github.com/rentals/backend/internal/infrastructure/event"
	"github.com/rentals/backend/internal/infrastructure/logger"
	"github.com/rentals/backend/internal/infrastructure/persistence"
	"github.com/rentals/backend/internal/infrastructure/scheduler"
	"github.com/rentals/backend/internal/infrastructure/telemetry"
	"github.com/rentals/backend/internal/interfaces/http/handler"
	"github.com/rentals/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = baseLog.Sync()
	}()

	ctx := context.Background()

	// OpenTelemetry: traces, metrics and logs share the collector endpoint
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(baseLog, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(baseLog, "meter provider", meterProvider.Shutdown)

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(baseLog, "logger provider", loggerProvider.Shutdown)

	log := telemetry.BridgeLogger(baseLog, loggerProvider, zapcore.InfoLevel)

	log.Info("Starting rental backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("telemetry", cfg.Telemetry.Enabled),
	)

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	dbInstrumentation, err := telemetry.NewDBInstrumentation(telemetry.DBInstrumentationConfig{
		TracingEnabled:     cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBName:             cfg.Database.DBName,
	}, meterProvider.Meter("rental-backend/db"), log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := db.DB.Use(dbInstrumentation); err != nil {
		log.Fatal("Failed to register database instrumentation", zap.Error(err))
	}
	defer func() {
		_ = dbInstrumentation.Close()
	}()

	// Redis backs cache invalidation and event idempotency when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, falling back to in-process stores", zap.Error(err))
			redisClient = nil
		} else {
			defer func() {
				_ = redisClient.Close()
			}()
		}
	}

	// Repositories
	applicationRepo := persistence.NewGormApplicationRepository(db.DB)
	propertyRepo := persistence.NewGormPropertyRepository(db.DB)
	roomRepo := persistence.NewGormRoomRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	leaseRepo := persistence.NewGormLeaseRepository(db.DB)
	referralRepo := persistence.NewGormReferralRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)

	// Metrics sinks
	settlementMetrics, err := telemetry.NewSettlementMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to create settlement metrics", zap.Error(err))
	}
	promCollector := telemetry.NewPrometheusCollector()

	// Event bus and post-commit handlers
	eventBus := event.NewInMemoryEventBus(log, event.WithAsyncTimeout(cfg.Settlement.TelemetryTimeout))

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(
		cache.WithLogger(log),
		cache.WithKeyPrefix("rental:event:"),
	).CreateStore(redisClient)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()
	idempotency := event.WithIdempotencyConfig(shared.IdempotencyConfig{
		TTL:     cfg.Settlement.IdempotencyTTL,
		Enabled: true,
	})

	var changePublisher apprental.ChangePublisher = cache.NewLoggingChangePublisher(log)
	if redisClient != nil {
		changePublisher = cache.NewRedisEntityChangePublisher(redisClient,
			cache.WithChangeChannel(cfg.Settlement.ChangeChannel),
			cache.WithPublisherLogger(log),
		)
	}

	entityChangedHandler := event.NewIdempotentHandler(
		apprental.NewEntityChangedHandler(changePublisher, log), idempotencyStore, log,
		idempotency, event.WithKeyScope("entity_changed"))
	telemetryHandler := event.NewIdempotentHandler(
		apprental.NewTransitionTelemetryHandler(log, settlementMetrics, promCollector), idempotencyStore, log,
		idempotency, event.WithKeyScope("telemetry"))
	eventBus.Subscribe(entityChangedHandler)
	eventBus.Subscribe(telemetryHandler)

	log.Info("Event handlers registered",
		zap.Strings("entity_changed_events", entityChangedHandler.EventTypes()),
		zap.Strings("telemetry_events", telemetryHandler.EventTypes()),
	)

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer shutdown(log, "event bus", eventBus.Stop)

	// Application services
	policy := apprental.SettlementPolicy{
		RewardAmount:         cfg.Settlement.RewardAmount,
		RewardValidity:       cfg.Settlement.RewardValidity,
		DepositRatio:         cfg.Settlement.DepositRatio,
		FallbackMonthlyPrice: cfg.Settlement.FallbackMonthlyPrice,
		LeaseTerm:            cfg.Settlement.LeaseTerm,
	}
	provisioner := apprental.NewLeaseProvisioner(leaseRepo, policy, log)
	issuer := apprental.NewVoucherIssuer(voucherRepo, policy, log)
	settlement := apprental.NewReferralSettlementService(referralRepo, issuer, log)
	transitions := apprental.NewStatusTransitionService(
		applicationRepo, propertyRepo, roomRepo, tenantRepo, leaseRepo,
		provisioner, settlement, log,
		apprental.WithEventPublisher(eventBus),
		apprental.WithSettlementRecorder(settlementMetrics),
	)

	// Scheduled jobs
	cronRunner := scheduler.NewCronRunner(log, scheduler.WithJobTimeout(cfg.Scheduler.JobTimeout))
	if cfg.Scheduler.VoucherExpiryEnabled {
		expiry := apprental.NewVoucherExpiryService(voucherRepo, log)
		if err := cronRunner.AddJob("voucher-expiry", cfg.Scheduler.VoucherExpirySchedule, scheduler.JobFunc(expiry.Run)); err != nil {
			log.Fatal("Failed to schedule voucher expiry", zap.Error(err))
		}
	}
	cronRunner.Start()
	defer shutdown(log, "scheduler", cronRunner.Stop)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	var redisPing handler.PingFunc
	if redisClient != nil {
		redisPing = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	engine := router.NewEngine(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		Applications:   transitions,
		Verifier:       auth.NewJWTVerifier(cfg.JWT),
		DatabasePing:   db.PingContext,
		RedisPing:      redisPing,
		MetricsHandler: promCollector.Handler(),
		MeterProvider:  meterProvider,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdown runs stop with a bounded context, logging any failure
func shutdown(log *zap.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}
