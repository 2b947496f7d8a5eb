package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	returnsapp "github.com/erp/returns/internal/application/returns"
	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/cache"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/erp/returns/internal/infrastructure/event"
	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/infrastructure/persistence"
	"github.com/erp/returns/internal/infrastructure/telemetry"
	"github.com/erp/returns/internal/interfaces/http/handler"
	"github.com/erp/returns/internal/interfaces/http/middleware"
	"github.com/erp/returns/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, log := setupTelemetry(ctx, cfg, log)
	defer tel.shutdown(log)

	log.Info("Starting returns service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{
		Logger:   log,
		LogLevel: cfg.Log.Level,
		Tracing: telemetry.DBTracingConfig{
			Enabled:            cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			DBName:             cfg.Database.DBName,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
			IncludeVariables:   cfg.Telemetry.DBLogFullSQL,
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Events raised by a save go to the outbox in the same transaction
	serializer := event.NewEventSerializer()
	event.RegisterReturnEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithEntryMaxRetries(cfg.Event.MaxRetries))

	returnRepo := persistence.NewGormReturnRepository(db.DB)
	returnRepo.SetOutboxEventSaver(outboxPublisher)
	scope := persistence.NewGormTransactionScope(db.DB)
	scope.SetOutboxEventSaver(outboxPublisher)

	service := returnsapp.NewService(
		returnRepo,
		persistence.NewGormBatchRepository(db.DB),
		persistence.NewGormStockLocationRepository(db.DB),
		persistence.NewGormWriteOffRepository(db.DB),
		returnsapp.WithTransactionScope(scope),
		returnsapp.WithLogger(log.Named("returns")),
		returnsapp.WithMaxNumberAttempts(cfg.Returns.MaxNumberAttempts),
		returnsapp.WithFreshnessPolicy(returns.FreshnessPolicy{
			LossPerInterval: decimal.NewFromFloat(cfg.Returns.FreshnessLossPer30Min),
			Interval:        30 * time.Minute,
		}),
	)

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	returnMetrics, err := telemetry.NewReturnMetrics(tel.meters.Meter("returns"))
	if err != nil {
		log.Fatal("Failed to create return metrics", zap.Error(err))
	}

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewIdempotentHandler("return_completed",
		returnsapp.NewReturnCompletedHandler(returnMetrics, log), idempotencyStore, log))
	bus.Subscribe(event.NewIdempotentHandler("return_activity",
		returnsapp.NewReturnActivityHandler(returnMetrics, log), idempotencyStore, log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var relayTarget shared.EventPublisher = bus
	if cfg.Kafka.Enabled {
		kafkaPublisher := event.NewKafkaPublisher(event.NewKafkaWriter(cfg.Kafka), serializer, cfg.Kafka.Topic, log)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				log.Error("Error closing Kafka writer", zap.Error(err))
			}
		}()
		relayTarget = event.NewFanOutPublisher(bus, kafkaPublisher)
		log.Info("Kafka publishing enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	outboxRepo := event.NewGormOutboxRepository(db.DB)
	processor := event.NewOutboxProcessor(outboxRepo, relayTarget, serializer, event.OutboxProcessorConfigFrom(cfg.Event), log)
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	checks := []handler.HealthCheck{{Name: "database", Check: db.Ping}}
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, handler.HealthCheck{Name: "redis", Check: pinger.Ping})
	}

	middleware.SetupValidator()
	engine, err := router.NewEngine(router.Dependencies{
		Config:         cfg,
		Logger:         log,
		Meter:          tel.meters.Meter("http"),
		Returns:        handler.NewReturnHandler(service),
		Outbox:         handler.NewOutboxHandler(outboxRepo, processor),
		System:         handler.NewSystemHandler(cfg.App.Name, version, checks...),
		Idempotency:    idempotencyStore,
		IdempotencyTTL: cfg.Returns.IdempotencyTTL,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if cfg.Event.ProcessorEnabled {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

type telemetryProviders struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

// setupTelemetry starts the OTEL providers and the profiler. Failures are
// logged and the service runs without the failed signal. The returned logger
// is teed into OTLP when log export is enabled.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) (*telemetryProviders, *zap.Logger) {
	t := cfg.Telemetry
	p := &telemetryProviders{}

	var err error
	p.tracer, err = telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           t.Enabled,
		CollectorEndpoint: t.CollectorEndpoint,
		SamplingRatio:     t.SamplingRatio,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize tracer, tracing disabled", zap.Error(err))
		p.tracer, _ = telemetry.NewTracerProvider(ctx, telemetry.Config{}, log)
	}

	p.meters, err = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           t.Enabled && t.MetricsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ExportInterval:    t.MetricsInterval,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize metrics, metrics disabled", zap.Error(err))
		p.meters, _ = telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, log)
	}

	p.logs, err = telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           t.Enabled && t.LogsEnabled,
		CollectorEndpoint: t.CollectorEndpoint,
		ServiceName:       t.ServiceName,
		Insecure:          t.Insecure,
	}, log)
	if err != nil {
		log.Error("Failed to initialize log export", zap.Error(err))
	} else {
		log = telemetry.Bridge(log, t.ServiceName, p.logs, logger.ParseLevel(t.LogsLevel))
	}

	p.profiler, err = telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           t.ProfilingEnabled,
		ServerAddress:     t.ProfilingServer,
		ApplicationName:   t.ServiceName,
		BasicAuthUser:     t.ProfilingUser,
		BasicAuthPassword: t.ProfilingPassword,
		ProfileTypes:      t.ProfilingTypes,
	}, log)
	if err != nil {
		log.Error("Failed to start profiler", zap.Error(err))
	} else if p.profiler.IsEnabled() && t.ProfilingSpanProfiles {
		p.tracer.EnableSpanProfiles()
	}
	return p, log
}

func (p *telemetryProviders) shutdown(log *zap.Logger) {
	ctx := context.Background()
	if p.profiler != nil {
		if err := p.profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if err := p.tracer.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer", zap.Error(err))
	}
	if err := p.meters.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}
}
