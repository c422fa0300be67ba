package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cashapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/cashregister"
	eventapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/event"
	orderapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/order"
	paymentapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/payment"
	printingapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/printing"
	tenantapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/tenant"
	domainprinting "github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/auth"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/cache"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/config"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/event"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/logger"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/migration"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence"
	tenantscope "github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/scheduler"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/storage"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/handler"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/middleware"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/fxavier/restaurant-pro-api-sub000/migrations"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}

	// Bootstrap logger reports telemetry setup before the final logger exists
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telCfg := telemetry.FromConfig(cfg.Telemetry, version)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telCfg, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telCfg, 0, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	var logOpts []logger.Option
	var logProvider *telemetry.LoggerProvider
	if cfg.Telemetry.LogExportEnabled {
		logProvider, err = telemetry.NewLoggerProvider(ctx, telCfg, bootLog)
		if err != nil {
			bootLog.Fatal("Failed to initialize logger provider", zap.Error(err))
		}
		logOpts = append(logOpts, logger.WithCore(logProvider.Core(zapcore.InfoLevel)))
	}

	// Initialize logger
	log, err := logger.New(logCfg, logOpts...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	defer shutdownTelemetry(log, tracerProvider, meterProvider, logProvider)

	log.Info("Starting restaurant POS core",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	metrics, err := telemetry.NewBusinessMetrics(meterProvider.Meter("restaurant-pos"))
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Initialize database connection
	plugins := telemetry.DBTracingPlugins(telemetry.DBTracingConfig{
		Enabled: cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:  cfg.Database.DBName,
	})
	db, err := persistence.NewDatabase(&cfg.Database, log, plugins...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrate(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Event plumbing: outbox writer, transport and relay
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	tx := persistence.NewGormTransactionScope(db.DB, event.NewOutboxPublisher(serializer, cfg.Event.MaxRetries))

	eventBus := newEventBus(cfg.Event.Transport, serializer, log)

	markers, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx, cfg.Idempotency.Store)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = markers.Close()
	}()
	idempotencyMetrics := &event.IdempotencyMetrics{}
	dedupe := []event.IdempotentHandlerOption{
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Idempotency.TTL, Enabled: true}),
		event.WithIdempotencyMetrics(idempotencyMetrics),
	}

	// Application services
	orderService := orderapp.NewOrderService(tx, log, orderapp.WithMetrics(metrics))
	paymentService := paymentapp.NewPaymentService(tx, log, paymentapp.WithMetrics(metrics))
	sessionService := cashapp.NewSessionService(tx, log, cashapp.WithMetrics(metrics))
	printerService := printingapp.NewPrinterService(tx, log, printingapp.WithMetrics(metrics))
	sink, err := newPrintSink(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create print sink", zap.Error(err))
	}
	dispatcher := printingapp.NewPrintDispatcher(tx, sink, log,
		printingapp.WithMetrics(metrics),
		printingapp.WithBatchSize(cfg.Print.DispatchBatch),
	)
	provisioning := tenantapp.NewProvisioningService(persistence.NewGormTenantRepository(db.DB), tenantscope.Provisioning, log)

	// Consumers of committed events
	recorder := cashapp.NewCashMovementRecorder(tx, log)
	materializer := printingapp.NewPrintJobMaterializer(tx, log, printingapp.WithMetrics(metrics))
	eventBus.Subscribe(event.NewIdempotentHandler(recorder, markers, log, dedupe...))
	eventBus.Subscribe(event.NewIdempotentHandler(materializer, markers, log, dedupe...))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	relay := event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		ClaimLease:       cfg.Event.ClaimLease,
	}, log).WithObserver(metrics)
	if cfg.Event.ProcessorEnabled {
		tx.OnCommit(relay.Trigger)
		if err := relay.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := relay.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
	} else {
		log.Warn("Outbox processor disabled; committed events stay PENDING")
	}
	outboxService := eventapp.NewOutboxService(outboxRepo, tenantscope.Bind, relay.Trigger, log)

	// Periodic print dispatch, one pass per active tenant
	if cfg.Print.DispatchEnabled {
		loopCfg := scheduler.DefaultTenantLoopConfig("print-dispatch")
		loopCfg.Interval = cfg.Print.DispatchInterval
		dispatchLoop, err := scheduler.NewTenantLoop(loopCfg, provisioning, func(ctx context.Context, tenantID uuid.UUID) error {
			_, err := dispatcher.Dispatch(ctx, shared.NewScope(tenantID, uuid.Nil))
			return err
		}, log)
		if err != nil {
			log.Fatal("Failed to create print dispatch loop", zap.Error(err))
		}
		if err := dispatchLoop.Start(ctx); err != nil {
			log.Fatal("Failed to start print dispatch loop", zap.Error(err))
		}
		defer func() {
			if err := dispatchLoop.Stop(context.Background()); err != nil {
				log.Error("Error stopping print dispatch loop", zap.Error(err))
			}
		}()
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register decimal-aware validation rules
	middleware.SetupValidator()

	jwtService := auth.NewJWTService(cfg.JWT)
	limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)

	// Create Gin engine
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.Tracing(telCfg.ServiceName, cfg.Telemetry.Enabled))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodyBytes))
	engine.Use(middleware.Timeout(cfg.HTTP.RequestTimeout))

	// Setup routes; health checks stay outside the authenticated API group
	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(
			middleware.JWTAuth(middleware.DefaultJWTConfig(jwtService)),
			middleware.TracingAttributeInjector(),
			middleware.SpanErrorMarker(),
			middleware.RateLimit(limiter),
		),
	)
	r.Register(handler.NewTenantHandler(provisioning).Routes()).
		Register(handler.NewOrderHandler(orderService).Routes()).
		Register(handler.NewPaymentHandler(paymentService).Routes()).
		Register(handler.NewCashSessionHandler(sessionService).Routes()).
		Register(handler.NewPrinterHandler(printerService, dispatcher).Routes()).
		Register(handler.NewOutboxHandler(outboxService).Routes())
	r.Setup(func() error {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return db.Ping(pingCtx)
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
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

	stats := idempotencyMetrics.Stats()
	log.Info("Server exited gracefully",
		zap.Int64("events_processed", stats.EventsProcessed),
		zap.Int64("events_duplicate", stats.EventsDuplicate),
		zap.Int64("events_failed", stats.EventsFailed),
	)
}

func migrate(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewFromFS(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}

func newEventBus(transport string, serializer *event.EventSerializer, log *zap.Logger) shared.EventBus {
	if transport == "watermill" {
		return event.NewWatermillEventBus(serializer, log)
	}
	return event.NewInMemoryEventBus(log)
}

func newPrintSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (domainprinting.Sink, error) {
	renderer := printing.NewTicketRenderer(cfg.Print.TicketWidth)
	var sink domainprinting.Sink = printing.NewLogSink(renderer, log)
	if cfg.Print.Sink == "socket" {
		sink = printing.NewSocketSink(renderer, cfg.Print.DialTimeout, log)
	}
	if !cfg.Print.ArchiveEnabled {
		return sink, nil
	}

	archive, err := storage.NewS3ObjectStorage(ctx, &cfg.Storage, storage.WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := archive.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Ticket archive enabled", zap.String("bucket", archive.Bucket()))
	return printing.NewArchiveSink(sink, archive, renderer, log), nil
}

func shutdownTelemetry(log *zap.Logger, tp *telemetry.TracerProvider, mp *telemetry.MeterProvider, lp *telemetry.LoggerProvider) {
	ctx := context.Background()
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if lp != nil {
		if err := lp.Shutdown(ctx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}
}
