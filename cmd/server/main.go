package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appordering "github.com/restorecommerce/ordering-srv-sub000/internal/application/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/auth"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/awaitqueue"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/cache"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/config"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/event"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/logger"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/migration"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/persistence"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/printing"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/remote"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/storage"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/handler"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/middleware"
	"github.com/restorecommerce/ordering-srv-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	// Telemetry comes first so the remaining setup is logged through the bridge
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log = loggerProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting ordering service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		Exporter:          cfg.Telemetry.Exporter,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	orderingMetrics, err := telemetry.NewOrderingMetrics(meterProvider.Meter("ordering"))
	if err != nil {
		log.Fatal("Failed to create ordering metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Profiling.ApplicationName,
		ProfileTypes:    cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Profiling.Enabled && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithTracing(telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access database handle", zap.Error(err))
	}
	migrator, err := migration.New(sqlDB, "", log)
	if err != nil {
		log.Fatal("Failed to prepare migrations", zap.Error(err))
	}
	if err := migrator.Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Locks, response deduplication and the event bus
	lockStore, redisClient, err := cache.NewStoreFactory(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cache.WithLogger(log), cache.WithInMemoryFallback(cfg.Event.Bus != "redis")).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create lock store", zap.Error(err))
	}

	bus, err := newEventBus(cfg.Event, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create event bus", zap.Error(err))
	}

	// Ordering service
	clients := remote.NewClients(cfg.Remote, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	interceptors := []appordering.Interceptor{}
	if !cfg.JWT.Optional {
		interceptors = append(interceptors, appordering.RequireSubject())
	}
	interceptors = append(interceptors,
		appordering.InjectMeta(),
		appordering.CheckPermission(appordering.PermissionDecider{AdminRoles: cfg.JWT.AdminRoles}),
	)

	queueOpts := []awaitqueue.Option{
		awaitqueue.WithLogger(log.Named("renders")),
		awaitqueue.WithTimeoutHook(func(string) { orderingMetrics.RecordAwaitTimeout(ctx) }),
	}
	if cfg.Ordering.AwaitStrict {
		queueOpts = append(queueOpts, awaitqueue.WithStrictRegistration())
	}

	opts := appordering.Options{
		ReadLimit:         cfg.Ordering.ReadLimit,
		AwaitTimeout:      cfg.Ordering.AwaitTimeout,
		SubmitLockTTL:     cfg.Ordering.SubmitLockTTL,
		ContactPointTypes: appordering.ContactPointTypes{
			Legal:    cfg.Ordering.LegalAddressType,
			Shipping: cfg.Ordering.ShippingAddressType,
			Billing:  cfg.Ordering.BillingAddressType,
		},
		Defaults: appordering.NewDefaults(cfg.Ordering.DefaultSettings),
	}
	orderService := appordering.NewService(
		persistence.NewGormOrderRepository(db.DB),
		orderingServices(clients),
		opts,
		log.Named("ordering"),
		appordering.WithEventPublisher(bus),
		appordering.WithLockStore(lockStore),
		appordering.WithRenderQueue(awaitqueue.New[appordering.RenderResult](queueOpts...)),
		appordering.WithAccessChain(appordering.NewChain(interceptors...)),
		appordering.WithMetrics(orderingMetrics),
	)

	bus.Subscribe(event.NewIdempotentHandler(
		appordering.NewRenderResponseHandler(orderService, log),
		lockStore,
		log,
		event.WithKeyFunc(appordering.RenderCorrelationKey),
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Ordering.DedupeResponseTTL, Enabled: true}),
	))

	var pdf printing.PDFRenderer
	if cfg.Printing.Enabled {
		worker, renderer, err := newRenderWorker(ctx, cfg, bus, log)
		if err != nil {
			log.Fatal("Failed to create render worker", zap.Error(err))
		}
		pdf = renderer
		bus.Subscribe(worker)
	}

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter("http.server"))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		httpMetrics,
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)
	if cfg.Profiling.Enabled {
		engine.Use(middleware.Profiling())
	}

	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Optional = cfg.JWT.Optional
	jwtCfg.Logger = log
	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
	}
	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingerFunc(func() error {
			return redisClient.Ping(context.Background()).Err()
		})
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	systemHandler.RegisterProbes(engine)

	router.NewRouter(engine, router.WithAPIMiddleware(apiMiddleware...)).
		Register(systemHandler, handler.NewOrderHandler(orderService)).
		Setup()

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if limiter != nil {
		limiter.Stop()
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if pdf != nil {
		if err := pdf.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}
	if err := lockStore.Close(); err != nil {
		log.Error("Error closing lock store", zap.Error(err))
	}
	if err := migrator.Close(); err != nil {
		log.Error("Error closing migrator", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newEventBus selects the bus from configuration. The redis bus needs the
// client of the lock store.
func newEventBus(cfg config.EventConfig, client *redis.Client, log *zap.Logger) (shared.EventBus, error) {
	var opts []event.BusOption
	if cfg.Async {
		opts = append(opts, event.WithAsyncDispatch())
	}
	if cfg.Bus != "redis" {
		return event.NewInMemoryEventBus(log.Named("events"), opts...), nil
	}
	if client == nil {
		return nil, errors.New("redis event bus requires a reachable redis")
	}
	serializer := event.NewEventSerializer()
	event.RegisterOrderingEvents(serializer)
	return event.NewRedisEventBus(client, cfg.Channel, serializer, log.Named("events"), opts...), nil
}

// newRenderWorker builds the worker answering render requests. PDFs are
// uploaded to S3 when a bucket is configured and kept in memory otherwise.
func newRenderWorker(ctx context.Context, cfg *config.Config, publisher shared.EventPublisher, log *zap.Logger) (*printing.Worker, printing.PDFRenderer, error) {
	opts := []printing.WorkerOption{
		printing.WithRenderTimeout(cfg.Printing.Timeout),
		printing.WithWorkerLogger(log.Named("printing")),
	}
	var renderer printing.PDFRenderer
	if cfg.Printing.PDF {
		var store storage.DocumentStore
		if cfg.Storage.Bucket != "" {
			s3, err := storage.NewS3Store(&cfg.Storage, storage.WithLogger(log.Named("storage")))
			if err != nil {
				return nil, nil, err
			}
			if err := s3.EnsureBucket(ctx); err != nil {
				return nil, nil, err
			}
			store = s3
		} else {
			log.Warn("No storage bucket configured, rendered PDFs are kept in memory")
			store = storage.NewMemoryStore("memory://documents")
		}
		renderer = printing.NewChromedpRenderer(printing.ChromedpConfig{
			Timeout:   cfg.Printing.Timeout,
			ExecPath:  cfg.Printing.ChromePath,
			NoSandbox: true,
			Logger:    log.Named("chromedp"),
		})
		opts = append(opts, printing.WithPDF(renderer, store))
	}
	worker := printing.NewWorker(
		printing.NewTemplateStore(cfg.Printing.TemplateDir),
		printing.NewTemplateEngine(),
		publisher,
		opts...,
	)
	return worker, renderer, nil
}

// orderingServices exposes the remote clients as the collaborators of the
// ordering workflow
func orderingServices(c *remote.Clients) appordering.Services {
	return appordering.Services{
		Shops:                c.Shops,
		Customers:            c.Customers,
		Organizations:        c.Organizations,
		ContactPoints:        c.ContactPoints,
		Addresses:            c.Addresses,
		Countries:            c.Countries,
		Currencies:           c.Currencies,
		Taxes:                c.Taxes,
		Products:             c.Products,
		Users:                c.Users,
		Locales:              c.Locales,
		Settings:             c.Settings,
		Fulfillments:         c.Fulfillments,
		FulfillmentSolutions: c.FulfillmentSolutions,
		Invoices:             c.Invoices,
		Notifications:        c.Notifications,
	}
}
