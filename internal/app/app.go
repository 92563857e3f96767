package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"allocdash/internal/cache"
	"allocdash/internal/config"
	"allocdash/internal/dataprocessing"
	"allocdash/internal/errors"
	"allocdash/internal/files"
	"allocdash/internal/infrastructure"
	custommw "allocdash/internal/middleware"
	"allocdash/internal/services"
	handlers "allocdash/internal/transport/http"
	ws "allocdash/internal/websocket"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics

	Cache            *cache.WorkbookCache
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	WebSocketHub     *ws.Hub
	Scheduler        *ReloadScheduler
}

// NewApplication loads the configuration and wires every component
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires an application from an already loaded configuration
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create dashboard metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices builds the data layer, the services and the hub
func (a *Application) initializeServices() error {
	svc, workbooks, err := NewDashboardService(context.Background(), a.Config, a.Paths, a.Logger)
	if err != nil {
		return err
	}
	workbooks.SetObserver(a.Metrics)
	svc.SetMetrics(a.Metrics)
	a.Cache = workbooks
	a.DashboardService = svc

	hub := ws.NewHub(a.Logger)
	hub.Configure(a.Config.WebSocket)
	hub.SetMetrics(a.Metrics)
	hub.Start()
	svc.SetNotifier(hub)
	a.WebSocketHub = hub

	a.HealthService = services.NewHealthService(config.AppVersion, workbooks, hub, svc.Warm, a.Logger)

	scheduler, err := NewReloadScheduler(a.Config.Data.ReloadSchedule, svc, a.Logger)
	if err != nil {
		hub.Stop()
		return err
	}
	a.Scheduler = scheduler

	return nil
}

// NewDashboardService builds the workbook cache and the dashboard service
// over it, without metrics or notifications
func NewDashboardService(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*services.DashboardService, *cache.WorkbookCache, error) {
	source, err := workbookSource(ctx, cfg.Data, paths.DataDir, logger)
	if err != nil {
		return nil, nil, err
	}

	normalizer := dataprocessing.NewNormalizer(logger, services.SheetNamesFromConfig(cfg.Data))
	workbooks := cache.New(source, normalizer, logger)

	opts := services.OptionsFromConfig(cfg.Data)
	opts.DataDir = paths.DataDir
	return services.NewDashboardService(workbooks, opts, logger), workbooks, nil
}

// workbookSource reads local paths from the data directory and, when any
// workbook lives in S3, s3:// locations through the AWS SDK
func workbookSource(ctx context.Context, cfg config.DataConfig, dataDir string, logger *slog.Logger) (files.Source, error) {
	local := files.NewLocalSource(dataDir)
	if !cfg.UsesS3() {
		return local, nil
	}

	remote, err := files.NewS3SourceFromEnv(ctx, cfg.S3Region)
	if err != nil {
		return nil, errors.NewConfigError("failed to configure S3 workbook source", err)
	}
	logger.Info("S3 workbook source enabled", slog.String("region", cfg.S3Region))
	return files.NewRouter(local, remote), nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := errors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	// Only middleware that leaves the ResponseWriter unwrapped runs ahead
	// of the upgrade route.
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)

	wsHandler := handlers.NewWebSocketHandler(a.WebSocketHub, a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger)
	r.With(custommw.WebSocketTraceMiddleware(a.Logger)).Handle("/ws", wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(custommw.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(custommw.StructuredLogger(a.Logger))
		r.Use(errorHandler.RecoveryMiddleware)
		r.Use(custommw.SecurityHeaders)
		if a.Config.Security.EnableCORS {
			r.Use(custommw.CORS(a.Config.Security))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(custommw.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(custommw.Timeout(a.Config.Server.RequestTimeout))
		r.Use(custommw.Compress(5))

		a.setupAPIRoutes(r, errorHandler)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *errors.ErrorHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Mount("/metrics", handlers.NewMetricsHandler(a.Cache, a.WebSocketHub).Routes())
			r.Mount("/", handlers.NewDashboardHandler(a.DashboardService, a.Logger, errorHandler).Routes())
		})

		r.Mount("/", handlers.NewHealthHandler(a.HealthService, a.Logger).Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start warms the cache, starts the reload schedule and serves HTTP in
// the background. A listener failure cancels ctx.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", a.Server.Addr),
		slog.String("data_dir", a.Paths.DataDir),
		slog.String("level", a.Config.Logging.Level))

	// Broken workbooks are logged and reported by readiness; they do not
	// stop the server.
	if err := a.DashboardService.Warm(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup warm-up incomplete", slog.String("error", err.Error()))
	}

	a.Scheduler.Start()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully")
	return nil
}

// Stop shuts the server down and releases background resources
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Scheduler.Stop(shutdownCtx)
	a.WebSocketHub.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal")
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	return a.Stop(context.Background())
}
