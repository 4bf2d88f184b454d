package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"unidash/internal/config"
	"unidash/internal/dataset"
	apierrors "unidash/internal/errors"
	"unidash/internal/infrastructure"
	customMiddleware "unidash/internal/middleware"
	"unidash/internal/services"
	handlers "unidash/internal/transport/http"
	ws "unidash/internal/websocket"
)

// BuildTime is set at compile time with -ldflags "-X unidash/internal/app.BuildTime=..."
var BuildTime = ""

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.DashboardMetrics
	ErrorHandler  *apierrors.ErrorHandler
	Services      *ServiceContainer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Dashboard *services.DashboardService
	Health    *services.HealthService
	WebSocket *ws.Hub
}

// NewApplication loads configuration and logging from the environment and
// builds the application around the executable's directory layout.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	return New(cfg, paths, logger)
}

// New wires every component of the application. The dataset is loaded
// eagerly; a dataset that cannot be loaded aborts startup.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion))

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateDashboardMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Telemetry.Environment == "development"),
	}

	if err := app.initializeServices(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

func (a *Application) initializeServices(ctx context.Context) error {
	path := a.Paths.ResolveDataFile(a.Config.Dataset.Path)

	start := time.Now()
	table, err := dataset.Load(ctx, path,
		dataset.WithDelimiter(a.Config.Dataset.DelimiterRune()),
		dataset.WithSheet(a.Config.Dataset.Sheet),
		dataset.WithLogger(a.Logger))
	if err != nil {
		return err
	}
	a.Metrics.RecordDatasetLoad(ctx, table.Len(), time.Since(start))

	dashboardService := services.NewDashboardService(table, filepath.Base(path), a.Logger,
		a.OTelProviders.Tracer, a.Metrics)

	hub := ws.NewHub(dashboardService,
		customMiddleware.NewSelectionValidator(a.Logger, a.ErrorHandler),
		a.Config.WebSocket, a.Metrics, a.Logger)

	a.Services = &ServiceContainer{
		Dashboard: dashboardService,
		Health:    services.NewHealthService(config.AppVersion, BuildTime, dashboardService, hub, a.Logger),
		WebSocket: hub,
	}
	return nil
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// Middleware that does not wrap the ResponseWriter, safe for upgrades
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Handle("/ws", ws.NewHandler(a.Services.WebSocket, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.Logger, a.ErrorHandler))

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				ExposedHeaders: []string{config.HeaderRequestID, "Content-Disposition"},
				Logger:         a.Logger,
			}))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}

		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5, "application/json", "text/html", "text/csv", "image/svg+xml"))

		a.setupAPIRoutes(r)
		r.Handle("/", handlers.NewPageHandler(a.Services.Dashboard, a.Logger, a.ErrorHandler))
	})

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	dashboard := handlers.NewDashboardHandler(a.Services.Dashboard, a.Logger, a.ErrorHandler)
	clientLog := handlers.NewClientLogHandler(a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HealthCheck)
		r.Get("/health/live", health.LivenessCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/version", health.Version)

		r.With(render.SetContentType(render.ContentTypeJSON)).Post("/logs", clientLog.Handle)

		r.Mount("/dashboard", dashboard.Routes())
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Services.WebSocket.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "Application started",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
			slog.Int("rows", a.Services.Dashboard.Rows()),
			slog.String("dataset", a.Services.Dashboard.Source()))

		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Services.WebSocket.Broadcast(map[string]string{"status": "shutting_down"}); err != nil {
		a.Logger.DebugContext(ctx, "Shutdown notice not sent", slog.String("error", err.Error()))
	}

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Services.WebSocket.Stop()

	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return infrastructure.CloseLogFile()
}

// performStartupHealthCheck reports directories the exporter cannot write to.
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var errs []error
	for name, dir := range map[string]string{"exports": a.Paths.ExportsDir, "logs": a.Paths.LogsDir} {
		probe := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			errs = append(errs, fmt.Errorf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(probe)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}
