package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"abrsqol/internal/config"
	apierrors "abrsqol/internal/errors"
	"abrsqol/internal/infrastructure"
	customMiddleware "abrsqol/internal/middleware"
	"abrsqol/internal/operations"
	"abrsqol/internal/services"
	handlers "abrsqol/internal/transport/http"
	ws "abrsqol/internal/websocket"
	"abrsqol/pkg/contracts"
)

// AppName is reported in startup logs.
const AppName = "abrsqol - quality of life inversion server"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	QoLService    *services.QoLService
	HealthService *services.HealthService
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	AppMetrics    *infrastructure.AppMetrics
	StreamMetrics *ws.Metrics
	JobQueue      *operations.JobQueue

	listener    net.Listener
	stopWorkers context.CancelFunc
}

// NewApplication wires the services, router and server for cfg. A nil
// logger uses the global logger.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()
	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	appMetrics, err := infrastructure.CreateAppMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create app metrics: %w", err)
	}
	a.AppMetrics = appMetrics

	streamMetrics, err := ws.NewMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create stream metrics: %w", err)
	}
	a.StreamMetrics = streamMetrics

	qolService, err := services.NewQoLService(a.Config, a.Logger, a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to initialize qol service: %w", err)
	}
	a.QoLService = qolService

	// Workers run for the lifetime of the application, not of a request.
	a.JobQueue = operations.NewJobQueue(a.Config.Jobs, nil, qolService, a.Logger)
	if err := a.JobQueue.RegisterMetrics(a.OTelProviders.Meter); err != nil {
		return fmt.Errorf("failed to register job metrics: %w", err)
	}
	workerCtx, cancel := context.WithCancel(context.Background())
	a.stopWorkers = cancel
	a.JobQueue.Start(workerCtx)

	a.HealthService = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Logger)
	a.HealthService.SetJobQueue(a.JobQueue)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// Middleware that does not wrap the ResponseWriter, so the stream
	// route below can still hijack the connection.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	r.With(apierrors.RecoveryMiddleware(errorHandler)).Handle("/api/v1/qol/stream", handlers.NewStreamHandler(a.QoLService, handlers.StreamConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		ProgressEvery:  a.Config.Solver.LogEvery,
		Metrics:        a.StreamMetrics,
	}, a.Logger, errorHandler))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → errors/logging → security → CORS → rate limit
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.AppMetrics)
		if err != nil {
			a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/healthz", healthHandler.HealthCheck)
		r.Get("/readyz", healthHandler.ReadinessCheck)
		r.Get("/livez", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(customMiddleware.MaxBodyBytes(a.Config.Server.MaxBodyBytes))
			r.Use(customMiddleware.Timeout(a.Config.Server.WriteTimeout))
			r.Mount("/qol", handlers.NewQoLHandler(a.QoLService, a.Logger, errorHandler).Routes())
			r.Mount("/jobs", handlers.NewJobsHandler(a.JobQueue, a.QoLService, a.Logger, errorHandler).Routes())
		})
	})

	// Prometheus scrapes bypass the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// getCORSConfig returns CORS configuration
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Addr returns the address the server listens on once started.
func (a *Application) Addr() string {
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.Server.Addr
}

// Start binds the listener and serves in the background. A serve failure
// calls cancel instead of exiting the process.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Addr()),
		slog.String("level", a.Config.Logging.Level),
		slog.Bool("telemetry", a.Config.Telemetry.Enabled))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.stopJobs(ctx)

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// stopJobs cancels queued jobs and waits for running ones within the
// shutdown timeout.
func (a *Application) stopJobs(ctx context.Context) {
	if a.JobQueue == nil {
		return
	}
	if err := a.JobQueue.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		a.Logger.WarnContext(ctx, "Job queue did not stop cleanly", slog.String("error", err.Error()))
	}
	if a.stopWorkers != nil {
		a.stopWorkers()
	}
}

// Run runs the application until interrupted or the server fails.
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received shutdown signal")
	return a.Stop(context.Background())
}
