package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hhios1618-pixel/registroventas/internal"
	"github.com/hhios1618-pixel/registroventas/internal/backend"
	"github.com/hhios1618-pixel/registroventas/internal/catalog"
	"github.com/hhios1618-pixel/registroventas/internal/geocode"
	"github.com/hhios1618-pixel/registroventas/internal/handler"
	"github.com/hhios1618-pixel/registroventas/internal/identity"
	"github.com/hhios1618-pixel/registroventas/internal/interpret"
	"github.com/hhios1618-pixel/registroventas/internal/middleware"
	"github.com/hhios1618-pixel/registroventas/internal/router"
	"github.com/hhios1618-pixel/registroventas/internal/routes"
	"github.com/hhios1618-pixel/registroventas/internal/service"
	"github.com/hhios1618-pixel/registroventas/internal/storage"
	"github.com/hhios1618-pixel/registroventas/internal/telemetry"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg)

	// Initialize collaborator clients
	interpreter := interpret.NewHTTPInterpreter(cfg.Collaborators.InterpreterURL)
	searcher := catalog.NewHTTPSearcher(cfg.Collaborators.CatalogURL)
	geocoder := geocode.NewHTTPGeocoder(cfg.Collaborators.GeocoderURL)
	resolver := identity.NewHTTPResolver(cfg.Collaborators.IdentityURL)
	submitter := backend.NewHTTPSubmitter(cfg.Collaborators.BackendURL)

	store, err := storage.NewLocalStore(cfg.Storage.LocalPath, cfg.Storage.LocalURL)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	// Initialize business metrics
	telemetry.Init(cfg.Intake.MetricsNamespace)

	// Initialize the workflow controller
	workflow := service.NewWorkflow(service.WorkflowConfig{
		Logger:         logger,
		Identity:       resolver,
		Interpreter:    interpreter,
		Searcher:       searcher,
		Geocoder:       geocoder,
		Store:          store,
		Submitter:      submitter,
		SearchDebounce: cfg.Intake.SearchDebounce,
	})
	workflowHandler := handler.NewWorkflowHandler(workflow, logger)

	// Initialize middleware
	metrics := middleware.NewMetrics(cfg.Intake.MetricsNamespace)

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		router.CORS(cfg.CORS.AllowedOrigins),
		router.Logger(logger),
	)

	// Uploaded line-item photos
	r.Static(cfg.Storage.LocalURL+"/", cfg.Storage.LocalPath)

	// Metrics endpoint (protect in production via firewall)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterAPIRoutes(r, workflowHandler)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting intake server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
