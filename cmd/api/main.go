package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/lebroads/pothole-map/docs" // This is for Swagger
	"github.com/lebroads/pothole-map/internal/boundary"
	"github.com/lebroads/pothole-map/internal/cache"
	"github.com/lebroads/pothole-map/internal/config"
	"github.com/lebroads/pothole-map/internal/database"
	"github.com/lebroads/pothole-map/internal/events"
	"github.com/lebroads/pothole-map/internal/handlers"
	"github.com/lebroads/pothole-map/internal/identity"
	"github.com/lebroads/pothole-map/internal/logger"
	"github.com/lebroads/pothole-map/internal/middleware"
	"github.com/lebroads/pothole-map/internal/realtime"
	"github.com/lebroads/pothole-map/internal/repository"
	"github.com/lebroads/pothole-map/internal/service"
	"github.com/lebroads/pothole-map/migrations"
)

// @title Pothole Map API
// @version 1.0
// @description Crowd-sourced pothole reports inside a country boundary, with anonymous per-device voting

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the most recent migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	migrator := database.NewMigrationExecutor(db.DB)
	if *migrateDown {
		if err := migrator.RollbackLast(migrations.FS); err != nil {
			slog.Error("Failed to roll back migration", "error", err)
			os.Exit(1)
		}
		slog.Info("Rolled back last migration")
		return
	}
	if cfg.Database.AutoMigrate {
		if err := migrator.RunMigrations(migrations.FS); err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("Database migrations completed")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize repositories
	reportRepo := repository.NewReportRepository(db.DB)
	voteRepo := repository.NewVoteRepository(db.DB)

	// Core components
	source, err := newBoundarySource(ctx, cfg)
	if err != nil {
		slog.Error("Invalid boundary source", "error", err)
		os.Exit(1)
	}
	boundarySvc := boundary.NewService(source)
	bus := events.NewBus(cfg.Realtime.EventBuffer)
	reportCache := cache.New(boundarySvc, bus)
	identityStore := identity.NewStore(identity.NewFileBackend(cfg.Identity.StorePath))

	draftSession := service.NewDraftSession(boundarySvc, reportRepo, reportCache, bus)
	voteService := service.NewVoteService(voteRepo, reportRepo, reportCache, bus)

	reload := func(ctx context.Context) {
		reloadReports(ctx, boundarySvc, reportRepo, reportCache)
	}

	// The bulk load filters by the boundary, so it waits for the polygon
	go func() {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Boundary.LoadTimeout)
		defer cancel()
		if err := boundarySvc.Load(loadCtx); err != nil {
			slog.Error("Boundary unavailable, placement is disabled", "error", err)
			return
		}
		reload(ctx)
	}()

	// External vote updates
	var realtimeStatus handlers.RealtimeStatus
	switch cfg.Realtime.Driver {
	case config.RealtimePostgres:
		listener := realtime.NewPGListener(db.DSN(), realtime.PGConfig{
			Channel:      cfg.Realtime.PGChannel,
			MinReconnect: cfg.Realtime.MinReconnect,
			MaxReconnect: cfg.Realtime.MaxReconnect,
		}, voteService.HandleExternalChange)
		listener.OnReconnect = reload
		go func() {
			if err := listener.Run(ctx); err != nil {
				slog.Error("Vote change listener stopped", "error", err)
			}
		}()
	case config.RealtimeNATS:
		natsClient, err := realtime.NewNATSClient(realtime.NATSConfig{
			URL:            cfg.Realtime.NATSURL,
			Name:           cfg.Realtime.NATSName,
			Subject:        cfg.Realtime.NATSSubject,
			ReconnectWait:  cfg.Realtime.NATSReconnectWait,
			MaxReconnects:  cfg.Realtime.NATSMaxReconnect,
			ConnectTimeout: 5 * time.Second,
		})
		if err != nil {
			slog.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				slog.Error("Failed to close NATS connection", "error", err)
			}
		}()
		voteService.SetNotifier(natsClient)
		realtimeStatus = natsClient
		if err := natsClient.Subscribe(ctx, voteService.HandleExternalChange); err != nil {
			slog.Error("Failed to subscribe to vote changes", "error", err)
			os.Exit(1)
		}
	default:
		slog.Info("External vote updates disabled")
	}

	hub := realtime.NewHub(bus, reportCache, cfg.CORS.AllowedOrigins)
	go hub.Run(ctx)

	// Initialize handlers
	reportHandler := handlers.NewReportHandler(reportCache, reportRepo)
	draftHandler := handlers.NewDraftHandler(draftSession, identityStore)
	voteHandler := handlers.NewVoteHandler(voteService, voteRepo, identityStore)
	boundaryHandler := handlers.NewBoundaryHandler(boundarySvc)
	identityHandler := handlers.NewIdentityHandler(identityStore)
	healthHandler := handlers.NewHealthHandler(db, boundarySvc, cfg.App.Version)
	if realtimeStatus != nil {
		healthHandler.SetRealtime(realtimeStatus)
	}

	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(ctx, &cfg.RateLimit)

	// Setup routes
	mux := http.NewServeMux()

	// Reports and votes
	mux.HandleFunc("GET /api/v1/reports", reportHandler.ListReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", reportHandler.GetReport)
	mux.HandleFunc("POST /api/v1/reports/{id}/votes", voteHandler.CastVote)
	mux.HandleFunc("GET /api/v1/reports/{id}/votes/controls", voteHandler.GetVoteControls)

	// Draft session
	mux.HandleFunc("GET /api/v1/draft", draftHandler.GetDraft)
	mux.HandleFunc("PATCH /api/v1/draft", draftHandler.Update)
	mux.HandleFunc("POST /api/v1/draft/arm", draftHandler.Arm)
	mux.HandleFunc("POST /api/v1/draft/place", draftHandler.Place)
	mux.HandleFunc("POST /api/v1/draft/save", draftHandler.Save)
	mux.HandleFunc("POST /api/v1/draft/cancel", draftHandler.Cancel)

	// Boundary and device identity
	mux.HandleFunc("GET /api/v1/boundary", boundaryHandler.GetBoundary)
	mux.HandleFunc("GET /api/v1/boundary/contains", boundaryHandler.Contains)
	mux.HandleFunc("GET /api/v1/identity", identityHandler.GetIdentity)
	mux.HandleFunc("POST /api/v1/identity/safety-notice", identityHandler.AcknowledgeSafetyNotice)

	// Live updates for the map view
	mux.Handle("GET /ws", hub)

	// Health check endpoint
	mux.HandleFunc("GET /health", healthHandler.Health)

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(cfg.IsProduction())(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// stops the listener, the hub and the rate limiter janitor
	stop()

	shutdownCtx, cancel := getContext(30 * time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
