package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/travya/travya-backend/app/db"
	appLogger "github.com/travya/travya-backend/app/logger"
	"github.com/travya/travya-backend/app/observability/metrics"
	"github.com/travya/travya-backend/app/tracer"
	"github.com/travya/travya-backend/config"
	generativeAI "github.com/travya/travya-backend/internal/api/generative_ai"
	"github.com/travya/travya-backend/internal/api/itinerary"
	api "github.com/travya/travya-backend/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := setupLogger()
	slog.SetDefault(logger)

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Database Setup (optional: the parser runs without persistence) ---
	var repo itinerary.Repository
	if cfg.Repositories.Postgres.Host != "" {
		dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
		if err != nil {
			logger.Error("Failed to generate database config", slog.Any("error", err))
			os.Exit(1)
		}

		// Run migrations *before* initializing the main pool
		if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			logger.Error("Failed to run database migrations", slog.Any("error", err))
			os.Exit(1)
		}

		pool, err := database.Init(dbConfig.ConnectionURL, logger)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		if !database.WaitForDB(ctx, pool, logger) {
			logger.Error("Database not ready after waiting, exiting.")
			os.Exit(1)
		}

		repo = itinerary.NewRepositoryImpl(pool, logger)
	} else {
		logger.Warn("Postgres host not configured, running without trip persistence")
	}

	// --- Dependency Injection ---
	var aiClient itinerary.AIClient
	client, err := generativeAI.NewAIClient(cfg.LLM.Model, cfg.LLM.Temperature, logger)
	if err != nil {
		logger.Warn("AI client unavailable, LLM extraction fallback disabled", slog.Any("error", err))
	} else {
		aiClient = client
	}

	extractor := itinerary.NewPlaceExtractor(aiClient,
		cfg.Parser.MaxPlaces, cfg.Parser.ChunkingMinChars, cfg.Parser.MaxPromptChars, logger)
	enricher := itinerary.NewGeoEnricher(itinerary.GeoEnricherConfig{
		NominatimURL:      cfg.Geocoding.NominatimURL,
		ElevationURL:      cfg.Geocoding.ElevationURL,
		Region:            cfg.Geocoding.Region,
		RequestsPerSecond: cfg.Geocoding.RequestsPerSecond,
		MaxConcurrent:     cfg.Geocoding.MaxConcurrent,
		RequestTimeout:    cfg.Geocoding.RequestTimeout,
		CacheTTL:          cfg.Geocoding.CacheTTL,
	}, logger)
	assembler := itinerary.NewMapAssembler(enricher, cfg.Parser.MaxChunkDays, logger)
	itineraryService := itinerary.NewServiceImpl(extractor, assembler, repo, logger)
	itineraryHandler := itinerary.NewHandler(itineraryService, logger)

	// --- Router Setup ---
	mainRouter := api.SetupRouter(&api.Config{
		ItineraryHandler: itineraryHandler,
	})

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		slog.InfoContext(r.Context(), "Root endpoint hit")
		w.Write([]byte("Welcome to Travya API"))
	})

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 120 * time.Second, // parse requests geocode sequentially under rate limits
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// --- Start Server Goroutine ---
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" { // Default to development if not set
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
