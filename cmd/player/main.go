package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/handler"
	"github.com/stemsi/exstem-player/internal/logger"
	"github.com/stemsi/exstem-player/internal/middleware"
	"github.com/stemsi/exstem-player/internal/monitoring"
	"github.com/stemsi/exstem-player/internal/router"
	"github.com/stemsi/exstem-player/internal/security"
	"github.com/stemsi/exstem-player/internal/service"
	"github.com/stemsi/exstem-player/internal/storage"
	"github.com/stemsi/exstem-player/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("backend", cfg.APIBaseURL).
		Str("storage", cfg.StorageDriver).
		Msg("Starting ExStem Player")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	monitoring.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Snapshot Storage ─────────────────────────────────────────
	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot storage")
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("Snapshot storage close error")
		}
	}()

	// ─── Backend Client ────────────────────────────────────────────────
	api := apiclient.New(apiclient.Options{
		BaseURL:        cfg.APIBaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		MaxUploadBytes: cfg.MaxUploadBytes,
		Log:            log,
	})

	// The locator is nil when neither a service nor a fixed position is set.
	locator, err := security.NewLocator(cfg.GeolocationURL, cfg.GeolocationStatic, cfg.HTTPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid GEOLOCATION_STATIC")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	sessionService := service.NewSessionService(workerCtx, api, store, cfg.AutosaveDebounce, log)
	securityService := service.NewSecurityService(api, locator, log)
	uploadService := service.NewUploadService(api, cfg.MaxUploadBytes)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session:  handler.NewSessionHandler(sessionService),
		Security: handler.NewSecurityHandler(securityService),
		Upload:   handler.NewUploadHandler(uploadService),
		WS:       handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Rate Limiter ──────────────────────────────────────────────────
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	stopCleanup := make(chan struct{})
	go limiter.StartCleanup(stopCleanup)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, cfg, limiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop tick workers and close live sessions. Snapshots stay on disk
	// so an interrupted quiz resumes on the next start.
	workerCancel()
	close(stopCleanup)
	sessionService.Shutdown()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
