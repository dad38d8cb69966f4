package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/auth"
	"fintrack/internal/config"
	"fintrack/internal/events"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/store"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/sqlite"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	// Choose data backend (default: memory).
	var (
		backend store.Backend
		hub     *store.Hub
	)
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite backend",
				log.FieldError, err.Error(), "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer repo.Close()
		backend, hub = repo, repo.Hub()
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		mem := memory.New()
		backend, hub = mem, mem.Hub()
		logger.Info("Initialized memory backend")
	}

	// Change events are optional; without AMQP the instance runs standalone.
	var (
		eventsClient *events.Client
		publisher    services.ChangePublisher
	)
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize events client, continuing standalone",
				log.FieldError, err.Error())
		} else {
			eventsClient = client
			publisher = client
			defer client.Close()
			logger.Info("Events client initialized",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - change events will not be published")
	}

	authSvc := auth.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL, auth.NewSessionProvider(), auth.SecretMatchVerifier{})

	srv := apphttp.NewServer(":"+cfg.Port, authSvc, backend, publisher, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Consume change events from other instances: drop the affected user's
	// cached summaries and push a fresh snapshot to their subscribers.
	if eventsClient != nil {
		go func() {
			err := eventsClient.ConsumeChanges(ctx, func(ev *events.ChangeEvent) error {
				srv.InvalidateUser(ev.UserID)
				snapshot, err := backend.ListByUser(ctx, ev.UserID)
				if err != nil {
					return err
				}
				hub.Publish(ev.UserID, snapshot)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				logger.Error("Change event consumer stopped", log.FieldError, err.Error())
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
