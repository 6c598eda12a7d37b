package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finanzas/internal/auth"
	"finanzas/internal/cache"
	"finanzas/internal/config"
	"finanzas/internal/events"
	apphttp "finanzas/internal/http"
	"finanzas/internal/ledger"
	"finanzas/internal/log"
	"finanzas/internal/storage"
)

func main() {
	// .env is for local development; ignore when absent.
	_ = godotenv.Load()

	logger := log.Setup()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Event publishing is optional: without a broker the ledger still
	// works, only the Sheets backup stops receiving writes.
	var publisher ledger.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP event publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	store := ledger.NewStore(repo, cfg.CacheTTL, publisher)

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("Failed to initialize JWT manager", "error", err)
		os.Exit(1)
	}
	authService := auth.NewService(repo, jwtManager)

	srv := apphttp.NewServer(":"+cfg.Port, store, authService)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting finanzas server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		cache.Janitor(ctx, time.Minute, store.Caches()...)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
