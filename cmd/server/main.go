package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/cashjet-be/internal/config"
	"github.com/hongminglow/cashjet-be/internal/events"
	"github.com/hongminglow/cashjet-be/internal/ratelimit"
	"github.com/hongminglow/cashjet-be/internal/server"
	"github.com/hongminglow/cashjet-be/internal/storage/backend"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	defer syncLogger(logger)

	loadLocalEnv()

	cfg, err := config.Load(".")
	if err != nil {
		zap.L().Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg)
	if err != nil {
		zap.L().Fatal("init database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	defer store.Close()

	publisher := events.Open(cfg.RabbitMQURL, cfg.EventExchange)
	defer publisher.Close()

	limiter, closeLimiter := ratelimit.Open(ctx, cfg.RedisURL, cfg.RedisRateLimitPrefix, cfg.RequestRateLimitPerMinute)
	defer closeLimiter()

	srv := server.New(cfg, store, publisher, limiter)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zap.L().Info("cashjet backend listening", zap.String("addr", cfg.HTTPAddress()))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		zap.L().Info("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.L().Error("server stopped with error", zap.Error(err))
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("no .env file found; relying on existing environment")
	}
}

// syncLogger flushes buffered entries; stderr on a terminal rejects fsync.
func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil && !errors.Is(err, syscall.ENOTTY) && !errors.Is(err, syscall.EINVAL) {
		if !strings.Contains(err.Error(), "inappropriate ioctl") {
			_, _ = os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}
}
