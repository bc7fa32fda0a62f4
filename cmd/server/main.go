package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticket-vault/internal/bootstrap"
	"github.com/iliyamo/event-ticket-vault/internal/config"
	"github.com/iliyamo/event-ticket-vault/internal/handler"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/middleware"
	"github.com/iliyamo/event-ticket-vault/internal/queue"
	"github.com/iliyamo/event-ticket-vault/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()
	cfg, err := config.Load() // Load environment config
	if err != nil {
		logger.Fatalf(ctx, "config: %v", err)
	}
	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	if cfg.JWTSecret == "" {
		logger.Warnf(ctx, "JWT_SECRET is empty; every /v1/events request will be rejected (env=%s)", cfg.Env)
	}

	startupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := bootstrap.OpenStore(startupCtx, cfg)
	cancel()
	if err != nil {
		logger.Fatalf(ctx, "store: %v", err)
	}
	defer store.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warnf(ctx, "redis unavailable; using in-process event locks and no rate limiting")
	} else {
		defer rdb.Close()
	}

	pub := queue.NewPublisher(cfg.RabbitURL, cfg.LifecycleQueue)
	defer pub.Close()

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pub != nil {
		go func() {
			if err := queue.StartAuditConsumer(stopCtx, cfg.RabbitURL, cfg.LifecycleQueue, cfg.AuditLogPath); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf(ctx, "audit consumer stopped: %v", err)
			}
		}()
	} else {
		logger.Infof(ctx, "RABBITMQ_URL not set; lifecycle messages disabled")
	}

	svc := bootstrap.NewService(cfg, store, rdb, pub)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestLogger())
	router.RegisterRoutes(e, store.Ping)
	router.RegisterEvents(e, handler.NewEventHandler(svc), cfg.JWTSecret, middleware.NewTokenBucket(cfg.RateLimit, rdb))

	addr := ":" + cfg.Port
	logger.Infof(ctx, "listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)

	srvErr := make(chan error, 1)
	go func() { srvErr <- e.Start(addr) }()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf(ctx, "server error: %v", err)
		}
	case <-stopCtx.Done():
		logger.Infof(ctx, "shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf(ctx, "server shutdown error: %v", err)
	}
	logger.Infof(ctx, "server stopped")
}
