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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/pkg/authclient"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/idempotency"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/metrics"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/mykafka"
	"github.com/Skotchmaster/storefront/services/order/internal/config"
	"github.com/Skotchmaster/storefront/services/order/internal/httpserver"
	"github.com/Skotchmaster/storefront/services/order/internal/publisher"
	"github.com/Skotchmaster/storefront/services/order/internal/repo"
	"github.com/Skotchmaster/storefront/services/order/internal/service"
	"github.com/Skotchmaster/storefront/services/order/migrations"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.ServiceConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.Migrate(cfg.DatabaseURL, migrations.FS, "order_schema_migrations"); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL, cfg.DBPool)
	cancel()
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Warn("db close", "error", err)
		}
	}()

	reg := metrics.NewRegistry()
	serverMetrics := metrics.NewServerMetrics(reg, cfg.ServiceName)
	orderMetrics := metrics.NewOrders(reg, cfg.ServiceName)

	orderRepo := repo.New(gdb)
	orderService := &service.OrderService{
		Repo:    orderRepo,
		Metrics: orderMetrics,
	}
	orderHandler := &httpserver.OrderHTTP{Svc: orderService}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		orderHandler.Idem = idempotency.NewRedisStore(rdb, "order:checkout", cfg.IdempotencyTTL, cfg.IdempotencyLease)
		logger.Info("idempotent checkout enabled", "ttl", cfg.IdempotencyTTL, "lease", cfg.IdempotencyLease)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer := mykafka.NewProducer(cfg.KafkaBrokers, cfg.EventsTopic)
		defer producer.Close()

		relay := &publisher.Relay{
			Outbox:    orderRepo,
			Publisher: producer,
			Interval:  cfg.OutboxInterval,
			Batch:     cfg.OutboxBatch,
			Logger:    logger.With("component", "outbox_relay"),
		}
		go relay.Run(ctx)
		logger.Info("outbox relay started", "topic", cfg.EventsTopic, "interval", cfg.OutboxInterval)
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	var refresher authmw.Refresher
	if cfg.AuthHTTPURL != "" {
		refresher = authclient.NewClient(cfg.AuthHTTPURL)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httpserver.ErrorHandler

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(serverMetrics.Middleware)
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		OrderHandler: orderHandler,
		JWTSecret:    cfg.JWTAccessSecret,
		Refresher:    refresher,
		Ready:        orderRepo.Ping,
		Metrics:      metrics.Handler(reg),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		logger.Info("starting order service", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("echo start: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("echo shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
