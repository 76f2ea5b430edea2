package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"zapdesk_backend/internal/connections"
	"zapdesk_backend/internal/notification/email"
	"zapdesk_backend/internal/providers"
	providerservice "zapdesk_backend/internal/providers/service"
	"zapdesk_backend/internal/scheduler"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/db"
	"zapdesk_backend/platform/events"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	var redisClient *redis.Client
	if cfg.GetRedisURL() != "" {
		if opt, err := redis.ParseURL(cfg.GetRedisURL()); err == nil {
			redisClient = redis.NewClient(opt)
			defer func() { _ = redisClient.Close() }()
		} else {
			log.Error("invalid REDIS_URL", "error", err)
		}
	}

	var alertMailer providerservice.AlertMailer
	if sender := email.NewSMTPSender(cfg); sender != nil {
		alertMailer = sender
	}

	val := validator.New()

	// The worker only drives the health monitor, but it reuses the module
	// wiring so the sweep behaves exactly like the HTTP-triggered one.
	connectionsModule := connections.NewModule(pool, val, log)
	providersModule := providers.NewModule(pool, connectionsModule.Service(), redisClient, alertMailer, eventBus, cfg, val, log)

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	go client.RunPeriodicMonitor(ctx, cfg.GetMonitorInterval())

	worker, err := scheduler.NewWorker(cfg, providersModule.Monitor(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
