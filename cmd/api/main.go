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

	"zapdesk_backend/internal/adapters/storage"
	"zapdesk_backend/internal/agents"
	"zapdesk_backend/internal/auth"
	"zapdesk_backend/internal/connections"
	"zapdesk_backend/internal/contacts"
	"zapdesk_backend/internal/conversations"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/http/router"
	"zapdesk_backend/internal/notification"
	"zapdesk_backend/internal/notification/email"
	"zapdesk_backend/internal/pipelines"
	"zapdesk_backend/internal/providers"
	providerservice "zapdesk_backend/internal/providers/service"
	"zapdesk_backend/internal/webhook"
	"zapdesk_backend/internal/workspaces"
	"zapdesk_backend/migrations"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// Media storage for inbound attachments (MinIO)
	mediaStore, err := storage.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize media storage", "error", err)
		panic("failed to initialize media storage: " + err.Error())
	}
	if mediaStore != nil {
		if err := withRetry(ctx, log, "ensure media bucket", 5, 2*time.Second, func() error {
			return mediaStore.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure media bucket exists", "error", err)
			panic("failed to ensure media bucket exists: " + err.Error())
		}
		log.Info("media storage initialized", "bucket", cfg.GetMinioBucketMedia())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events and serves the SSE stream
	notificationModule := notification.NewModule(eventBus, log)
	defer notificationModule.SSE().Close()

	var alertMailer providerservice.AlertMailer
	if sender := email.NewSMTPSender(cfg); sender != nil {
		alertMailer = sender
		log.Info("alert email channel enabled", "from", cfg.GetEmailFromAddress())
	}

	workspacesModule := workspaces.NewModule(pool, val, log)
	authModule := auth.NewModule(pool, cfg, workspacesModule.Service(), val, log)
	contactsModule := contacts.NewModule(pool, val, log)
	connectionsModule := connections.NewModule(pool, val, log)
	providersModule := providers.NewModule(pool, connectionsModule.Service(), redisClient, alertMailer, eventBus, cfg, val, log)

	// Break the connections <-> providers cycle: the dispatcher resolves
	// connections, and the pairing flow routes through the dispatcher.
	connectionsModule.Service().BindGateway(providersModule.Dispatcher())

	conversationsModule := conversations.NewModule(pool, workspacesModule.Service(), providersModule.Dispatcher(), eventBus, val, log)
	if mediaStore != nil {
		conversationsModule.BindMediaSigner(mediaStore)
	}
	pipelinesModule := pipelines.NewModule(pool, contactsModule.Service(), eventBus, val, log)
	agentsModule := agents.NewModule(pool, val)

	var webhookMedia webhook.MediaStore
	if mediaStore != nil {
		webhookMedia = mediaStore
	}
	webhookModule := webhook.NewModule(
		connectionsModule.Service(),
		contactsModule.Service(),
		conversationsModule.Service(),
		pipelinesModule.Service(),
		webhookMedia,
		providersModule.Recorder(),
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			workspacesModule,
			contactsModule,
			connectionsModule,
			conversationsModule,
			pipelinesModule,
			providersModule,
			agentsModule,
			webhookModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; alert cool-down falls back to the database")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		return nil
	}

	return redis.NewClient(opt)
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
