// Package providers provides the WhatsApp gateway bounded context: adapter
// routing, call logging, alert rules and the health monitor.
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"zapdesk_backend/internal/events"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/providers/adapters"
	"zapdesk_backend/internal/providers/handler"
	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/internal/providers/service"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

// Module is the providers bounded context implementing http.Module.
type Module struct {
	handler    *handler.Handler
	dispatcher *service.Dispatcher
	monitor    *service.Monitor
	recorder   *service.LogRecorder
}

// NewModule wires the providers module. redisClient may be nil; the monitor
// then relies on the database cool-down fallback. mailer may be nil when
// email is disabled.
func NewModule(
	pool *pgxpool.Pool,
	connections service.ConnectionResolver,
	redisClient *redis.Client,
	mailer service.AlertMailer,
	bus events.Bus,
	cfg *config.Config,
	val *validator.Validator,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	recorder := service.NewLogRecorder(repo, log)

	// Append only non-nil concrete adapters: wrapping a nil pointer in the
	// Client interface would register an adapter that panics on first use.
	var clients []adapters.Client
	if ev := adapters.NewEvolution(cfg, recorder, log); ev != nil {
		clients = append(clients, ev)
	}
	if z := adapters.NewZAPI(cfg, recorder, log); z != nil {
		clients = append(clients, z)
	}
	dispatcher := service.NewDispatcher(connections, clients...)

	var cooldown service.Cooldown = unavailableCooldown{}
	if redisClient != nil {
		cooldown = service.NewRedisCooldown(redisClient)
	}
	monitor := service.NewMonitor(repo, cooldown, mailer, bus, log)

	svc := service.New(repo, log)
	return &Module{
		handler:    handler.New(svc, monitor, val),
		dispatcher: dispatcher,
		monitor:    monitor,
		recorder:   recorder,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "providers" }

// Dispatcher exposes outbound routing for the conversations and
// connections modules.
func (m *Module) Dispatcher() *service.Dispatcher { return m.dispatcher }

// Monitor exposes the health sweep for the worker.
func (m *Module) Monitor() *service.Monitor { return m.monitor }

// Recorder exposes the provider log recorder for the webhook ingest path.
func (m *Module) Recorder() *service.LogRecorder { return m.recorder }

// RegisterRoutes mounts read endpoints on the protected group and mutation
// endpoints on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)

// unavailableCooldown always errors so the monitor takes the database
// fallback path when no Redis client is configured.
type unavailableCooldown struct{}

func (unavailableCooldown) Acquire(context.Context, uuid.UUID, time.Duration) (bool, error) {
	return false, errors.New("cooldown store not configured")
}
