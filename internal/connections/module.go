// Package connections provides the WhatsApp gateway connection bounded
// context: provider binding, QR pairing and session status.
package connections

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/internal/connections/handler"
	"zapdesk_backend/internal/connections/repository"
	"zapdesk_backend/internal/connections/service"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

// Module is the connections bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the connections module. The provider gateway is bound
// afterwards via Service().BindGateway since the dispatcher resolves
// connections through this same service.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "connections" }

// Service exposes connection resolution for the providers dispatcher and
// webhook ingest.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts connection routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/connections"))
}

var _ apphttp.Module = (*Module)(nil)
