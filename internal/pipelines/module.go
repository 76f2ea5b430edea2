// Package pipelines provides the sales funnel bounded context: boards,
// columns, cards and the smart card flow.
package pipelines

import (
	"zapdesk_backend/internal/events"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/pipelines/handler"
	"zapdesk_backend/internal/pipelines/repository"
	"zapdesk_backend/internal/pipelines/service"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipelines bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the pipelines module.
func NewModule(pool *pgxpool.Pool, contacts handler.ContactResolver, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	return &Module{
		handler: handler.New(svc, contacts, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "pipelines" }

// Service exposes the smart card manager for the webhook ingest path.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts pipeline and card routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/pipelines"))
	m.handler.RegisterCardRoutes(ctx.Protected.Group("/pipeline-cards"))
}

var _ apphttp.Module = (*Module)(nil)
