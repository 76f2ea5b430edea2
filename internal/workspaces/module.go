// Package workspaces provides the tenant bounded context: workspaces,
// membership and routing queues.
package workspaces

import (
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/internal/workspaces/handler"
	"zapdesk_backend/internal/workspaces/repository"
	"zapdesk_backend/internal/workspaces/service"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the workspaces bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the workspaces module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "workspaces" }

// Service exposes membership checks for other modules.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts workspace routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/workspaces"))
}

var _ apphttp.Module = (*Module)(nil)
