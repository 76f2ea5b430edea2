package agents

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/platform/validator"
)

// Module is the agents bounded context implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the agents module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	return &Module{handler: NewHandler(NewRepo(pool), val)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "agents" }

// RegisterRoutes mounts agent routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/agents"))
}

var _ apphttp.Module = (*Module)(nil)
