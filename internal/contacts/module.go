// Package contacts provides the contact book bounded context: contacts,
// tags and the phone-keyed upsert used by inbound ingest.
package contacts

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/internal/contacts/handler"
	"zapdesk_backend/internal/contacts/repository"
	"zapdesk_backend/internal/contacts/service"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

// Module is the contacts bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the contacts module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "contacts" }

// Service exposes contact lookups for other modules.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts contact and tag routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/contacts"))
	m.handler.RegisterTagRoutes(ctx.Protected.Group("/contact-tags"))
}

var _ apphttp.Module = (*Module)(nil)
