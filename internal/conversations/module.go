// Package conversations provides the conversation inbox bounded context:
// listing, assignment with audit, the accept flow, and messaging.
package conversations

import (
	"zapdesk_backend/internal/conversations/handler"
	"zapdesk_backend/internal/conversations/repository"
	"zapdesk_backend/internal/conversations/service"
	"zapdesk_backend/internal/events"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the conversations bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the conversations module.
func NewModule(pool *pgxpool.Pool, members service.MembershipChecker, sender service.MessageSender, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, members, sender, bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "conversations" }

// Service exposes the conversation service for modules that ingest messages.
func (m *Module) Service() *service.Service { return m.service }

// BindMediaSigner enables presigned download URLs on message listings.
func (m *Module) BindMediaSigner(media handler.MediaSigner) {
	m.handler.BindMediaSigner(media)
}

// RegisterRoutes mounts conversation routes on the protected group and
// maintenance routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/conversations"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

var _ apphttp.Module = (*Module)(nil)
