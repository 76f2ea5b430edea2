// Package auth provides the authentication bounded context module.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"zapdesk_backend/internal/auth/handler"
	"zapdesk_backend/internal/auth/repository"
	"zapdesk_backend/internal/auth/service"
	apphttp "zapdesk_backend/internal/http"
	"zapdesk_backend/platform/config"
	"zapdesk_backend/platform/logger"
	"zapdesk_backend/platform/validator"
)

// Module is the auth bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the auth module. Membership resolution is delegated to the
// workspaces module so workspace-scoped tokens carry the membership role.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, members service.MembershipResolver, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, members, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "auth" }

// Service exposes the auth service.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts public auth routes behind the stricter auth rate
// limiter and session routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.POST("/auth/workspace", m.handler.SwitchWorkspace)
	ctx.Protected.GET("/me", m.handler.Me)
	ctx.Protected.POST("/me/password", m.handler.ChangePassword)
}

var _ apphttp.Module = (*Module)(nil)
