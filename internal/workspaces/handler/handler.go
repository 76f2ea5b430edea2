package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/workspaces/service"
	"zapdesk_backend/internal/workspaces/transport"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/validator"
)

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
}

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.PATCH("/:id/members/:userId", h.UpdateMember)
	rg.GET("/:id/queues", h.ListQueues)
	rg.POST("/:id/queues", h.CreateQueue)
	rg.DELETE("/:id/queues/:queueId", h.DeleteQueue)
}

func (h *Handler) Create(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	var req transport.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	workspace, err := h.svc.Create(c.Request.Context(), ident.UserID(), req.Name, req.Slug)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"workspace": workspace})
}

func (h *Handler) ListMine(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}

	workspaces, err := h.svc.ListForUser(c.Request.Context(), ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"workspaces": workspaces})
}

func (h *Handler) Get(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}

	workspace, err := h.svc.Get(c.Request.Context(), workspaceID, ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"workspace": workspace})
}

func (h *Handler) ListMembers(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}

	members, err := h.svc.ListMembers(c.Request.Context(), workspaceID, ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"members": members})
}

func (h *Handler) AddMember(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}

	var req transport.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	member, err := h.svc.AddMember(c.Request.Context(), workspaceID, ident.UserID(), req.UserID, req.Role)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"member": member})
}

func (h *Handler) UpdateMember(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}
	userID, ok := parseIDParam(c, "userId", "invalid user id")
	if !ok {
		return
	}

	var req transport.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	ctx := c.Request.Context()
	if req.IsActive != nil {
		if err := h.svc.SetMemberActive(ctx, workspaceID, ident.UserID(), userID, *req.IsActive); httpkit.HandleError(c, err) {
			return
		}
	}
	if req.Role != "" {
		if err := h.svc.SetMemberRole(ctx, workspaceID, ident.UserID(), userID, req.Role); httpkit.HandleError(c, err) {
			return
		}
	}
	httpkit.OK(c, gin.H{"updated": true})
}

func (h *Handler) ListQueues(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}

	queues, err := h.svc.ListQueues(c.Request.Context(), workspaceID, ident.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"queues": queues})
}

func (h *Handler) CreateQueue(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}

	var req transport.CreateQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	queue, err := h.svc.CreateQueue(c.Request.Context(), workspaceID, ident.UserID(), req.Name, req.Color)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"queue": queue})
}

func (h *Handler) DeleteQueue(c *gin.Context) {
	ident := httpkit.MustGetIdentity(c)
	if ident == nil {
		return
	}
	workspaceID, ok := parseIDParam(c, "id", "invalid workspace id")
	if !ok {
		return
	}
	queueID, ok := parseIDParam(c, "queueId", "invalid queue id")
	if !ok {
		return
	}

	if err := h.svc.DeleteQueue(c.Request.Context(), workspaceID, ident.UserID(), queueID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func parseIDParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(message))
		return uuid.Nil, false
	}
	return id, true
}
