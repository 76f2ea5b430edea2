package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/connections/service"
	"zapdesk_backend/internal/connections/transport"
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
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
	rg.GET("/:id/qr", h.Pair)
	rg.POST("/:id/status/refresh", h.RefreshStatus)
}

func (h *Handler) List(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	connections, err := h.svc.List(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"connections": connections})
}

func (h *Handler) Create(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	connection, err := h.svc.Create(c.Request.Context(), workspaceID, req.Name, req.Provider, req.InstanceID, req.DefaultQueueID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"connection": connection})
}

func (h *Handler) Get(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid connection id"))
		return
	}

	connection, err := h.svc.Get(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"connection": connection})
}

func (h *Handler) Update(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid connection id"))
		return
	}

	var req transport.UpdateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	connection, err := h.svc.Update(c.Request.Context(), workspaceID, id, req.Name, req.DefaultQueueID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"connection": connection})
}

func (h *Handler) Delete(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid connection id"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}

func (h *Handler) Pair(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid connection id"))
		return
	}

	result, err := h.svc.Pair(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"pairing": result})
}

func (h *Handler) RefreshStatus(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid connection id"))
		return
	}

	connection, err := h.svc.RefreshStatus(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"connection": connection})
}
