package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/contacts/repository"
	"zapdesk_backend/internal/contacts/service"
	"zapdesk_backend/internal/contacts/transport"
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
	rg.POST("/:id/tags/:tagId", h.AttachTag)
	rg.DELETE("/:id/tags/:tagId", h.DetachTag)
}

// RegisterTagRoutes mounts the tag taxonomy routes.
func (h *Handler) RegisterTagRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListTags)
	rg.POST("", h.CreateTag)
	rg.DELETE("/:tagId", h.DeleteTag)
}

func (h *Handler) List(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var query transport.ListContactsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}

	contacts, err := h.svc.List(c.Request.Context(), workspaceID, repository.ListFilter{
		Search: query.Search,
		TagID:  query.TagID,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contacts": contacts})
}

func (h *Handler) Create(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	contact, err := h.svc.Create(c.Request.Context(), workspaceID, req.Name, req.Phone, req.AvatarURL)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"contact": contact})
}

func (h *Handler) Get(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid contact id"))
		return
	}

	contact, err := h.svc.Get(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contact": contact})
}

func (h *Handler) Update(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid contact id"))
		return
	}

	var req transport.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	contact, err := h.svc.Update(c.Request.Context(), workspaceID, id, req.Name, req.AvatarURL)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"contact": contact})
}

func (h *Handler) Delete(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid contact id"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}

func (h *Handler) AttachTag(c *gin.Context) {
	h.linkTag(c, h.svc.AttachTag)
}

func (h *Handler) DetachTag(c *gin.Context) {
	h.linkTag(c, h.svc.DetachTag)
}

func (h *Handler) linkTag(c *gin.Context, op func(ctx context.Context, workspaceID, contactID, tagID uuid.UUID) error) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid contact id"))
		return
	}
	tagID, err := uuid.Parse(c.Param("tagId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid tag id"))
		return
	}

	if err := op(c.Request.Context(), workspaceID, contactID, tagID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}

func (h *Handler) ListTags(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	tags, err := h.svc.ListTags(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"tags": tags})
}

func (h *Handler) CreateTag(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.CreateTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	tag, err := h.svc.CreateTag(c.Request.Context(), workspaceID, req.Name, req.Color)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"tag": tag})
}

func (h *Handler) DeleteTag(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	tagID, err := uuid.Parse(c.Param("tagId"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid tag id"))
		return
	}

	if err := h.svc.DeleteTag(c.Request.Context(), workspaceID, tagID); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}
