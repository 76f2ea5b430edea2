package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/pipelines/repository"
	"zapdesk_backend/internal/pipelines/service"
	"zapdesk_backend/internal/pipelines/transport"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/validator"
)

// ContactResolver supplies the contact snapshot used for card titles.
type ContactResolver interface {
	ResolveNamePhone(ctx context.Context, workspaceID, contactID uuid.UUID) (name, phone string, err error)
}

type Handler struct {
	svc      *service.Service
	contacts ContactResolver
	validate *validator.Validator
}

func New(svc *service.Service, contacts ContactResolver, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, contacts: contacts, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.CreatePipeline)
	rg.GET("", h.ListPipelines)
	rg.GET("/:id", h.GetPipeline)
	rg.DELETE("/:id", h.DeletePipeline)
	rg.GET("/:id/cards", h.ListCards)
}

// RegisterCardRoutes mounts the card endpoints under /pipeline-cards.
func (h *Handler) RegisterCardRoutes(rg *gin.RouterGroup) {
	rg.POST("/smart", h.SmartCard)
	rg.GET("/:id", h.GetCard)
	rg.PUT("/:id", h.UpdateCard)
	rg.PATCH("/:id/column", h.MoveCard)
	rg.PATCH("/:id/status", h.SetCardStatus)
	rg.DELETE("/:id", h.DeleteCard)
}

func (h *Handler) CreatePipeline(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.CreatePipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	pipeline, err := h.svc.CreatePipeline(c.Request.Context(), workspaceID, req.Name, req.Columns)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"pipeline": pipeline})
}

func (h *Handler) ListPipelines(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	pipelines, err := h.svc.ListPipelines(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"pipelines": pipelines})
}

func (h *Handler) GetPipeline(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid pipeline id")
	if !ok {
		return
	}

	pipeline, err := h.svc.GetPipeline(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"pipeline": pipeline})
}

func (h *Handler) DeletePipeline(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid pipeline id")
	if !ok {
		return
	}

	if err := h.svc.DeletePipeline(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func (h *Handler) ListCards(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid pipeline id")
	if !ok {
		return
	}

	cards, err := h.svc.ListCards(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"cards": cards})
}

func (h *Handler) SmartCard(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.SmartCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	name, phone, err := h.contacts.ResolveNamePhone(c.Request.Context(), workspaceID, req.ContactID)
	if httpkit.HandleError(c, err) {
		return
	}

	res, err := h.svc.CheckAndCreate(c.Request.Context(), service.SmartCardInput{
		WorkspaceID:    workspaceID,
		ContactID:      req.ContactID,
		ConversationID: req.ConversationID,
		PipelineID:     req.PipelineID,
		ContactName:    name,
		ContactPhone:   phone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"action": res.Action, "card": res.Card})
}

func (h *Handler) GetCard(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid card id")
	if !ok {
		return
	}

	card, err := h.svc.GetCard(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"card": card})
}

func (h *Handler) UpdateCard(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid card id")
	if !ok {
		return
	}

	var req transport.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	card, err := h.svc.UpdateCard(c.Request.Context(), workspaceID, id, repository.CardUpdate{
		Title:  req.Title,
		Value:  req.Value,
		Tags:   req.Tags,
		Status: req.Status,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"card": card})
}

func (h *Handler) MoveCard(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid card id")
	if !ok {
		return
	}

	var req transport.MoveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	card, err := h.svc.MoveCard(c.Request.Context(), workspaceID, id, req.ColumnID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"card": card})
}

func (h *Handler) SetCardStatus(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid card id")
	if !ok {
		return
	}

	var req transport.CardStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	card, err := h.svc.SetCardStatus(c.Request.Context(), workspaceID, id, req.Status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"card": card})
}

func (h *Handler) DeleteCard(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "invalid card id")
	if !ok {
		return
	}

	if err := h.svc.DeleteCard(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func parseIDParam(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(message))
		return uuid.Nil, false
	}
	return id, true
}
