package agents

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/validator"
)

type agentRequest struct {
	Name         string `json:"name" validate:"required,max=120"`
	Model        string `json:"model" validate:"max=120"`
	SystemPrompt string `json:"systemPrompt" validate:"max=8000"`
	IsActive     *bool  `json:"isActive"`
}

type Handler struct {
	repo     *Repo
	validate *validator.Validator
}

func NewHandler(repo *Repo, validate *validator.Validator) *Handler {
	return &Handler{repo: repo, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	agents, err := h.repo.List(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"agents": agents})
}

func (h *Handler) Create(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	agent, err := h.repo.Create(c.Request.Context(), workspaceID,
		strings.TrimSpace(req.Name), req.Model, req.SystemPrompt)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"agent": agent})
}

func (h *Handler) Get(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid agent id"))
		return
	}

	agent, err := h.repo.GetByID(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"agent": agent})
}

func (h *Handler) Update(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid agent id"))
		return
	}

	var req agentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	agent, err := h.repo.Update(c.Request.Context(), workspaceID, id,
		strings.TrimSpace(req.Name), req.Model, req.SystemPrompt, isActive)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"agent": agent})
}

func (h *Handler) Delete(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid agent id"))
		return
	}

	if err := h.repo.Delete(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}
