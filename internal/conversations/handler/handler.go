package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/conversations/repository"
	"zapdesk_backend/internal/conversations/service"
	"zapdesk_backend/internal/conversations/transport"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/validator"
)

// MediaSigner turns stored media keys into short-lived download URLs.
type MediaSigner interface {
	DownloadURL(ctx context.Context, fileKey string) (string, error)
}

type Handler struct {
	svc      *service.Service
	validate *validator.Validator
	media    MediaSigner
}

func New(svc *service.Service, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, validate: validate}
}

// BindMediaSigner enables presigned download URLs on message listings.
// Without a signer, stored media keys are returned as-is.
func (h *Handler) BindMediaSigner(media MediaSigner) {
	h.media = media
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/assign", h.Assign)
	rg.POST("/:id/accept", h.Accept)
	rg.GET("/:id/history", h.History)
	rg.POST("/:id/close", h.Close)
	rg.POST("/:id/reopen", h.Reopen)
	rg.GET("/:id/messages", h.Messages)
	rg.POST("/:id/messages", h.SendMessage)
}

// RegisterAdminRoutes mounts maintenance endpoints behind the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/conversations", h.ClearAll)
}

func (h *Handler) List(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var q transport.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}
	if err := h.validate.Struct(q); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	params := repository.ListParams{
		WorkspaceID: workspaceID,
		Status:      q.Status,
		Unassigned:  q.Unassigned,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if q.QueueID != "" {
		queueID, err := uuid.Parse(q.QueueID)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid queueId"))
			return
		}
		params.QueueID = &queueID
	}
	if q.AssignedTo != "" {
		userID, err := uuid.Parse(q.AssignedTo)
		if err != nil {
			httpkit.HandleError(c, apperr.BadRequest("invalid assignedTo"))
			return
		}
		params.AssignedUserID = &userID
	}

	conversations, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"conversations": conversations})
}

func (h *Handler) Get(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	conv, err := h.svc.Get(c.Request.Context(), workspaceID, conversationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"conversation": conv})
}

func (h *Handler) Assign(c *gin.Context) {
	ident, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req transport.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	res, err := h.svc.Assign(c.Request.Context(), workspaceID, ident.UserID(), conversationID, req.UserID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"conversation": res.Conversation,
		"action":       res.Action,
		"history":      res.History,
	})
}

func (h *Handler) Accept(c *gin.Context) {
	ident, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req transport.AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}

	res, err := h.svc.Accept(c.Request.Context(), workspaceID, ident.UserID(), conversationID, req.AgentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"conversation":    res.Conversation,
		"alreadyAssigned": res.AlreadyAssigned,
	})
}

func (h *Handler) History(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	history, err := h.svc.History(c.Request.Context(), workspaceID, conversationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"history": history})
}

func (h *Handler) Close(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	conv, err := h.svc.Close(c.Request.Context(), workspaceID, conversationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"conversation": conv})
}

func (h *Handler) Reopen(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	conv, err := h.svc.Reopen(c.Request.Context(), workspaceID, conversationID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"conversation": conv})
}

func (h *Handler) Messages(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			httpkit.HandleError(c, apperr.BadRequest("invalid limit"))
			return
		}
		limit = parsed
	}

	messages, err := h.svc.Messages(c.Request.Context(), workspaceID, conversationID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	h.signMediaURLs(c.Request.Context(), messages)
	httpkit.OK(c, gin.H{"messages": messages})
}

// signMediaURLs swaps stored object keys for presigned download URLs.
// Provider-hosted URLs pass through untouched; signing failures leave the
// raw key in place rather than dropping the message.
func (h *Handler) signMediaURLs(ctx context.Context, messages []repository.Message) {
	if h.media == nil {
		return
	}
	for i := range messages {
		if messages[i].MediaURL == nil || strings.HasPrefix(*messages[i].MediaURL, "http") {
			continue
		}
		signed, err := h.media.DownloadURL(ctx, *messages[i].MediaURL)
		if err != nil {
			continue
		}
		messages[i].MediaURL = &signed
	}
}

func (h *Handler) SendMessage(c *gin.Context) {
	ident, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	conversationID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req transport.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), workspaceID, ident.UserID(), conversationID, req.Body)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, gin.H{"message": msg})
}

func (h *Handler) ClearAll(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	deleted, err := h.svc.ClearAll(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": deleted})
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid conversation id"))
		return uuid.Nil, false
	}
	return id, true
}
