package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"zapdesk_backend/internal/providers/repository"
	"zapdesk_backend/internal/providers/service"
	"zapdesk_backend/internal/providers/transport"
	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
	"zapdesk_backend/platform/validator"
)

type Handler struct {
	svc      *service.Service
	monitor  *service.Monitor
	validate *validator.Validator
}

func New(svc *service.Service, monitor *service.Monitor, validate *validator.Validator) *Handler {
	return &Handler{svc: svc, monitor: monitor, validate: validate}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/provider-logs", h.ListLogs)
	rg.GET("/provider-alerts", h.ListAlerts)
	rg.GET("/provider-alerts/config", h.ListAlertConfigs)
}

// RegisterAdminRoutes mounts mutation endpoints behind the admin group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/provider-logs", h.ClearLogs)
	rg.PUT("/provider-alerts/config", h.UpsertAlertConfig)
	rg.DELETE("/provider-alerts/config/:id", h.DeleteAlertConfig)
	rg.POST("/provider-alerts/monitor-run", h.MonitorRun)
}

func (h *Handler) ListLogs(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var q transport.LogsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid query parameters"))
		return
	}
	if err := h.validate.Struct(q); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	logs, err := h.svc.ListLogs(c.Request.Context(), repository.LogFilter{
		WorkspaceID: workspaceID,
		Provider:    q.Provider,
		Result:      q.Result,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"logs": logs})
}

func (h *Handler) ClearLogs(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	deleted, err := h.svc.ClearLogs(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": deleted})
}

func (h *Handler) UpsertAlertConfig(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	var req transport.AlertConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(err.Error()))
		return
	}

	cfg, err := h.svc.UpsertAlertConfig(c.Request.Context(), workspaceID, repository.AlertConfigInput{
		Provider:              req.Provider,
		ErrorThresholdPercent: req.ErrorThresholdPercent,
		TimeWindowMinutes:     req.TimeWindowMinutes,
		NotifyToast:           req.NotifyToast,
		NotifyEmail:           req.NotifyEmail,
		EmailRecipient:        req.EmailRecipient,
		IsActive:              req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"config": cfg})
}

func (h *Handler) ListAlertConfigs(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}

	configs, err := h.svc.ListAlertConfigs(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"configs": configs})
}

func (h *Handler) DeleteAlertConfig(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("invalid config id"))
		return
	}

	if err := h.svc.DeleteAlertConfig(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"deleted": true})
}

func (h *Handler) ListAlerts(c *gin.Context) {
	_, workspaceID, ok := httpkit.MustGetWorkspace(c)
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

	alerts, err := h.svc.ListAlerts(c.Request.Context(), workspaceID, limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"alerts": alerts})
}

func (h *Handler) MonitorRun(c *gin.Context) {
	res, err := h.monitor.Run(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"configs_checked":  res.ConfigsChecked,
		"alerts_triggered": res.AlertsTriggered,
		"alerts":           res.Alerts,
	})
}
