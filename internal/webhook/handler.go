package webhook

import (
	"io"

	"github.com/gin-gonic/gin"

	"zapdesk_backend/platform/apperr"
	"zapdesk_backend/platform/httpkit"
)

// maxPayloadBytes bounds webhook bodies; inline media is capped separately
// by the media store.
const maxPayloadBytes = 16 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// HandleInbound accepts one provider webhook delivery.
func (h *Handler) HandleInbound(c *gin.Context) {
	provider := c.Param("provider")
	instanceID := c.Param("instance")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest("unreadable request body"))
		return
	}

	if err := h.svc.Ingest(c.Request.Context(), provider, instanceID, payload); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{})
}
