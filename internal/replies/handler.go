package replies

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cam_backend/platform/httpkit"
)

// Handler exposes the manual mailbox sync trigger.
type Handler struct {
	ingestor *Ingestor
}

// NewHandler creates the replies handler. ingestor may be nil when reply
// ingestion is disabled; the trigger then reports 503.
func NewHandler(ingestor *Ingestor) *Handler {
	return &Handler{ingestor: ingestor}
}

// TriggerIngest runs one mailbox sync immediately instead of waiting for
// the background interval.
// POST /api/v1/replies/ingest
func (h *Handler) TriggerIngest(c *gin.Context) {
	if h.ingestor == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "reply ingestion is not configured", nil)
		return
	}

	report, err := h.ingestor.Ingest(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}
