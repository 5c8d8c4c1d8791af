package recalc

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buildledger/internal/pkg/response"
)

// Handler exposes the outbox to operators. It is mounted behind the internal token.
type Handler struct {
	worker *Worker
}

func NewHandler(worker *Worker) *Handler {
	return &Handler{worker: worker}
}

func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	outbox := rg.Group("/outbox")
	{
		outbox.GET("", h.Pending)
		outbox.POST("/drain", h.Drain)
	}
}

func (h *Handler) Pending(c *gin.Context) {
	n, err := h.worker.Pending(c.Request.Context())
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pending": n, "mode": h.worker.cascade.Mode()})
}

func (h *Handler) Drain(c *gin.Context) {
	stats, err := h.worker.DrainOnce(c.Request.Context())
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
