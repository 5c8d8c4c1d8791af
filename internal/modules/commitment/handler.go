package commitment

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buildledger/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/projects/:id/contracts", h.ListContracts)
	rg.POST("/projects/:id/reconcile", h.Reconcile)
	rg.GET("/projects/:id/reconciliation-reports", h.Reports)

	contracts := rg.Group("/contracts/:id")
	{
		contracts.POST("/status", h.Transition)
		contracts.PATCH("/value", h.UpdateValue)
		contracts.POST("/fees", h.RecordFee)
	}
}

func (h *Handler) ListContracts(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	list, err := h.service.ListContracts(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"contracts": list})
}

// Transition godoc
// @Summary      Change contract status
// @Description  Entering or leaving active adjusts the committed totals atomically
// @Tags         Contracts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Contract ID"
// @Router       /contracts/{id}/status [post]
func (h *Handler) Transition(c *gin.Context) {
	id, ok := idParam(c, "contract")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.TransitionContract(c.Request.Context(), id, req.Status, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) UpdateValue(c *gin.Context) {
	id, ok := idParam(c, "contract")
	if !ok {
		return
	}
	var req UpdateValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.UpdateContractValue(c.Request.Context(), id, req.ContractValue, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RecordFee(c *gin.Context) {
	id, ok := idParam(c, "contract")
	if !ok {
		return
	}
	var req FeePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.RecordFeePayment(c.Request.Context(), id, req.Amount, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

func (h *Handler) Reconcile(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	repair := c.Query("repair") == "true"
	res, err := h.service.Reconcile(c.Request.Context(), id, repair)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// RegisterInternalRoutes exposes the full reconciliation sweep to the scheduler
// that runs outside the API process.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	rg.POST("/reconcile", h.ReconcileAll)
}

func (h *Handler) ReconcileAll(c *gin.Context) {
	repair := c.Query("repair") == "true"
	results, err := h.service.ReconcileAll(c.Request.Context(), repair)
	if err != nil {
		response.Fault(c, err)
		return
	}
	checked, drifts := summarize(results)
	response.Success(c, http.StatusOK, gin.H{
		"projects": len(results),
		"checked":  checked,
		"drifts":   drifts,
		"results":  results,
	})
}

func (h *Handler) Reports(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	reports, err := h.service.Reports(c.Request.Context(), id, limit)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reports": reports})
}

func idParam(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}
