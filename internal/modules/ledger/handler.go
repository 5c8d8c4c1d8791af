package ledger

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buildledger/internal/domain"
	"buildledger/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects/:id")
	{
		projects.GET("/finances", h.GetSummary)
		projects.POST("/finances/recalculate", h.Recalculate)
		projects.POST("/capital/check", h.CheckCapital)
		projects.POST("/capital/allocations", h.AllocateCapital)
		projects.POST("/capital/return", h.ReturnCapital)
	}
}

// GetSummary godoc
// @Summary      Project financial summary
// @Tags         Finances
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Project ID"
// @Router       /projects/{id}/finances [get]
func (h *Handler) GetSummary(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), projectID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

func (h *Handler) Recalculate(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	snap, err := h.service.RecalculateProjectFinances(c.Request.Context(), projectID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

func (h *Handler) CheckCapital(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req CheckCapitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	check, err := h.service.ValidateCapitalAvailability(c.Request.Context(), projectID, req.Amount)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, check)
}

func (h *Handler) AllocateCapital(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req AllocateCapitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	alloc, err := h.service.AllocateCapital(c.Request.Context(), req.InvestorID, projectID, req.Amount)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, alloc)
}

func (h *Handler) ReturnCapital(c *gin.Context) {
	projectID, ok := projectIDParam(c)
	if !ok {
		return
	}
	var req ReturnCapitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if !req.Amount.IsPositive() {
		response.Fault(c, domain.NewValidationError("amount", "must be greater than zero"))
		return
	}
	res, err := h.service.ReturnCapitalToInvestors(c.Request.Context(), projectID, req.Amount, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func projectIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid project ID")
		return 0, false
	}
	return id, true
}
