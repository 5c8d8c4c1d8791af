package coordinator

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
	expenses := rg.Group("/expenses/:id")
	{
		expenses.POST("/approve", h.ApproveExpense)
		expenses.POST("/reject", h.RejectExpense)
		expenses.PATCH("/amount", h.UpdateExpenseAmount)
		expenses.DELETE("", h.DeleteExpense)
		expenses.POST("/restore", h.RestoreExpense)
	}

	initial := rg.Group("/initial-expenses/:id")
	{
		initial.POST("/approve", h.ApproveInitialExpense)
		initial.POST("/reject", h.RejectInitialExpense)
	}

	rg.POST("/materials/:id/receive", h.ReceiveMaterial)
	rg.POST("/phases/:id/archive", h.ArchivePhase)

	projects := rg.Group("/projects/:id")
	{
		projects.POST("/materials/bulk-approve", h.BulkApproveMaterials)
		projects.POST("/archive", h.ArchiveProject)
		projects.POST("/restore", h.RestoreProject)
		projects.DELETE("", h.DeleteProject)
	}
}

// ApproveExpense godoc
// @Summary      Approve a pending expense
// @Description  Checks project capital, approves the expense and refreshes totals
// @Tags         Expenses
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Expense ID"
// @Success      200 {object} ExpenseResult
// @Failure      422 {object} map[string]interface{}
// @Router       /expenses/{id}/approve [post]
func (h *Handler) ApproveExpense(c *gin.Context) {
	id, ok := idParam(c, "expense")
	if !ok {
		return
	}
	res, err := h.service.ApproveExpense(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RejectExpense(c *gin.Context) {
	id, ok := idParam(c, "expense")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.RejectExpense(c.Request.Context(), id, c.GetInt64("user_id"), req.Reason)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) UpdateExpenseAmount(c *gin.Context) {
	id, ok := idParam(c, "expense")
	if !ok {
		return
	}
	var req UpdateAmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.UpdateExpenseAmount(c.Request.Context(), id, req.Amount, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) DeleteExpense(c *gin.Context) {
	id, ok := idParam(c, "expense")
	if !ok {
		return
	}
	res, err := h.service.DeleteExpense(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RestoreExpense(c *gin.Context) {
	id, ok := idParam(c, "expense")
	if !ok {
		return
	}
	res, err := h.service.RestoreExpense(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ApproveInitialExpense(c *gin.Context) {
	id, ok := idParam(c, "initial expense")
	if !ok {
		return
	}
	res, err := h.service.ApproveInitialExpense(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RejectInitialExpense(c *gin.Context) {
	id, ok := idParam(c, "initial expense")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.RejectInitialExpense(c.Request.Context(), id, c.GetInt64("user_id"), req.Reason)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// BulkApproveMaterials godoc
// @Summary      Approve a batch of material requests
// @Description  The batch total is checked against available capital; the whole batch is refused on a shortfall
// @Tags         Materials
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        body body BulkApproveRequest true "Material request IDs"
// @Success      200 {object} BatchResult
// @Failure      422 {object} map[string]interface{}
// @Router       /projects/{id}/materials/bulk-approve [post]
func (h *Handler) BulkApproveMaterials(c *gin.Context) {
	projectID, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	res, err := h.service.BulkApproveMaterials(c.Request.Context(), projectID, req.MaterialIDs, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ReceiveMaterial(c *gin.Context) {
	id, ok := idParam(c, "material request")
	if !ok {
		return
	}
	res, err := h.service.ReceiveMaterial(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ArchivePhase(c *gin.Context) {
	id, ok := idParam(c, "phase")
	if !ok {
		return
	}
	res, err := h.service.ArchivePhase(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) ArchiveProject(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	res, err := h.service.ArchiveProject(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) RestoreProject(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	res, err := h.service.RestoreProject(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// DeleteProject godoc
// @Summary      Delete a project
// @Description  Returns unused capital to investors and removes the project with all of its records
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        force query bool false "Delete even when spending is recorded"
// @Success      200 {object} DeleteResult
// @Failure      409 {object} map[string]interface{}
// @Router       /projects/{id} [delete]
func (h *Handler) DeleteProject(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	res, err := h.service.DeleteProject(c.Request.Context(), id, force, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func idParam(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}
