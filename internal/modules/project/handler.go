package project

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buildledger/internal/pkg/response"
	"buildledger/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	projects := rg.Group("/projects")
	{
		projects.POST("", h.CreateProject)
		projects.GET("", h.ListProjects)
		projects.GET("/:id", h.GetProject)
		projects.PUT("/:id/budget", h.UpdateBudget)
		projects.PATCH("/:id/status", h.UpdateStatus)
		projects.GET("/:id/allocation-policy", h.AllocationPolicy)
		projects.POST("/:id/phases", h.CreatePhase)
		projects.GET("/:id/phases", h.ListPhases)
		projects.POST("/:id/expenses", h.CreateExpense)
		projects.GET("/:id/expenses", h.ListExpenses)
		projects.POST("/:id/materials", h.CreateMaterial)
		projects.GET("/:id/materials", h.ListMaterials)
		projects.POST("/:id/initial-expenses", h.CreateInitialExpense)
		projects.POST("/:id/contracts", h.CreateContract)
	}

	investors := rg.Group("/investors")
	{
		investors.POST("", h.CreateInvestor)
		investors.GET("/:id", h.GetInvestor)
	}
}

// bind decodes the body and runs the validate tags, writing the error response
// itself on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BindError(c, err)
		return false
	}
	if errors := validator.Validate(req); errors != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", errors)
		return false
	}
	return true
}

// CreateProject godoc
// @Summary      Create project
// @Tags         Projects
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body CreateProjectRequest true "Project"
// @Router       /projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.service.CreateProject(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// ListProjects godoc
// @Summary      List projects
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        include_archived query bool false "Include archived projects"
// @Router       /projects [get]
func (h *Handler) ListProjects(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"
	projects, err := h.service.ListProjects(c.Request.Context(), includeArchived)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"projects": projects})
}

func (h *Handler) GetProject(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	p, err := h.service.GetProject(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func (h *Handler) UpdateBudget(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req UpdateBudgetRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.service.UpdateBudget(c.Request.Context(), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !bind(c, &req) {
		return
	}
	p, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// AllocationPolicy godoc
// @Summary      Phase allocations against the project budget
// @Tags         Projects
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Project ID"
// @Router       /projects/{id}/allocation-policy [get]
func (h *Handler) AllocationPolicy(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	policy, err := h.service.CheckAllocationPolicy(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, policy)
}

func (h *Handler) CreatePhase(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req CreatePhaseRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.service.CreatePhase(c.Request.Context(), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) ListPhases(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	phases, err := h.service.ListPhases(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"phases": phases})
}

// CreateExpense godoc
// @Summary      Submit an expense
// @Tags         Spending
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        request body CreateExpenseRequest true "Expense"
// @Router       /projects/{id}/expenses [post]
func (h *Handler) CreateExpense(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req CreateExpenseRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.service.CreateExpense(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

func (h *Handler) ListExpenses(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	expenses, err := h.service.ListExpenses(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"expenses": expenses})
}

func (h *Handler) CreateMaterial(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req CreateMaterialRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.service.CreateMaterial(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, m)
}

func (h *Handler) ListMaterials(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	materials, err := h.service.ListMaterials(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"materials": materials})
}

func (h *Handler) CreateInitialExpense(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req CreateInitialExpenseRequest
	if !bind(c, &req) {
		return
	}
	e, err := h.service.CreateInitialExpense(c.Request.Context(), id, c.GetInt64("user_id"), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, e)
}

func (h *Handler) CreateContract(c *gin.Context) {
	id, ok := idParam(c, "project")
	if !ok {
		return
	}
	var req CreateContractRequest
	if !bind(c, &req) {
		return
	}
	contract, err := h.service.CreateContract(c.Request.Context(), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, contract)
}

func (h *Handler) CreateInvestor(c *gin.Context) {
	var req CreateInvestorRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.service.CreateInvestor(c.Request.Context(), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, inv)
}

func (h *Handler) GetInvestor(c *gin.Context) {
	id, ok := idParam(c, "investor")
	if !ok {
		return
	}
	inv, err := h.service.GetInvestor(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, inv)
}

func idParam(c *gin.Context, entity string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}
