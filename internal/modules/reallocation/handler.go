package reallocation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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
	rg.POST("/projects/:id/reallocations", h.Create)
	rg.GET("/projects/:id/reallocations", h.List)

	r := rg.Group("/reallocations/:rid")
	{
		r.GET("", h.Get)
		r.POST("/approve", h.Approve)
		r.POST("/reject", h.Reject)
		r.POST("/cancel", h.Cancel)
		r.POST("/execute", h.Execute)
	}
}

// Create godoc
// @Summary      Request a budget reallocation
// @Tags         Reallocations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Project ID"
// @Param        body body CreateRequest true "Reallocation"
// @Router       /projects/{id}/reallocations [post]
func (h *Handler) Create(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || projectID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid project ID")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	r, err := h.service.Create(c.Request.Context(), projectID, req, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusCreated, r)
}

func (h *Handler) List(c *gin.Context) {
	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || projectID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid project ID")
		return
	}
	list, err := h.service.List(c.Request.Context(), projectID, domain.ReallocationStatus(c.Query("status")))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reallocations": list})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := reallocationID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := reallocationID(c)
	if !ok {
		return
	}
	r, err := h.service.Approve(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := reallocationID(c)
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	r, err := h.service.Reject(c.Request.Context(), id, c.GetInt64("user_id"), req.Reason)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := reallocationID(c)
	if !ok {
		return
	}
	r, err := h.service.Cancel(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Execute(c *gin.Context) {
	id, ok := reallocationID(c)
	if !ok {
		return
	}
	res, err := h.service.Execute(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func reallocationID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("rid"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reallocation ID")
		return uuid.Nil, false
	}
	return id, true
}
