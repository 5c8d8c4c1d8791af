package ledger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func setupRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", int64(7))
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CheckCapital_Shortfall(t *testing.T) {
	r, svc := setupRouter(t)
	db := svc.uow.DB()

	p := testutil.CreateProject(t, db, "1000")
	testutil.Allocate(t, db, p.ID, "1000")
	testutil.CreateExpense(t, db, p.ID, nil, "900", domain.ExpenseApproved)

	w := performRequest(r, http.MethodPost, "/api/v1/projects/1/capital/check", gin.H{"amount": "250"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool         `json:"success"`
		Data    CapitalCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.False(t, body.Data.IsValid)
	testutil.AssertMoney(t, "150", body.Data.Shortfall)
}

func TestHandler_InvalidProjectID(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodGet, "/api/v1/projects/abc/finances", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}

func TestHandler_SummaryNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodGet, "/api/v1/projects/42/finances", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestHandler_ReturnCapital_RejectsZero(t *testing.T) {
	r, svc := setupRouter(t)
	testutil.CreateProject(t, svc.uow.DB(), "1000")

	w := performRequest(r, http.MethodPost, "/api/v1/projects/1/capital/return", gin.H{"amount": "0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}
