package coordinator

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

func setupRouter(t *testing.T) (*gin.Engine, *testEnv) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", int64(5))
		c.Next()
	})
	NewHandler(env.svc).RegisterRoutes(r.Group("/api/v1"))
	return r, env
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

func TestHandler_ApproveExpense(t *testing.T) {
	r, env := setupRouter(t)
	p := testutil.CreateProject(t, env.db, "1000")
	testutil.Allocate(t, env.db, p.ID, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "100", domain.ExpensePending)

	w := performRequest(r, http.MethodPost, "/api/v1/expenses/1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data ExpenseResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, e.ID, body.Data.Expense.ID)
	require.NotNil(t, body.Data.Expense.ApprovedBy)
	assert.Equal(t, int64(5), *body.Data.Expense.ApprovedBy)
}

func TestHandler_BulkApprove_BadBody(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/projects/1/materials/bulk-approve", gin.H{"material_ids": []int64{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestHandler_DeleteProject_HasSpending(t *testing.T) {
	r, env := setupRouter(t)
	p := testutil.CreateProject(t, env.db, "1000")
	testutil.CreateExpense(t, env.db, p.ID, nil, "100", domain.ExpenseApproved)

	w := performRequest(r, http.MethodDelete, "/api/v1/projects/1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "PROJECT_HAS_SPENDING")
}

func TestHandler_RejectExpense_RequiresReason(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodPost, "/api/v1/expenses/1/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/v1/expenses/x/reject", gin.H{"reason": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ID")
}
