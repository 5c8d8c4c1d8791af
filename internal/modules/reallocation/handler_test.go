package reallocation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, db := newTestService(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", int64(3))
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, db
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

func TestHandler_Create_InsufficientFunds(t *testing.T) {
	r, db := setupRouter(t)

	p := testutil.CreateProject(t, db, "100000")
	from := scenarioPhase(t, db, p.ID)
	to := testutil.CreatePhase(t, db, p.ID, "0")

	w := performRequest(r, http.MethodPost, "/api/v1/projects/1/reallocations", gin.H{
		"reallocation_type": "phase_to_phase",
		"from_phase_id":     from.ID,
		"to_phase_id":       to.ID,
		"amount":            "35000",
		"reason":            "overrun",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Available string `json:"available"`
				Shortfall string `json:"shortfall"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INSUFFICIENT_FUNDS", body.Error.Code)
	assert.Equal(t, "30000.00", body.Error.Details.Available)
	assert.Equal(t, "5000.00", body.Error.Details.Shortfall)
}

func TestHandler_Lifecycle(t *testing.T) {
	r, db := setupRouter(t)

	p := testutil.CreateProject(t, db, "100000")
	ph := testutil.CreatePhase(t, db, p.ID, "40000")

	w := performRequest(r, http.MethodPost, "/api/v1/projects/1/reallocations", gin.H{
		"reallocation_type": "project_to_phase",
		"to_phase_id":       ph.ID,
		"amount":            "1500.50",
		"reason":            "extra scaffolding",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data domain.BudgetReallocation `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(3), created.Data.RequestedBy)
	base := "/api/v1/reallocations/" + created.Data.ID.String()

	w = performRequest(r, http.MethodPost, base+"/execute", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performRequest(r, http.MethodPost, base+"/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = performRequest(r, http.MethodPost, base+"/execute", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"executed"`)
	assert.Equal(t, "41500.50", allocation(t, db, ph.ID))
}

func TestHandler_BadReallocationID(t *testing.T) {
	r, _ := setupRouter(t)

	w := performRequest(r, http.MethodGet, "/api/v1/reallocations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/v1/reallocations/8f1d7c7e-8a84-4c55-9d2c-7f1b5d2e7c10/approve", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
