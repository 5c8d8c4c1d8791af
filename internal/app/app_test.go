package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/config"
	"buildledger/internal/logging"
	"buildledger/internal/middleware"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/pkg/jwt"
	"buildledger/internal/testutil"
)

func newTestApp(t *testing.T) (*gin.Engine, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	cfg := &config.Config{
		AppEnv:             "test",
		DatabaseURL:        filepath.Join(dir, "app.db"),
		DBTransactions:     "auto",
		TxTimeout:          5 * time.Second,
		Currency:           "USD",
		RecalcMode:         config.RecalcInline,
		OutboxPollInterval: time.Second,
		OutboxMaxAttempts:  3,
		AuditLogFile:       filepath.Join(dir, "audit.log"),
		AssetDir:           filepath.Join(dir, "assets"),
		InternalToken:      "ops",
	}
	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	jwtService := jwt.New("test-secret", time.Hour)
	return a.Router(jwtService, logging.Discard()), jwtService
}

func call(r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNew_RejectsDisabledTransactions(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL:    filepath.Join(t.TempDir(), "app.db"),
		DBTransactions: "disabled",
		TxTimeout:      time.Second,
		Currency:       "USD",
		RecalcMode:     config.RecalcInline,
	}
	_, err := New(cfg, logging.Discard())
	require.Error(t, err)
}

func TestRouter_ExpenseFlow(t *testing.T) {
	r, jwtService := newTestApp(t)
	pm, _ := jwtService.GenerateToken(2, middleware.RoleProjectManager)
	fm, _ := jwtService.GenerateToken(3, middleware.RoleFinanceManager)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/projects", "", nil).Code)

	w := call(r, http.MethodPost, "/api/v1/projects", pm, map[string]any{"name": "Mill Street", "budget_total": "50000"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = call(r, http.MethodPost, "/api/v1/investors", pm, map[string]any{"name": "Seed Fund"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = call(r, http.MethodPost, "/api/v1/projects/1/capital/allocations", fm, map[string]any{"investor_id": 1, "amount": "20000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = call(r, http.MethodPost, "/api/v1/projects/1/expenses", pm, map[string]any{"category": "equipment", "amount": "1500"})
	require.Equal(t, http.StatusCreated, w.Code)

	// approvals need a finance role
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/v1/expenses/1/approve", pm, nil).Code)
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/expenses/1/approve", fm, nil).Code)

	w = call(r, http.MethodGet, "/api/v1/projects/1/finances", pm, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data ledger.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	testutil.AssertMoney(t, "1500", body.Data.Finances.TotalUsed)
	testutil.AssertMoney(t, "18500", body.Data.Finances.CapitalBalance)
}

func TestRouter_InternalRoutesNeedToken(t *testing.T) {
	r, _ := newTestApp(t)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, "/internal/outbox/drain", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/internal/outbox/drain", "ops", nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/internal/reconcile", "ops", nil).Code)
}

func TestRouter_AdminOperatorRoutes(t *testing.T) {
	r, jwtService := newTestApp(t)
	admin, _ := jwtService.GenerateToken(1, middleware.RoleAdmin)
	fm, _ := jwtService.GenerateToken(3, middleware.RoleFinanceManager)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/v1/admin/outbox", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/v1/admin/outbox", fm, nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/v1/admin/outbox", admin, nil).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/v1/admin/reconcile", admin, nil).Code)
}
