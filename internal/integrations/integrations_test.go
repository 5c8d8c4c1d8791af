package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/logging"
)

func TestLogAuditSink_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterAuditSink(&buf)

	err := sink.CreateAuditLog(context.Background(), AuditEntry{
		UserID:     4,
		Action:     "expense.approve",
		EntityType: "expense",
		EntityID:   "12",
		ProjectID:  3,
		Changes:    map[string]any{"status": "approved"},
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["msg"])
	assert.Equal(t, "expense.approve", line["action"])
	assert.Equal(t, float64(3), line["project_id"])
	assert.Equal(t, map[string]any{"status": "approved"}, line["changes"])
}

func TestWebhookNotifier_PostsBatch(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, logging.Discard())
	err := n.CreateNotifications(context.Background(), []Notification{
		{UserID: 9, Type: TypeExpenseApproved, Title: "Expense approved"},
	})
	require.NoError(t, err)
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, int64(9), got.Notifications[0].UserID)
}

func TestWebhookNotifier_EmptyBatchIsNoop(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", time.Second, logging.Discard())
	assert.NoError(t, n.CreateNotifications(context.Background(), nil))
}

func TestWebhookNotifier_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, logging.Discard())
	batch := []Notification{{UserID: 1, Type: TypeProjectArchived}}
	for i := 0; i < 4; i++ {
		err := n.CreateNotifications(context.Background(), batch)
		assert.ErrorIs(t, err, ErrWebhookStatus)
	}

	err := n.CreateNotifications(context.Background(), batch)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(4), calls.Load())
}

func TestDirAssetCleaner(t *testing.T) {
	root := t.TempDir()
	c := NewDirAssetCleaner(root, logging.Discard())

	dir := c.ProjectDir(5)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.pdf"), []byte("x"), 0o644))

	require.NoError(t, c.CleanupProjectAssets(context.Background(), 5))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	// missing directory is not an error
	assert.NoError(t, c.CleanupProjectAssets(context.Background(), 6))
}

func TestNotificationData_Encode(t *testing.T) {
	id := int64(2)
	d := NotificationData{ProjectID: &id, Amount: "10.00"}
	assert.JSONEq(t, `{"project_id":2,"amount":"10.00"}`, d.Encode())
}
