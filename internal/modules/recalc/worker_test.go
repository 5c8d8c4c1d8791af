package recalc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildledger/internal/config"
	"buildledger/internal/domain"
	"buildledger/internal/logging"
	"buildledger/internal/testutil"
)

func TestWorker_DrainsPendingTasks(t *testing.T) {
	c, db := newTestCascade(t, config.RecalcOutbox)
	ctx := context.Background()

	p := testutil.CreateProject(t, db, "1000")
	testutil.Allocate(t, db, p.ID, "1000")
	testutil.CreateExpense(t, db, p.ID, nil, "400", domain.ExpenseApproved)
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return c.Schedule(tx, Event{ProjectID: p.ID, Reason: "expense_approved"})
	}))

	w := NewWorker(c, WorkerConfig{PollInterval: time.Second}, logging.Discard())
	stats, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Succeeded)

	var f domain.ProjectFinances
	require.NoError(t, db.Where("project_id = ?", p.ID).First(&f).Error)
	testutil.AssertMoney(t, "600", f.CapitalBalance)

	stats, err = w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
}

func TestWorker_BacksOffThenGivesUp(t *testing.T) {
	c, db := newTestCascade(t, config.RecalcOutbox)
	ctx := context.Background()

	// project 404 does not exist, so every attempt fails
	task := &domain.RecalcTask{
		ProjectID:     404,
		PhaseIDs:      "[]",
		Reason:        "orphan",
		Status:        domain.RecalcTaskPending,
		NextAttemptAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(t, db.Create(task).Error)

	w := NewWorker(c, WorkerConfig{PollInterval: time.Second, MaxAttempts: 2}, logging.Discard())
	stats, err := w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	got, err := c.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecalcTaskPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.NotEmpty(t, got.LastError)
	assert.True(t, got.NextAttemptAt.After(time.Now().UTC()))

	// not due yet
	stats, err = w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)

	require.NoError(t, db.Model(&domain.RecalcTask{}).Where("id = ?", task.ID).
		Update("next_attempt_at", time.Now().UTC().Add(-time.Second)).Error)
	stats, err = w.DrainOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GaveUp)

	got, err = c.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RecalcTaskFailed, got.Status)
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	c, _ := newTestCascade(t, config.RecalcOutbox)
	w := NewWorker(c, WorkerConfig{PollInterval: 10 * time.Millisecond}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
