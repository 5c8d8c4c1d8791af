package commitment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/logging"
	"buildledger/internal/testutil"
)

func TestReconcile_DetectsAndRepairsDrift(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, db, "100000")
	ph := testutil.CreatePhase(t, db, p.ID, "50000")
	c := testutil.CreateContract(t, db, p.ID, &ph.ID, "8000", domain.ContractDraft)
	_, err := svc.TransitionContract(ctx, c.ID, domain.ContractActive, 1)
	require.NoError(t, err)

	// no drift yet
	res, err := svc.Reconcile(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Empty(t, res.Drifts)

	// corrupt both counters behind the tracker's back
	require.NoError(t, db.Model(&domain.ProjectFinances{}).Where("project_id = ?", p.ID).Update("committed_total", testutil.D("9500")).Error)
	require.NoError(t, db.Model(&domain.Phase{}).Where("id = ?", ph.ID).Update("committed_total", testutil.D("100")).Error)

	res, err = svc.Reconcile(ctx, p.ID, false)
	require.NoError(t, err)
	require.Len(t, res.Drifts, 2)
	testutil.AssertMoney(t, "1500", res.Drifts[0].Drift)
	testutil.AssertMoney(t, "-7900", res.Drifts[1].Drift)
	testutil.AssertMoney(t, "9500", committed(t, db, p.ID))

	res, err = svc.Reconcile(ctx, p.ID, true)
	require.NoError(t, err)
	require.Len(t, res.Drifts, 2)
	assert.True(t, res.Drifts[0].Repaired)
	testutil.AssertMoney(t, "8000", committed(t, db, p.ID))
	testutil.AssertMoney(t, "8000", phaseCommitted(t, db, ph.ID))

	reports, err := svc.Reports(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, reports, 4)
}

func TestReconcileAll_SkipsArchivedAndContinues(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	p1 := testutil.CreateProject(t, db, "100")
	p2 := testutil.CreateProject(t, db, "100")
	require.NoError(t, db.Exec("UPDATE projects SET archived_at = CURRENT_TIMESTAMP WHERE id = ?", p2.ID).Error)
	testutil.CreateContract(t, db, p1.ID, nil, "50", domain.ContractActive)

	results, err := svc.ReconcileAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, p1.ID, results[0].ProjectID)
	testutil.AssertMoney(t, "50", committed(t, db, p1.ID))
}

func TestScheduler_RunOnce(t *testing.T) {
	svc, db := newTestService(t)
	p := testutil.CreateProject(t, db, "100")
	testutil.CreateContract(t, db, p.ID, nil, "25", domain.ContractActive)

	NewScheduler(svc, 0, true, logging.Discard()).RunOnce(context.Background())
	testutil.AssertMoney(t, "25", committed(t, db, p.ID))
}
