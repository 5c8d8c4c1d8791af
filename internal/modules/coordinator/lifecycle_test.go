package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/integrations"
	"buildledger/internal/testutil"
)

func TestArchivePhase(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "20000")
	other := testutil.CreatePhase(t, env.db, p.ID, "20000")
	testutil.Allocate(t, env.db, p.ID, "10000")
	testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "1000", domain.ExpenseApproved)
	testutil.CreateMaterial(t, env.db, p.ID, &ph.ID, "500", domain.MaterialApproved)
	testutil.CreateExpense(t, env.db, p.ID, &other.ID, "700", domain.ExpenseApproved)
	testutil.CreateIndirectExpense(t, env.db, p.ID, "300", domain.ExpenseApproved)

	res, err := env.svc.ArchivePhase(ctx, ph.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Spend)
	assert.NotNil(t, env.phase(t, ph.ID).ArchivedAt)
	testutil.AssertMoney(t, "0", env.phase(t, ph.ID).Actual.Total)

	f := env.finances(t, p.ID)
	testutil.AssertMoney(t, "1000", f.TotalUsed)
	testutil.AssertMoney(t, "300", f.IndirectUsed)

	_, err = env.svc.ArchivePhase(ctx, ph.ID, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestArchiveAndRestoreProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "40000")
	testutil.Allocate(t, env.db, p.ID, "20000")
	kept := testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "1500", domain.ExpenseApproved)
	deleted := testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "250", domain.ExpenseApproved)
	testutil.CreateMaterial(t, env.db, p.ID, &ph.ID, "500", domain.MaterialReceived)
	testutil.CreateContract(t, env.db, p.ID, &ph.ID, "5000", domain.ContractActive)
	require.NoError(t, env.db.Create(&domain.ProjectFinances{ProjectID: p.ID, CommittedTotal: testutil.D("5000")}).Error)

	// archived on its own before the project
	_, err := env.svc.DeleteExpense(ctx, deleted.ID, 4)
	require.NoError(t, err)
	testutil.AssertMoney(t, "2000", env.finances(t, p.ID).TotalUsed)

	arch, err := env.svc.ArchiveProject(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), arch.Phases)
	assert.Equal(t, int64(2), arch.Spend)
	assert.Equal(t, int64(1), arch.Contracts)

	var project domain.Project
	require.NoError(t, env.db.First(&project, p.ID).Error)
	assert.Equal(t, domain.ProjectArchived, project.Status)
	require.NotNil(t, project.ArchivedAt)

	f := env.finances(t, p.ID)
	testutil.AssertMoney(t, "0", f.TotalUsed)
	testutil.AssertMoney(t, "5000", f.CommittedTotal, "archive keeps commitments")

	_, err = env.svc.ArchiveProject(ctx, p.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	rest, err := env.svc.RestoreProject(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rest.Phases)
	assert.Equal(t, int64(2), rest.Spend)
	assert.Equal(t, int64(1), rest.Contracts)

	require.NoError(t, env.db.First(&project, p.ID).Error)
	assert.Equal(t, domain.ProjectActive, project.Status)
	assert.Nil(t, project.ArchivedAt)

	var e domain.Expense
	require.NoError(t, env.db.First(&e, kept.ID).Error)
	assert.Nil(t, e.ArchivedAt)
	require.NoError(t, env.db.First(&e, deleted.ID).Error)
	assert.NotNil(t, e.ArchivedAt, "separately archived expense stays archived")

	f = env.finances(t, p.ID)
	testutil.AssertMoney(t, "2000", f.TotalUsed)
	testutil.AssertMoney(t, "5000", f.CommittedTotal)
	testutil.AssertMoney(t, "2000", env.phase(t, ph.ID).Actual.Total)

	_, err = env.svc.RestoreProject(ctx, p.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestArchiveProject_WithoutTransactionsFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProject(t, env.db, "1000")

	env.svc.uow = nil
	_, err := env.svc.ArchiveProject(context.Background(), p.ID, 4)
	assert.ErrorIs(t, err, domain.ErrTransactionsRequired)

	var project domain.Project
	require.NoError(t, env.db.First(&project, p.ID).Error)
	assert.Nil(t, project.ArchivedAt)
}

func TestDeleteProject_RequiresForceWithSpending(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProject(t, env.db, "1000")
	testutil.CreateExpense(t, env.db, p.ID, nil, "100", domain.ExpenseApproved)

	_, err := env.svc.DeleteProject(context.Background(), p.ID, false, 4)
	assert.ErrorIs(t, err, domain.ErrProjectHasSpending)

	var n int64
	require.NoError(t, env.db.Model(&domain.Project{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
	env.assets.AssertNotCalled(t, "CleanupProjectAssets", mock.Anything, mock.Anything)
}

func TestDeleteProject_ReturnsUnusedCapitalAndRemovesEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "10000")
	a1 := testutil.Allocate(t, env.db, p.ID, "6000")
	a2 := testutil.Allocate(t, env.db, p.ID, "4000")
	require.NoError(t, env.db.Model(&domain.Investor{}).Where("id = ?", a1.InvestorID).Update("user_id", 42).Error)
	testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "2000", domain.ExpenseApproved)
	testutil.CreateContract(t, env.db, p.ID, &ph.ID, "1000", domain.ContractDraft)
	env.assets.On("CleanupProjectAssets", mock.Anything, p.ID).Return(nil).Once()

	res, err := env.svc.DeleteProject(ctx, p.ID, true, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.CapitalReturn)
	testutil.AssertMoney(t, "8000", res.CapitalReturn.Returned)
	require.Len(t, res.CapitalReturn.Returns, 2)
	assert.Equal(t, a1.ID, res.CapitalReturn.Returns[0].AllocationID)
	testutil.AssertMoney(t, "4800", res.CapitalReturn.Returns[0].Amount)
	assert.Equal(t, a2.ID, res.CapitalReturn.Returns[1].AllocationID)
	testutil.AssertMoney(t, "3200", res.CapitalReturn.Returns[1].Amount)

	assert.Equal(t, int64(1), res.Deleted["spend"])
	assert.Equal(t, int64(1), res.Deleted["phases"])
	assert.Equal(t, int64(1), res.Deleted["contracts"])
	assert.Equal(t, int64(2), res.Deleted["allocations"])

	for _, model := range []any{&domain.Project{}, &domain.Phase{}, &domain.Expense{}, &domain.Contract{}, &domain.InvestorAllocation{}, &domain.ProjectFinances{}} {
		var n int64
		require.NoError(t, env.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}

	env.assets.AssertExpectations(t)
	env.notifier.AssertCalled(t, "CreateNotifications", mock.Anything, mock.MatchedBy(func(b []integrations.Notification) bool {
		return len(b) == 2 && b[0].Type == integrations.TypeProjectDeleted && b[1].UserID == 42 && b[1].Data.Amount == "4800.00"
	}))
}

func TestDeleteProject_ArchivedProjectReturnsOnlyUnspentCapital(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	works := testutil.CreatePhase(t, env.db, p.ID, "20000")
	extra := testutil.CreatePhase(t, env.db, p.ID, "5000")
	testutil.Allocate(t, env.db, p.ID, "6000")
	testutil.Allocate(t, env.db, p.ID, "4000")

	e := testutil.CreateExpense(t, env.db, p.ID, &works.ID, "8000", domain.ExpensePending)
	_, err := env.svc.ApproveExpense(ctx, e.ID, 4)
	require.NoError(t, err)

	// deleted on its own, so it never consumed capital
	mistake := testutil.CreateExpense(t, env.db, p.ID, &works.ID, "500", domain.ExpenseApproved)
	_, err = env.svc.DeleteExpense(ctx, mistake.ID, 4)
	require.NoError(t, err)

	// spent, then archived with its phase
	testutil.CreateExpense(t, env.db, p.ID, &extra.ID, "1000", domain.ExpenseApproved)
	_, err = env.svc.ArchivePhase(ctx, extra.ID, 4)
	require.NoError(t, err)

	_, err = env.svc.ArchiveProject(ctx, p.ID, 4)
	require.NoError(t, err)
	testutil.AssertMoney(t, "0", env.finances(t, p.ID).TotalUsed)

	env.assets.On("CleanupProjectAssets", mock.Anything, p.ID).Return(nil).Once()
	res, err := env.svc.DeleteProject(ctx, p.ID, true, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.CapitalReturn)
	testutil.AssertMoney(t, "1000", res.CapitalReturn.Returned)
	require.Len(t, res.CapitalReturn.Returns, 2)
	testutil.AssertMoney(t, "600", res.CapitalReturn.Returns[0].Amount)
	testutil.AssertMoney(t, "400", res.CapitalReturn.Returns[1].Amount)
}

func TestDeleteProject_AssetFailureIsWarning(t *testing.T) {
	env := newTestEnv(t)
	p := testutil.CreateProject(t, env.db, "1000")
	env.assets.On("CleanupProjectAssets", mock.Anything, p.ID).Return(errors.New("permission denied"))

	res, err := env.svc.DeleteProject(context.Background(), p.ID, false, 4)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "permission denied")
	assert.Nil(t, res.CapitalReturn)

	var n int64
	require.NoError(t, env.db.Model(&domain.Project{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteProject_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.DeleteProject(context.Background(), 77, true, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
