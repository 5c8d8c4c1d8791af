package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildledger/internal/config"
	"buildledger/internal/domain"
	"buildledger/internal/integrations"
	"buildledger/internal/logging"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/repository"
	"buildledger/internal/testutil"
)

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	audit    *MockAuditSink
	notifier *MockNotifier
	assets   *MockAssetCleaner
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvMode(t, config.RecalcInline)
}

func newTestEnvMode(t *testing.T, mode string) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)
	log := logging.Discard()
	ledgerSvc := ledger.NewService(uow, log)
	cascade := recalc.NewCascade(uow, ledgerSvc, mode, log)

	env := &testEnv{db: db, audit: &MockAuditSink{}, notifier: &MockNotifier{}, assets: &MockAssetCleaner{}}
	env.audit.On("CreateAuditLog", mock.Anything, mock.Anything).Return(nil).Maybe()
	env.notifier.On("CreateNotifications", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc, err := NewService(uow, ledgerSvc, cascade, Options{
		Audit:    env.audit,
		Notifier: env.notifier,
		Assets:   env.assets,
	}, log)
	require.NoError(t, err)

	// ticking clock so separate archive operations never share a stamp
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	env.svc = svc
	return env
}

func (e *testEnv) finances(t *testing.T, projectID int64) *domain.ProjectFinances {
	t.Helper()
	f, err := repository.NewFinanceRepository(e.db).Get(context.Background(), projectID)
	require.NoError(t, err)
	return f
}

func (e *testEnv) phase(t *testing.T, id int64) *domain.Phase {
	t.Helper()
	var p domain.Phase
	require.NoError(t, e.db.First(&p, id).Error)
	return &p
}

func TestNewService_RequiresTransactor(t *testing.T) {
	svc, err := NewService(nil, nil, nil, Options{}, logging.Discard())
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, domain.ErrTransactionsRequired)
}

func TestApproveExpense_UpdatesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "50000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "20000")
	testutil.Allocate(t, env.db, p.ID, "10000")
	e := testutil.CreateExpense(t, env.db, p.ID, &ph.ID, "2500", domain.ExpensePending)

	res, err := env.svc.ApproveExpense(ctx, e.ID, 4)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, domain.ExpenseApproved, res.Expense.Status)
	require.NotNil(t, res.Expense.ApprovedBy)
	assert.Equal(t, int64(4), *res.Expense.ApprovedBy)

	f := env.finances(t, p.ID)
	testutil.AssertMoney(t, "2500", f.TotalUsed)
	testutil.AssertMoney(t, "7500", f.CapitalBalance)
	testutil.AssertMoney(t, "2500", env.phase(t, ph.ID).Actual.Total)

	env.audit.AssertCalled(t, "CreateAuditLog", mock.Anything, mock.MatchedBy(func(a integrations.AuditEntry) bool {
		return a.Action == "expense.approve" && a.UserID == 4 && a.ProjectID == p.ID
	}))
	env.notifier.AssertCalled(t, "CreateNotifications", mock.Anything, mock.MatchedBy(func(b []integrations.Notification) bool {
		return len(b) == 1 && b[0].Type == integrations.TypeExpenseApproved && b[0].UserID == 1
	}))
}

func TestApproveExpense_InsufficientCapital(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "1000000")
	testutil.Allocate(t, env.db, p.ID, "500000")
	testutil.CreateExpense(t, env.db, p.ID, nil, "500000", domain.ExpenseApproved)
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "1200", domain.ExpensePending)

	_, err := env.svc.ApproveExpense(ctx, e.ID, 4)
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	assert.Equal(t, domain.ScopeCapital, funds.Scope)
	testutil.AssertMoney(t, "0", funds.Available)
	testutil.AssertMoney(t, "1200", funds.Shortfall)

	var got domain.Expense
	require.NoError(t, env.db.First(&got, e.ID).Error)
	assert.Equal(t, domain.ExpensePending, got.Status)
	env.audit.AssertNotCalled(t, "CreateAuditLog", mock.Anything, mock.Anything)
}

func TestApproveExpense_CapitalNotSetWarns(t *testing.T) {
	env := newTestEnv(t)

	p := testutil.CreateProject(t, env.db, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpensePending)

	res, err := env.svc.ApproveExpense(context.Background(), e.ID, 4)
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "no investor capital")
}

func TestApproveExpense_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)

	p := testutil.CreateProject(t, env.db, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpenseRejected)

	_, err := env.svc.ApproveExpense(context.Background(), e.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = env.svc.ApproveExpense(context.Background(), 999, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApproveExpense_NotifierFailureIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.ExpectedCalls = nil
	env.notifier.On("CreateNotifications", mock.Anything, mock.Anything).Return(errors.New("webhook down"))

	p := testutil.CreateProject(t, env.db, "1000")
	testutil.Allocate(t, env.db, p.ID, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpensePending)

	res, err := env.svc.ApproveExpense(context.Background(), e.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseApproved, res.Expense.Status)
}

func TestRejectExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpensePending)

	_, err := env.svc.RejectExpense(ctx, e.ID, 4, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err := env.svc.RejectExpense(ctx, e.ID, 4, "duplicate invoice")
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseRejected, res.Expense.Status)
	assert.Equal(t, "duplicate invoice", res.Expense.RejectionReason)

	_, err = env.svc.RejectExpense(ctx, e.ID, 4, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateExpenseAmount_ChecksIncreaseOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "10000")
	testutil.Allocate(t, env.db, p.ID, "1500")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "1000", domain.ExpenseApproved)

	_, err := env.svc.UpdateExpenseAmount(ctx, e.ID, testutil.D("1400"), 4)
	require.NoError(t, err)
	testutil.AssertMoney(t, "1400", env.finances(t, p.ID).TotalUsed)

	_, err = env.svc.UpdateExpenseAmount(ctx, e.ID, testutil.D("1600"), 4)
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	testutil.AssertMoney(t, "100", funds.Available)
	testutil.AssertMoney(t, "100", funds.Shortfall)

	// lowering never needs capital
	_, err = env.svc.UpdateExpenseAmount(ctx, e.ID, testutil.D("200"), 4)
	require.NoError(t, err)
	testutil.AssertMoney(t, "200", env.finances(t, p.ID).TotalUsed)

	_, err = env.svc.UpdateExpenseAmount(ctx, e.ID, testutil.D("0"), 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteAndRestoreExpense(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "10000")
	testutil.Allocate(t, env.db, p.ID, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpenseApproved)

	res, err := env.svc.DeleteExpense(ctx, e.ID, 4)
	require.NoError(t, err)
	assert.NotNil(t, res.Expense.ArchivedAt)
	testutil.AssertMoney(t, "0", env.finances(t, p.ID).TotalUsed)

	_, err = env.svc.DeleteExpense(ctx, e.ID, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err = env.svc.RestoreExpense(ctx, e.ID, 4)
	require.NoError(t, err)
	assert.Nil(t, res.Expense.ArchivedAt)
	testutil.AssertMoney(t, "300", env.finances(t, p.ID).TotalUsed)

	_, err = env.svc.RestoreExpense(ctx, e.ID, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInitialExpense_ApproveAndReject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "10000")
	testutil.Allocate(t, env.db, p.ID, "5000")
	permit := testutil.CreateInitialExpense(t, env.db, p.ID, "1200", domain.InitialExpensePending)
	survey := testutil.CreateInitialExpense(t, env.db, p.ID, "800", domain.InitialExpensePending)

	res, err := env.svc.ApproveInitialExpense(ctx, permit.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.InitialExpenseApproved, res.InitialExpense.Status)

	f := env.finances(t, p.ID)
	testutil.AssertMoney(t, "1200", f.InitialExpensesUsed)
	testutil.AssertMoney(t, "1200", f.TotalUsed)
	testutil.AssertMoney(t, "3800", f.CapitalBalance)

	_, err = env.svc.RejectInitialExpense(ctx, survey.ID, 4, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	rej, err := env.svc.RejectInitialExpense(ctx, survey.ID, 4, "not needed")
	require.NoError(t, err)
	assert.Equal(t, domain.InitialExpenseRejected, rej.InitialExpense.Status)

	_, err = env.svc.ApproveInitialExpense(ctx, survey.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBulkApproveMaterials_AggregateCheck(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	ph := testutil.CreatePhase(t, env.db, p.ID, "50000")
	testutil.Allocate(t, env.db, p.ID, "1000")
	m1 := testutil.CreateMaterial(t, env.db, p.ID, &ph.ID, "400", domain.MaterialPending)
	m2 := testutil.CreateMaterial(t, env.db, p.ID, &ph.ID, "400", domain.MaterialPending)
	m3 := testutil.CreateMaterial(t, env.db, p.ID, nil, "400", domain.MaterialPending)

	// each item fits alone, the batch does not
	_, err := env.svc.BulkApproveMaterials(ctx, p.ID, []int64{m1.ID, m2.ID, m3.ID}, 4)
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	testutil.AssertMoney(t, "1200", funds.Required)
	testutil.AssertMoney(t, "200", funds.Shortfall)

	var approved int64
	require.NoError(t, env.db.Model(&domain.MaterialRequest{}).Where("status = ?", domain.MaterialApproved).Count(&approved).Error)
	assert.Zero(t, approved)

	res, err := env.svc.BulkApproveMaterials(ctx, p.ID, []int64{m1.ID, m2.ID, m1.ID}, 4)
	require.NoError(t, err)
	testutil.AssertMoney(t, "800", res.Total)
	require.Len(t, res.Materials, 2)
	for _, m := range res.Materials {
		assert.Equal(t, domain.MaterialApproved, m.Status)
		require.NotNil(t, m.BatchID)
		assert.Equal(t, res.BatchID, *m.BatchID)
	}

	testutil.AssertMoney(t, "800", env.finances(t, p.ID).TotalUsed)
	testutil.AssertMoney(t, "800", env.phase(t, ph.ID).Actual.Materials)
}

func TestBulkApproveMaterials_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "100000")
	other := testutil.CreateProject(t, env.db, "100000")
	pending := testutil.CreateMaterial(t, env.db, p.ID, nil, "10", domain.MaterialPending)
	foreign := testutil.CreateMaterial(t, env.db, other.ID, nil, "10", domain.MaterialPending)
	received := testutil.CreateMaterial(t, env.db, p.ID, nil, "10", domain.MaterialReceived)

	_, err := env.svc.BulkApproveMaterials(ctx, p.ID, nil, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.svc.BulkApproveMaterials(ctx, p.ID, []int64{pending.ID, 999}, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = env.svc.BulkApproveMaterials(ctx, p.ID, []int64{pending.ID, foreign.ID}, 4)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = env.svc.BulkApproveMaterials(ctx, p.ID, []int64{pending.ID, received.ID}, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReceiveMaterial(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "1000")
	approved := testutil.CreateMaterial(t, env.db, p.ID, nil, "10", domain.MaterialApproved)
	pending := testutil.CreateMaterial(t, env.db, p.ID, nil, "10", domain.MaterialPending)

	res, err := env.svc.ReceiveMaterial(ctx, approved.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.MaterialReceived, res.Material.Status)
	assert.NotNil(t, res.Material.ReceivedAt)

	_, err = env.svc.ReceiveMaterial(ctx, pending.ID, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestOutboxMode_ClosesTasksAfterTrigger(t *testing.T) {
	env := newTestEnvMode(t, config.RecalcOutbox)
	ctx := context.Background()

	p := testutil.CreateProject(t, env.db, "1000")
	testutil.Allocate(t, env.db, p.ID, "1000")
	e := testutil.CreateExpense(t, env.db, p.ID, nil, "300", domain.ExpensePending)

	_, err := env.svc.ApproveExpense(ctx, e.ID, 4)
	require.NoError(t, err)

	var tasks []domain.RecalcTask
	require.NoError(t, env.db.Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.RecalcTaskDone, tasks[0].Status)
	assert.Equal(t, "expense_approved", tasks[0].Reason)
}
