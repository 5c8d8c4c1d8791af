package reallocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func TestNewTransfer_Variants(t *testing.T) {
	one, two := int64(1), int64(2)

	tr, err := NewTransfer(domain.PhaseToPhase, &one, &two)
	require.NoError(t, err)
	assert.Equal(t, PhaseToPhase{From: 1, To: 2}, tr)

	tr, err = NewTransfer(domain.ProjectToPhase, nil, &two)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, tr.Phases())

	tr, err = NewTransfer(domain.PhaseToProject, &one, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseToProject, tr.Type())
}

func TestScope_Available(t *testing.T) {
	project := &domain.Project{ID: 9, BudgetTotal: testutil.D("100000")}
	phases := []domain.Phase{
		{ID: 1, ProjectID: 9, Allocation: domain.PhaseBudget{Total: testutil.D("60000")}, Actual: domain.PhaseBudget{Total: testutil.D("20000")}, CommittedTotal: testutil.D("10000")},
		{ID: 2, ProjectID: 9, Allocation: domain.PhaseBudget{Total: testutil.D("15000")}},
	}
	s := NewScope(project, phases, nil)

	avail, scope, id := PhaseToPhase{From: 1, To: 2}.Available(s)
	testutil.AssertMoney(t, "30000", avail)
	assert.Equal(t, domain.ScopePhaseBudget, scope)
	assert.Equal(t, int64(1), id)

	avail, scope, id = ProjectToPhase{To: 2}.Available(s)
	testutil.AssertMoney(t, "25000", avail)
	assert.Equal(t, domain.ScopeProjectBudget, scope)
	assert.Equal(t, int64(9), id)

	err := check(PhaseToPhase{From: 1, To: 2}, s, testutil.D("35000"))
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, err, &funds)
	testutil.AssertMoney(t, "5000", funds.Shortfall)

	assert.ErrorIs(t, check(PhaseToPhase{From: 1, To: 3}, s, testutil.D("1")), domain.ErrValidation)
}
