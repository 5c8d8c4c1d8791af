package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

// D parses a decimal literal and panics on bad input.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// AssertMoney compares at cent precision, which is how the store keeps money.
func AssertMoney(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if D(want).StringFixed(2) != got.StringFixed(2) {
		t.Errorf("money mismatch: want %s, got %s %v", D(want).StringFixed(2), got.StringFixed(2), msgAndArgs)
	}
}

func CreateProject(t *testing.T, db *gorm.DB, budget string) *domain.Project {
	t.Helper()
	p := &domain.Project{
		Name:              "Riverside Apartments",
		OwnerID:           1,
		Status:            domain.ProjectActive,
		BudgetTotal:       D(budget),
		BudgetMaterials:   decimal.Zero,
		BudgetLabour:      decimal.Zero,
		BudgetContingency: decimal.Zero,
		IndirectBudget:    decimal.Zero,
	}
	mustCreate(t, db, p)
	return p
}

func CreatePhase(t *testing.T, db *gorm.DB, projectID int64, allocation string) *domain.Phase {
	t.Helper()
	p := &domain.Phase{
		ProjectID:      projectID,
		Name:           "Phase",
		Allocation:     domain.PhaseBudget{Total: D(allocation)},
		CommittedTotal: decimal.Zero,
	}
	mustCreate(t, db, p)
	return p
}

func CreateInvestor(t *testing.T, db *gorm.DB, name string) *domain.Investor {
	t.Helper()
	inv := &domain.Investor{Name: name}
	mustCreate(t, db, inv)
	return inv
}

// Allocate creates an investor with one active allocation to the project.
func Allocate(t *testing.T, db *gorm.DB, projectID int64, amount string) *domain.InvestorAllocation {
	t.Helper()
	inv := CreateInvestor(t, db, "Investor")
	a := &domain.InvestorAllocation{
		InvestorID:     inv.ID,
		ProjectID:      projectID,
		Amount:         D(amount),
		ReturnedAmount: decimal.Zero,
		Status:         domain.AllocationActive,
	}
	mustCreate(t, db, a)
	return a
}

func CreateExpense(t *testing.T, db *gorm.DB, projectID int64, phaseID *int64, amount string, status domain.ExpenseStatus) *domain.Expense {
	t.Helper()
	e := &domain.Expense{
		ProjectID:   projectID,
		PhaseID:     phaseID,
		Category:    domain.ExpenseOther,
		Description: "expense",
		Amount:      D(amount),
		Status:      status,
		SubmittedBy: 1,
	}
	mustCreate(t, db, e)
	return e
}

func CreateIndirectExpense(t *testing.T, db *gorm.DB, projectID int64, amount string, status domain.ExpenseStatus) *domain.Expense {
	t.Helper()
	e := &domain.Expense{
		ProjectID:        projectID,
		Category:         domain.ExpenseOther,
		IsIndirect:       true,
		IndirectCategory: domain.IndirectUtilities,
		Description:      "site power",
		Amount:           D(amount),
		Status:           status,
		SubmittedBy:      1,
	}
	mustCreate(t, db, e)
	return e
}

func CreateMaterial(t *testing.T, db *gorm.DB, projectID int64, phaseID *int64, total string, status domain.MaterialStatus) *domain.MaterialRequest {
	t.Helper()
	m := &domain.MaterialRequest{
		ProjectID:   projectID,
		PhaseID:     phaseID,
		Description: "cement",
		Quantity:    decimal.NewFromInt(1),
		UnitCost:    D(total),
		TotalCost:   D(total),
		Status:      status,
		RequestedBy: 1,
	}
	mustCreate(t, db, m)
	return m
}

func CreateInitialExpense(t *testing.T, db *gorm.DB, projectID int64, amount string, status domain.InitialExpenseStatus) *domain.InitialExpense {
	t.Helper()
	e := &domain.InitialExpense{
		ProjectID:   projectID,
		Category:    "permits",
		Description: "building permit",
		Amount:      D(amount),
		Status:      status,
		SubmittedBy: 1,
	}
	mustCreate(t, db, e)
	return e
}

func CreateContract(t *testing.T, db *gorm.DB, projectID int64, phaseID *int64, value string, status domain.ContractStatus) *domain.Contract {
	t.Helper()
	c := &domain.Contract{
		ProjectID:     projectID,
		PhaseID:       phaseID,
		Kind:          domain.ContractKindContract,
		Title:         "Structural works",
		ContractValue: D(value),
		FeesPaid:      decimal.Zero,
		Status:        status,
	}
	mustCreate(t, db, c)
	return c
}

func mustCreate(t *testing.T, db *gorm.DB, v any) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("fixture %T: %v", v, err)
	}
}

func Int64Ptr(v int64) *int64 {
	return &v
}
