package project

import (
	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
)

type CreateProjectRequest struct {
	Name              string               `json:"name" validate:"required,max=255"`
	Status            domain.ProjectStatus `json:"status" validate:"omitempty,oneof=planning active paused completed"`
	BudgetTotal       decimal.Decimal      `json:"budget_total" validate:"gte=0"`
	BudgetMaterials   decimal.Decimal      `json:"budget_materials" validate:"gte=0"`
	BudgetLabour      decimal.Decimal      `json:"budget_labour" validate:"gte=0"`
	BudgetContingency decimal.Decimal      `json:"budget_contingency" validate:"gte=0"`
	IndirectBudget    decimal.Decimal      `json:"indirect_budget" validate:"gte=0"`
}

type UpdateBudgetRequest struct {
	BudgetTotal       decimal.Decimal `json:"budget_total" validate:"gte=0"`
	BudgetMaterials   decimal.Decimal `json:"budget_materials" validate:"gte=0"`
	BudgetLabour      decimal.Decimal `json:"budget_labour" validate:"gte=0"`
	BudgetContingency decimal.Decimal `json:"budget_contingency" validate:"gte=0"`
	IndirectBudget    decimal.Decimal `json:"indirect_budget" validate:"gte=0"`
}

type UpdateStatusRequest struct {
	Status domain.ProjectStatus `json:"status" validate:"required,oneof=planning active paused completed"`
}

// BudgetSplit is a phase allocation with its optional category breakdown.
type BudgetSplit struct {
	Total             decimal.Decimal `json:"total" validate:"gte=0"`
	Materials         decimal.Decimal `json:"materials" validate:"gte=0"`
	LabourSkilled     decimal.Decimal `json:"labour_skilled" validate:"gte=0"`
	LabourUnskilled   decimal.Decimal `json:"labour_unskilled" validate:"gte=0"`
	LabourSupervisory decimal.Decimal `json:"labour_supervisory" validate:"gte=0"`
	LabourSpecialized decimal.Decimal `json:"labour_specialized" validate:"gte=0"`
	Equipment         decimal.Decimal `json:"equipment" validate:"gte=0"`
	Other             decimal.Decimal `json:"other" validate:"gte=0"`
}

type CreatePhaseRequest struct {
	Name       string      `json:"name" validate:"required,max=255"`
	Sequence   int         `json:"sequence" validate:"gte=0"`
	Allocation BudgetSplit `json:"budget_allocation"`
}

type CreateExpenseRequest struct {
	PhaseID          *int64                  `json:"phase_id"`
	Category         domain.ExpenseCategory  `json:"category" validate:"required,oneof=materials labour equipment other"`
	LabourType       domain.LabourType       `json:"labour_type" validate:"omitempty,oneof=skilled unskilled supervisory specialized"`
	IsIndirect       bool                    `json:"is_indirect"`
	IndirectCategory domain.IndirectCategory `json:"indirect_category" validate:"omitempty,oneof=utilities site_overhead transport safety"`
	Description      string                  `json:"description" validate:"max=2000"`
	Amount           decimal.Decimal         `json:"amount" validate:"gt=0"`
}

type CreateMaterialRequest struct {
	PhaseID     *int64          `json:"phase_id"`
	Description string          `json:"description" validate:"required,max=2000"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost    decimal.Decimal `json:"unit_cost" validate:"gte=0"`
}

type CreateInitialExpenseRequest struct {
	Category    string          `json:"category" validate:"required,max=32"`
	Description string          `json:"description" validate:"max=2000"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
}

type CreateContractRequest struct {
	PhaseID       *int64              `json:"phase_id"`
	Kind          domain.ContractKind `json:"kind" validate:"omitempty,oneof=contract purchase_order professional_service"`
	Title         string              `json:"title" validate:"required,max=255"`
	Counterparty  string              `json:"counterparty" validate:"max=255"`
	ContractValue decimal.Decimal     `json:"contract_value" validate:"gte=0"`
}

type CreateInvestorRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	UserID *int64 `json:"user_id"`
}

// AllocationPolicy reports how phase allocations compare to the project budget.
// Over-allocation is flagged, never blocked.
type AllocationPolicy struct {
	ProjectID   int64           `json:"project_id"`
	BudgetTotal decimal.Decimal `json:"budget_total"`
	Allocated   decimal.Decimal `json:"allocated"`
	Unallocated decimal.Decimal `json:"unallocated"`
	Compliant   bool            `json:"compliant"`
	Warning     string          `json:"warning,omitempty"`
}

type ProjectResult struct {
	Project  *domain.Project `json:"project"`
	Warnings []string        `json:"warnings,omitempty"`
}

type PhaseResult struct {
	Phase    *domain.Phase     `json:"phase"`
	Policy   *AllocationPolicy `json:"allocation_policy"`
	Warnings []string          `json:"warnings,omitempty"`
}

type ExpenseResult struct {
	Expense  *domain.Expense `json:"expense"`
	Warnings []string        `json:"warnings,omitempty"`
}
