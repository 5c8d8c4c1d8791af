package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
)

// Snapshot is the aggregate written by a recalculation. It carries no timestamps,
// so two runs over the same records compare equal.
type Snapshot struct {
	ProjectID           int64           `json:"project_id"`
	TotalInvested       decimal.Decimal `json:"total_invested"`
	TotalUsed           decimal.Decimal `json:"total_used"`
	CapitalBalance      decimal.Decimal `json:"capital_balance"`
	CommittedTotal      decimal.Decimal `json:"committed_total"`
	IndirectUsed        decimal.Decimal `json:"indirect_used"`
	InitialExpensesUsed decimal.Decimal `json:"initial_expenses_used"`
}

// CapitalCheck is the advisory result of a capital availability check.
type CapitalCheck struct {
	IsValid       bool            `json:"is_valid"`
	Available     decimal.Decimal `json:"available"`
	Required      decimal.Decimal `json:"required"`
	Shortfall     decimal.Decimal `json:"shortfall"`
	CapitalNotSet bool            `json:"capital_not_set"`
	Warning       string          `json:"warning,omitempty"`
}

// Err returns the rejection for a failed check, nil otherwise.
func (c CapitalCheck) Err(projectID int64) error {
	if c.IsValid {
		return nil
	}
	return domain.NewInsufficientFunds(domain.ScopeCapital, projectID, c.Available, c.Required)
}

type InvestorReturn struct {
	AllocationID int64           `json:"allocation_id"`
	InvestorID   int64           `json:"investor_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type CapitalReturn struct {
	ProjectID        int64            `json:"project_id"`
	Requested        decimal.Decimal  `json:"requested"`
	Returned         decimal.Decimal  `json:"returned"`
	InvestorsUpdated int              `json:"investors_updated"`
	Returns          []InvestorReturn `json:"returns"`
	ActedBy          int64            `json:"acted_by"`
}

type PhaseSummary struct {
	PhaseID     int64           `json:"phase_id"`
	Name        string          `json:"name"`
	Allocation  decimal.Decimal `json:"allocation"`
	Actual      decimal.Decimal `json:"actual"`
	Committed   decimal.Decimal `json:"committed"`
	Available   decimal.Decimal `json:"available"`
	Utilization decimal.Decimal `json:"utilization_percentage"`
}

type Summary struct {
	ProjectID          int64           `json:"project_id"`
	Status             string          `json:"status"`
	BudgetTotal        decimal.Decimal `json:"budget_total"`
	AllocatedToPhases  decimal.Decimal `json:"allocated_to_phases"`
	UnallocatedBudget  decimal.Decimal `json:"unallocated_budget"`
	IndirectBudget     decimal.Decimal `json:"indirect_budget"`
	IndirectRemaining  decimal.Decimal `json:"indirect_remaining"`
	Finances           Snapshot        `json:"finances"`
	AvailableCapital   decimal.Decimal `json:"available_capital"`
	CapitalUtilization decimal.Decimal `json:"capital_utilization_percentage"`
	Phases             []PhaseSummary  `json:"phases"`
	LastRecalculatedAt *time.Time      `json:"last_recalculated_at,omitempty"`
}

type CheckCapitalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type AllocateCapitalRequest struct {
	InvestorID int64           `json:"investor_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type ReturnCapitalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
