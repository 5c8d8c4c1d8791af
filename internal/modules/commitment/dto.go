package commitment

import (
	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
)

type Direction string

const (
	Add      Direction = "add"
	Subtract Direction = "subtract"
)

func (d Direction) Valid() bool {
	return d == Add || d == Subtract
}

// Adjustment reports one change to the committed counters. Drifted is set when a
// subtract would have taken a counter below zero and was floored instead.
type Adjustment struct {
	ProjectID    int64           `json:"project_id"`
	PhaseID      *int64          `json:"phase_id,omitempty"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Before       decimal.Decimal `json:"before"`
	After        decimal.Decimal `json:"after"`
	PhaseBefore  decimal.Decimal `json:"phase_before"`
	PhaseAfter   decimal.Decimal `json:"phase_after"`
	Drifted      bool            `json:"drifted"`
	PhaseDrifted bool            `json:"phase_drifted"`
}

type ContractResult struct {
	Contract   *domain.Contract `json:"contract"`
	Adjustment *Adjustment      `json:"adjustment,omitempty"`
	Expense    *domain.Expense  `json:"expense,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
}

type ReconcileResult struct {
	ProjectID int64                         `json:"project_id"`
	Checked   int                           `json:"checked"`
	Drifts    []domain.ReconciliationReport `json:"drifts"`
}

type TransitionRequest struct {
	Status domain.ContractStatus `json:"status" binding:"required"`
}

type UpdateValueRequest struct {
	ContractValue decimal.Decimal `json:"contract_value"`
}

type FeePaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
