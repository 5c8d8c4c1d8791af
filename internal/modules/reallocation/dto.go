package reallocation

import (
	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
)

type CreateRequest struct {
	ReallocationType domain.ReallocationType `json:"reallocation_type" binding:"required"`
	FromPhaseID      *int64                  `json:"from_phase_id"`
	ToPhaseID        *int64                  `json:"to_phase_id"`
	Amount           decimal.Decimal         `json:"amount"`
	Reason           string                  `json:"reason"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type ExecuteResult struct {
	Reallocation *domain.BudgetReallocation `json:"reallocation"`
	Warnings     []string                   `json:"warnings,omitempty"`
}
