package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReallocationType string

const (
	PhaseToPhase   ReallocationType = "phase_to_phase"
	ProjectToPhase ReallocationType = "project_to_phase"
	PhaseToProject ReallocationType = "phase_to_project"
)

type ReallocationStatus string

const (
	ReallocationPending   ReallocationStatus = "pending"
	ReallocationApproved  ReallocationStatus = "approved"
	ReallocationRejected  ReallocationStatus = "rejected"
	ReallocationExecuted  ReallocationStatus = "executed"
	ReallocationCancelled ReallocationStatus = "cancelled"
)

var reallocationTransitions = map[ReallocationStatus][]ReallocationStatus{
	ReallocationPending:  {ReallocationApproved, ReallocationRejected},
	ReallocationApproved: {ReallocationExecuted, ReallocationCancelled},
}

// CanTransition reports whether from -> to is an edge of the reallocation state machine.
func (from ReallocationStatus) CanTransition(to ReallocationStatus) bool {
	for _, s := range reallocationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BudgetReallocation moves budget (never capital) between a project and its phases.
type BudgetReallocation struct {
	ID               uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID        int64              `json:"project_id" gorm:"not null;index"`
	ReallocationType ReallocationType   `json:"reallocation_type" gorm:"type:varchar(24);not null"`
	FromPhaseID      *int64             `json:"from_phase_id,omitempty" gorm:"index"`
	ToPhaseID        *int64             `json:"to_phase_id,omitempty" gorm:"index"`
	Amount           decimal.Decimal    `json:"amount" gorm:"type:decimal(20,2);not null"`
	Reason           string             `json:"reason" gorm:"type:text;not null"`
	Status           ReallocationStatus `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`

	RequestedBy     int64      `json:"requested_by"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	RejectedBy      *int64     `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"type:text"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ExecutedAt      *time.Time `json:"executed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (BudgetReallocation) TableName() string {
	return "budget_reallocations"
}

func (r *BudgetReallocation) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
