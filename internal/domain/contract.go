package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"buildledger/internal/finance/calc"
)

type ContractKind string

const (
	ContractKindContract            ContractKind = "contract"
	ContractKindPurchaseOrder       ContractKind = "purchase_order"
	ContractKindProfessionalService ContractKind = "professional_service"
)

type ContractStatus string

const (
	ContractDraft      ContractStatus = "draft"
	ContractActive     ContractStatus = "active"
	ContractOnHold     ContractStatus = "on_hold"
	ContractCompleted  ContractStatus = "completed"
	ContractTerminated ContractStatus = "terminated"
	ContractCancelled  ContractStatus = "cancelled"
)

func (s ContractStatus) Valid() bool {
	switch s {
	case ContractDraft, ContractActive, ContractOnHold, ContractCompleted, ContractTerminated, ContractCancelled:
		return true
	}
	return false
}

// ReservesCapital reports whether a contract in this status holds a commitment.
func (s ContractStatus) ReservesCapital() bool {
	return s == ContractActive
}

// Contract is any commitment-bearing engagement: a works contract, a purchase order
// or a professional-service assignment.
type Contract struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	ProjectID     int64           `json:"project_id" gorm:"not null;index"`
	PhaseID       *int64          `json:"phase_id,omitempty" gorm:"index"`
	Kind          ContractKind    `json:"kind" gorm:"type:varchar(24);not null;default:contract"`
	Title         string          `json:"title" gorm:"type:varchar(255);not null"`
	Counterparty  string          `json:"counterparty" gorm:"type:varchar(255)"`
	ContractValue decimal.Decimal `json:"contract_value" gorm:"type:decimal(20,2);not null;default:0"`
	FeesPaid      decimal.Decimal `json:"fees_paid" gorm:"type:decimal(20,2);not null;default:0"`
	Status        ContractStatus  `json:"status" gorm:"type:varchar(16);not null;default:draft;index"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Contract) TableName() string {
	return "contracts"
}

// Commitment is the part of the contract value not yet paid out.
func (c *Contract) Commitment() decimal.Decimal {
	return calc.Commitment(c.ContractValue, c.FeesPaid)
}

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:  {ContractActive, ContractCancelled},
	ContractActive: {ContractOnHold, ContractCompleted, ContractTerminated, ContractCancelled},
	ContractOnHold: {ContractActive, ContractTerminated, ContractCancelled},
}

func (from ContractStatus) CanTransition(to ContractStatus) bool {
	for _, s := range contractTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AcceptsFees reports whether fees can still be paid against the contract.
func (s ContractStatus) AcceptsFees() bool {
	return s == ContractActive || s == ContractOnHold || s == ContractCompleted
}
