package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Investor struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	UserID    *int64    `json:"user_id,omitempty" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Allocations []InvestorAllocation `json:"allocations,omitempty" gorm:"foreignKey:InvestorID"`
}

func (Investor) TableName() string {
	return "investors"
}

type AllocationStatus string

const (
	AllocationActive   AllocationStatus = "active"
	AllocationReturned AllocationStatus = "returned"
)

// InvestorAllocation binds invested capital of one investor to one project.
type InvestorAllocation struct {
	ID             int64            `json:"id" gorm:"primaryKey"`
	InvestorID     int64            `json:"investor_id" gorm:"not null;index"`
	ProjectID      int64            `json:"project_id" gorm:"not null;index"`
	Amount         decimal.Decimal  `json:"amount" gorm:"type:decimal(20,2);not null;default:0"`
	ReturnedAmount decimal.Decimal  `json:"returned_amount" gorm:"type:decimal(20,2);not null;default:0"`
	Status         AllocationStatus `json:"status" gorm:"type:varchar(16);not null;default:active;index"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (InvestorAllocation) TableName() string {
	return "investor_allocations"
}
