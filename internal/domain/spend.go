package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MaterialStatus string

const (
	MaterialPending   MaterialStatus = "pending"
	MaterialApproved  MaterialStatus = "approved"
	MaterialRejected  MaterialStatus = "rejected"
	MaterialOrdered   MaterialStatus = "ordered"
	MaterialReceived  MaterialStatus = "received"
	MaterialPaid      MaterialStatus = "paid"
	MaterialCancelled MaterialStatus = "cancelled"
)

// SpendMaterialStatuses are the statuses whose cost counts as actual spending.
var SpendMaterialStatuses = []MaterialStatus{MaterialApproved, MaterialOrdered, MaterialReceived, MaterialPaid}

type MaterialRequest struct {
	ID          int64           `json:"id" gorm:"primaryKey"`
	ProjectID   int64           `json:"project_id" gorm:"not null;index"`
	PhaseID     *int64          `json:"phase_id,omitempty" gorm:"index"`
	Description string          `json:"description" gorm:"type:text"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:decimal(20,4);not null;default:0"`
	UnitCost    decimal.Decimal `json:"unit_cost" gorm:"type:decimal(20,2);not null;default:0"`
	TotalCost   decimal.Decimal `json:"total_cost" gorm:"type:decimal(20,2);not null;default:0"`
	Status      MaterialStatus  `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`
	BatchID     *uuid.UUID      `json:"batch_id,omitempty" gorm:"type:uuid;index"`

	RequestedBy int64      `json:"requested_by"`
	ApprovedBy  *int64     `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	ReceivedAt  *time.Time `json:"received_at,omitempty"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (MaterialRequest) TableName() string {
	return "material_requests"
}

func (m *MaterialRequest) CountsAsSpend() bool {
	return m.ArchivedAt == nil && m.SpendStatus()
}

// SpendStatus reports whether the status alone qualifies the request as spend.
func (m *MaterialRequest) SpendStatus() bool {
	for _, s := range SpendMaterialStatuses {
		if m.Status == s {
			return true
		}
	}
	return false
}

type ExpenseCategory string

const (
	ExpenseMaterials ExpenseCategory = "materials"
	ExpenseLabour    ExpenseCategory = "labour"
	ExpenseEquipment ExpenseCategory = "equipment"
	ExpenseOther     ExpenseCategory = "other"
)

type LabourType string

const (
	LabourSkilled     LabourType = "skilled"
	LabourUnskilled   LabourType = "unskilled"
	LabourSupervisory LabourType = "supervisory"
	LabourSpecialized LabourType = "specialized"
)

type IndirectCategory string

const (
	IndirectUtilities    IndirectCategory = "utilities"
	IndirectSiteOverhead IndirectCategory = "site_overhead"
	IndirectTransport    IndirectCategory = "transport"
	IndirectSafety       IndirectCategory = "safety"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
	ExpensePaid     ExpenseStatus = "paid"
)

// Expense is a single cost entry. Indirect expenses belong to the project only.
type Expense struct {
	ID               int64            `json:"id" gorm:"primaryKey"`
	ProjectID        int64            `json:"project_id" gorm:"not null;index"`
	PhaseID          *int64           `json:"phase_id,omitempty" gorm:"index"`
	ContractID       *int64           `json:"contract_id,omitempty" gorm:"index"`
	Category         ExpenseCategory  `json:"category" gorm:"type:varchar(16);not null;default:other"`
	LabourType       LabourType       `json:"labour_type,omitempty" gorm:"type:varchar(16)"`
	IsIndirect       bool             `json:"is_indirect" gorm:"not null;default:false"`
	IndirectCategory IndirectCategory `json:"indirect_category,omitempty" gorm:"type:varchar(24)"`
	Description      string           `json:"description" gorm:"type:text"`
	Amount           decimal.Decimal  `json:"amount" gorm:"type:decimal(20,2);not null;default:0"`
	Status           ExpenseStatus    `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`

	SubmittedBy     int64      `json:"submitted_by"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	RejectedBy      *int64     `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"type:text"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) CountsAsSpend() bool {
	return e.ArchivedAt == nil && e.SpendStatus()
}

func (e *Expense) SpendStatus() bool {
	return e.Status == ExpenseApproved || e.Status == ExpensePaid
}

type InitialExpenseStatus string

const (
	InitialExpensePending  InitialExpenseStatus = "pending"
	InitialExpenseApproved InitialExpenseStatus = "approved"
	InitialExpenseRejected InitialExpenseStatus = "rejected"
)

// InitialExpense is a pre-construction cost (land, permits, design) charged to the project.
type InitialExpense struct {
	ID          int64                `json:"id" gorm:"primaryKey"`
	ProjectID   int64                `json:"project_id" gorm:"not null;index"`
	Category    string               `json:"category" gorm:"type:varchar(32);not null"`
	Description string               `json:"description" gorm:"type:text"`
	Amount      decimal.Decimal      `json:"amount" gorm:"type:decimal(20,2);not null;default:0"`
	Status      InitialExpenseStatus `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`

	SubmittedBy     int64      `json:"submitted_by"`
	ApprovedBy      *int64     `json:"approved_by,omitempty"`
	RejectedBy      *int64     `json:"rejected_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty" gorm:"type:text"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (InitialExpense) TableName() string {
	return "initial_expenses"
}

func (e *InitialExpense) CountsAsSpend() bool {
	return e.ArchivedAt == nil && e.SpendStatus()
}

func (e *InitialExpense) SpendStatus() bool {
	return e.Status == InitialExpenseApproved
}

var materialTransitions = map[MaterialStatus][]MaterialStatus{
	MaterialPending:  {MaterialApproved, MaterialRejected, MaterialCancelled},
	MaterialApproved: {MaterialOrdered, MaterialReceived, MaterialCancelled},
	MaterialOrdered:  {MaterialReceived, MaterialCancelled},
	MaterialReceived: {MaterialPaid},
}

func (from MaterialStatus) CanTransition(to MaterialStatus) bool {
	for _, s := range materialTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var expenseTransitions = map[ExpenseStatus][]ExpenseStatus{
	ExpensePending:  {ExpenseApproved, ExpenseRejected},
	ExpenseApproved: {ExpensePaid},
}

func (from ExpenseStatus) CanTransition(to ExpenseStatus) bool {
	for _, s := range expenseTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Counts reports whether an entry in this status is actual spending.
func (s ExpenseStatus) Counts() bool {
	return s == ExpenseApproved || s == ExpensePaid
}

func (from InitialExpenseStatus) CanTransition(to InitialExpenseStatus) bool {
	return from == InitialExpensePending && (to == InitialExpenseApproved || to == InitialExpenseRejected)
}
