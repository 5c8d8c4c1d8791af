package coordinator

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
	"buildledger/internal/modules/ledger"
)

type ExpenseResult struct {
	Expense  *domain.Expense `json:"expense"`
	Warnings []string        `json:"warnings,omitempty"`
}

type InitialExpenseResult struct {
	InitialExpense *domain.InitialExpense `json:"initial_expense"`
	Warnings       []string               `json:"warnings,omitempty"`
}

type MaterialResult struct {
	Material *domain.MaterialRequest `json:"material"`
	Warnings []string                `json:"warnings,omitempty"`
}

type BatchResult struct {
	BatchID   uuid.UUID                `json:"batch_id"`
	Total     decimal.Decimal          `json:"total"`
	Materials []domain.MaterialRequest `json:"materials"`
	Warnings  []string                 `json:"warnings,omitempty"`
}

type PhaseArchiveResult struct {
	PhaseID    int64     `json:"phase_id"`
	ArchivedAt time.Time `json:"archived_at"`
	Spend      int64     `json:"spend_archived"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// ArchiveResult counts the rows one archive or restore touched.
type ArchiveResult struct {
	ProjectID  int64     `json:"project_id"`
	ArchivedAt time.Time `json:"archived_at"`
	Phases     int64     `json:"phases"`
	Spend      int64     `json:"spend"`
	Contracts  int64     `json:"contracts"`
	Warnings   []string  `json:"warnings,omitempty"`
}

type DeleteResult struct {
	ProjectID     int64                 `json:"project_id"`
	CapitalReturn *ledger.CapitalReturn `json:"capital_return,omitempty"`
	Deleted       map[string]int64      `json:"deleted"`
	Warnings      []string              `json:"warnings,omitempty"`
}

type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type BulkApproveRequest struct {
	MaterialIDs []int64 `json:"material_ids" binding:"required,min=1"`
}

type UpdateAmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
