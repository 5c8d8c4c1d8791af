package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecalcTaskStatus string

const (
	RecalcTaskPending RecalcTaskStatus = "pending"
	RecalcTaskDone    RecalcTaskStatus = "done"
	RecalcTaskFailed  RecalcTaskStatus = "failed"
)

// RecalcTask is a durable request to refresh derived totals, written in the same
// transaction as the mutation that made them stale.
type RecalcTask struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID     int64            `json:"project_id" gorm:"not null;index"`
	PhaseIDs      string           `json:"phase_ids" gorm:"type:text"`
	Reason        string           `json:"reason" gorm:"type:varchar(64);not null"`
	Status        RecalcTaskStatus `json:"status" gorm:"type:varchar(16);not null;default:pending;index"`
	Attempts      int              `json:"attempts" gorm:"not null;default:0"`
	LastError     string           `json:"last_error,omitempty" gorm:"type:text"`
	NextAttemptAt time.Time        `json:"next_attempt_at" gorm:"index"`
	CorrelationID string           `json:"correlation_id" gorm:"type:varchar(64);index"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (RecalcTask) TableName() string {
	return "recalc_tasks"
}

func (t *RecalcTask) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ReconciliationReport records a divergence between an incrementally maintained
// counter and the value recomputed from its source records.
type ReconciliationReport struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID     int64           `json:"project_id" gorm:"not null;index"`
	CheckType     string          `json:"check_type" gorm:"type:varchar(50);not null;index"`
	EntityType    string          `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID      int64           `json:"entity_id" gorm:"not null"`
	Stored        decimal.Decimal `json:"stored" gorm:"type:decimal(20,2);not null;default:0"`
	Recomputed    decimal.Decimal `json:"recomputed" gorm:"type:decimal(20,2);not null;default:0"`
	Drift         decimal.Decimal `json:"drift" gorm:"type:decimal(20,2);not null;default:0"`
	Repaired      bool            `json:"repaired"`
	Details       string          `json:"details" gorm:"type:text"`
	CorrelationID string          `json:"correlation_id" gorm:"type:varchar(64);index"`
	CreatedAt     time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (ReconciliationReport) TableName() string {
	return "reconciliation_reports"
}

func (r *ReconciliationReport) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
