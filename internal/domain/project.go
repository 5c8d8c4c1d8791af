package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectPaused    ProjectStatus = "paused"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectPaused, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

// Project is a construction or investment effort. Budget is a planning ceiling,
// capital lives in ProjectFinances.
type Project struct {
	ID             int64         `json:"id" gorm:"primaryKey"`
	Name           string        `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID        int64         `json:"owner_id" gorm:"not null;index"`
	Status         ProjectStatus `json:"status" gorm:"type:varchar(16);not null;default:planning;index"`
	PreviousStatus ProjectStatus `json:"-" gorm:"type:varchar(16)"`

	BudgetTotal       decimal.Decimal `json:"budget_total" gorm:"type:decimal(20,2);not null;default:0"`
	BudgetMaterials   decimal.Decimal `json:"budget_materials" gorm:"type:decimal(20,2);not null;default:0"`
	BudgetLabour      decimal.Decimal `json:"budget_labour" gorm:"type:decimal(20,2);not null;default:0"`
	BudgetContingency decimal.Decimal `json:"budget_contingency" gorm:"type:decimal(20,2);not null;default:0"`
	// IndirectBudget caps project-level overhead that never lands on a phase.
	IndirectBudget decimal.Decimal `json:"indirect_budget" gorm:"type:decimal(20,2);not null;default:0"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) IsArchived() bool {
	return p.ArchivedAt != nil
}

// PhaseBudget is the category split shared by a phase's allocation and its actual spending.
type PhaseBudget struct {
	Total             decimal.Decimal `json:"total" gorm:"type:decimal(20,2);not null;default:0"`
	Materials         decimal.Decimal `json:"materials" gorm:"type:decimal(20,2);not null;default:0"`
	LabourSkilled     decimal.Decimal `json:"labour_skilled" gorm:"type:decimal(20,2);not null;default:0"`
	LabourUnskilled   decimal.Decimal `json:"labour_unskilled" gorm:"type:decimal(20,2);not null;default:0"`
	LabourSupervisory decimal.Decimal `json:"labour_supervisory" gorm:"type:decimal(20,2);not null;default:0"`
	LabourSpecialized decimal.Decimal `json:"labour_specialized" gorm:"type:decimal(20,2);not null;default:0"`
	Equipment         decimal.Decimal `json:"equipment" gorm:"type:decimal(20,2);not null;default:0"`
	Other             decimal.Decimal `json:"other" gorm:"type:decimal(20,2);not null;default:0"`
}

func (b PhaseBudget) Labour() decimal.Decimal {
	return b.LabourSkilled.Add(b.LabourUnskilled).Add(b.LabourSupervisory).Add(b.LabourSpecialized)
}

// Categories is the sum of the category split, which may be less than Total.
func (b PhaseBudget) Categories() decimal.Decimal {
	return b.Materials.Add(b.Labour()).Add(b.Equipment).Add(b.Other)
}

// FitCategories scales the category split down, rounding each category down to
// cents, so it no longer exceeds Total. A split that already fits is unchanged.
func (b PhaseBudget) FitCategories() PhaseBudget {
	split := b.Categories()
	if !split.GreaterThan(b.Total) {
		return b
	}
	if !b.Total.IsPositive() {
		return PhaseBudget{
			Total: b.Total, Materials: decimal.Zero, LabourSkilled: decimal.Zero, LabourUnskilled: decimal.Zero,
			LabourSupervisory: decimal.Zero, LabourSpecialized: decimal.Zero, Equipment: decimal.Zero, Other: decimal.Zero,
		}
	}
	scale := func(v decimal.Decimal) decimal.Decimal {
		return v.Mul(b.Total).Div(split).Truncate(2)
	}
	return PhaseBudget{
		Total:             b.Total,
		Materials:         scale(b.Materials),
		LabourSkilled:     scale(b.LabourSkilled),
		LabourUnskilled:   scale(b.LabourUnskilled),
		LabourSupervisory: scale(b.LabourSupervisory),
		LabourSpecialized: scale(b.LabourSpecialized),
		Equipment:         scale(b.Equipment),
		Other:             scale(b.Other),
	}
}

// Phase is a sub-scope of a project with its own allocation.
type Phase struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	ProjectID int64  `json:"project_id" gorm:"not null;index"`
	Name      string `json:"name" gorm:"type:varchar(255);not null"`
	Sequence  int    `json:"sequence" gorm:"not null;default:0"`

	Allocation PhaseBudget `json:"budget_allocation" gorm:"embedded;embeddedPrefix:allocation_"`
	Actual     PhaseBudget `json:"actual_spending" gorm:"embedded;embeddedPrefix:actual_"`

	CommittedTotal decimal.Decimal `json:"committed" gorm:"type:decimal(20,2);not null;default:0"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" gorm:"index"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Phase) TableName() string {
	return "phases"
}

// ProjectFinances is the per-project aggregate owned by the recalculation cascade.
type ProjectFinances struct {
	ID        int64 `json:"-" gorm:"primaryKey"`
	ProjectID int64 `json:"project_id" gorm:"not null;uniqueIndex"`

	TotalInvested       decimal.Decimal `json:"total_invested" gorm:"type:decimal(20,2);not null;default:0"`
	TotalUsed           decimal.Decimal `json:"total_used" gorm:"type:decimal(20,2);not null;default:0"`
	CapitalBalance      decimal.Decimal `json:"capital_balance" gorm:"type:decimal(20,2);not null;default:0"`
	CommittedTotal      decimal.Decimal `json:"committed_total" gorm:"type:decimal(20,2);not null;default:0"`
	IndirectUsed        decimal.Decimal `json:"indirect_used" gorm:"type:decimal(20,2);not null;default:0"`
	InitialExpensesUsed decimal.Decimal `json:"initial_expenses_used" gorm:"type:decimal(20,2);not null;default:0"`

	LastRecalculatedAt *time.Time `json:"last_recalculated_at,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (ProjectFinances) TableName() string {
	return "project_finances"
}
