package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type PhaseRepository struct {
	db *gorm.DB
}

func NewPhaseRepository(db *gorm.DB) *PhaseRepository {
	return &PhaseRepository{db: db}
}

func (r *PhaseRepository) WithTx(tx *gorm.DB) *PhaseRepository {
	return &PhaseRepository{db: tx}
}

func (r *PhaseRepository) Create(ctx context.Context, p *domain.Phase) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PhaseRepository) GetByID(ctx context.Context, id int64) (*domain.Phase, error) {
	var p domain.Phase
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "phase", id)
	}
	return &p, nil
}

func (r *PhaseRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Phase, error) {
	var p domain.Phase
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return nil, notFound(err, "phase", id)
	}
	return &p, nil
}

// ListByProject returns the live phases of a project in sequence order.
func (r *PhaseRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Phase, error) {
	var out []domain.Phase
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND archived_at IS NULL", projectID).
		Order("sequence ASC, id ASC").
		Find(&out).Error
	return out, err
}

// ListForUpdate locks every live phase of a project, in id order so concurrent
// lockers cannot deadlock on each other.
func (r *PhaseRepository) ListForUpdate(ctx context.Context, projectID int64) ([]domain.Phase, error) {
	var out []domain.Phase
	err := forUpdate(r.db.WithContext(ctx)).
		Where("project_id = ? AND archived_at IS NULL", projectID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// SumAllocations totals allocation_total over live phases.
func (r *PhaseRepository) SumAllocations(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	phases, err := r.ListByProject(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range phases {
		total = total.Add(p.Allocation.Total)
	}
	return total, nil
}

func (r *PhaseRepository) SetAllocationTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ?", id).
		Update("allocation_total", total).Error
}

func (r *PhaseRepository) UpdateAllocation(ctx context.Context, id int64, b domain.PhaseBudget) error {
	return r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ?", id).
		Updates(budgetColumns("allocation_", b)).Error
}

func (r *PhaseRepository) UpdateActual(ctx context.Context, id int64, b domain.PhaseBudget) error {
	return r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ?", id).
		Updates(budgetColumns("actual_", b)).Error
}

func (r *PhaseRepository) SetCommitted(ctx context.Context, id int64, v decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ?", id).
		Update("committed_total", v).Error
}

func (r *PhaseRepository) Archive(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("id = ? AND archived_at IS NULL", id).
		Update("archived_at", at).Error
}

func (r *PhaseRepository) ArchiveByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("project_id = ? AND archived_at IS NULL", projectID).
		Update("archived_at", at)
	return res.RowsAffected, res.Error
}

func (r *PhaseRepository) RestoreByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("project_id = ? AND archived_at = ?", projectID, at).
		Update("archived_at", nil)
	return res.RowsAffected, res.Error
}

// IDsArchivedAt returns the phases stamped by one archive operation.
func (r *PhaseRepository) IDsArchivedAt(ctx context.Context, projectID int64, at time.Time) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Phase{}).
		Where("project_id = ? AND archived_at = ?", projectID, at).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *PhaseRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.Phase{})
	return res.RowsAffected, res.Error
}

func budgetColumns(prefix string, b domain.PhaseBudget) map[string]any {
	return map[string]any{
		prefix + "total":              b.Total,
		prefix + "materials":          b.Materials,
		prefix + "labour_skilled":     b.LabourSkilled,
		prefix + "labour_unskilled":   b.LabourUnskilled,
		prefix + "labour_supervisory": b.LabourSupervisory,
		prefix + "labour_specialized": b.LabourSpecialized,
		prefix + "equipment":          b.Equipment,
		prefix + "other":              b.Other,
	}
}
