package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"buildledger/internal/domain"
)

type FinanceRepository struct {
	db *gorm.DB
}

func NewFinanceRepository(db *gorm.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

func (r *FinanceRepository) WithTx(tx *gorm.DB) *FinanceRepository {
	return &FinanceRepository{db: tx}
}

// Get returns the aggregate row or a wrapped ErrNotFound when the project has
// never been recalculated.
func (r *FinanceRepository) Get(ctx context.Context, projectID int64) (*domain.ProjectFinances, error) {
	var f domain.ProjectFinances
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&f).Error
	if err != nil {
		return nil, notFound(err, "project finances", projectID)
	}
	return &f, nil
}

// GetOrCreateForUpdate locks the aggregate row, creating an empty one first when
// none exists.
func (r *FinanceRepository) GetOrCreateForUpdate(ctx context.Context, projectID int64) (*domain.ProjectFinances, error) {
	db := r.db.WithContext(ctx)
	var f domain.ProjectFinances
	err := forUpdate(db).Where("project_id = ?", projectID).First(&f).Error
	if err == nil {
		return &f, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.ProjectFinances{ProjectID: projectID}).Error; err != nil {
		return nil, err
	}
	if err := forUpdate(db).Where("project_id = ?", projectID).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// Upsert writes the recalculated columns. committed_total is owned by the
// commitment tracker and is never overwritten here.
func (r *FinanceRepository) Upsert(ctx context.Context, f *domain.ProjectFinances) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_invested",
			"total_used",
			"capital_balance",
			"indirect_used",
			"initial_expenses_used",
			"last_recalculated_at",
			"updated_at",
		}),
	}).Create(f).Error
}

func (r *FinanceRepository) SetCommitted(ctx context.Context, projectID int64, v decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&domain.ProjectFinances{}).
		Where("project_id = ?", projectID).
		Update("committed_total", v).Error
}

func (r *FinanceRepository) DeleteByProject(ctx context.Context, projectID int64) error {
	return r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.ProjectFinances{}).Error
}
