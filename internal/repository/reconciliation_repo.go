package repository

import (
	"context"

	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type ReconciliationRepository struct {
	db *gorm.DB
}

func NewReconciliationRepository(db *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) WithTx(tx *gorm.DB) *ReconciliationRepository {
	return &ReconciliationRepository{db: tx}
}

func (r *ReconciliationRepository) Create(ctx context.Context, rep *domain.ReconciliationReport) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *ReconciliationRepository) ListByProject(ctx context.Context, projectID int64, limit int) ([]domain.ReconciliationReport, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.ReconciliationReport
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
