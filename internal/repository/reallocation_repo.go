package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type ReallocationRepository struct {
	db *gorm.DB
}

func NewReallocationRepository(db *gorm.DB) *ReallocationRepository {
	return &ReallocationRepository{db: db}
}

func (r *ReallocationRepository) WithTx(tx *gorm.DB) *ReallocationRepository {
	return &ReallocationRepository{db: tx}
}

func (r *ReallocationRepository) Create(ctx context.Context, ra *domain.BudgetReallocation) error {
	return r.db.WithContext(ctx).Create(ra).Error
}

func (r *ReallocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetReallocation, error) {
	var ra domain.BudgetReallocation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ra).Error; err != nil {
		return nil, notFound(err, "reallocation", id)
	}
	return &ra, nil
}

func (r *ReallocationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.BudgetReallocation, error) {
	var ra domain.BudgetReallocation
	if err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&ra).Error; err != nil {
		return nil, notFound(err, "reallocation", id)
	}
	return &ra, nil
}

func (r *ReallocationRepository) Save(ctx context.Context, ra *domain.BudgetReallocation) error {
	return r.db.WithContext(ctx).Save(ra).Error
}

// List returns reallocations of a project, newest first. An empty status matches all.
func (r *ReallocationRepository) List(ctx context.Context, projectID int64, status domain.ReallocationStatus) ([]domain.BudgetReallocation, error) {
	var out []domain.BudgetReallocation
	q := r.db.WithContext(ctx).Where("project_id = ?", projectID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *ReallocationRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.BudgetReallocation{})
	return res.RowsAffected, res.Error
}
