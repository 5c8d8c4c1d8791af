package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) WithTx(tx *gorm.DB) *ContractRepository {
	return &ContractRepository{db: tx}
}

func (r *ContractRepository) Create(ctx context.Context, c *domain.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	var c domain.Contract
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, notFound(err, "contract", id)
	}
	return &c, nil
}

func (r *ContractRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Contract, error) {
	var c domain.Contract
	if err := forUpdate(r.db.WithContext(ctx)).First(&c, id).Error; err != nil {
		return nil, notFound(err, "contract", id)
	}
	return &c, nil
}

func (r *ContractRepository) Save(ctx context.Context, c *domain.Contract) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *ContractRepository) ListByProject(ctx context.Context, projectID int64) ([]domain.Contract, error) {
	var out []domain.Contract
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id ASC").Find(&out).Error
	return out, err
}

// ListActive returns the contracts currently reserving capital. Archiving does not
// release a commitment, so archived rows are included.
func (r *ContractRepository) ListActive(ctx context.Context, projectID int64) ([]domain.Contract, error) {
	var out []domain.Contract
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, domain.ContractActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *ContractRepository) ArchiveByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("project_id = ? AND archived_at IS NULL", projectID).
		Update("archived_at", at)
	return res.RowsAffected, res.Error
}

func (r *ContractRepository) RestoreByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Contract{}).
		Where("project_id = ? AND archived_at = ?", projectID, at).
		Update("archived_at", nil)
	return res.RowsAffected, res.Error
}

func (r *ContractRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.Contract{})
	return res.RowsAffected, res.Error
}
