package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a copy bound to tx.
func (r *ProjectRepository) WithTx(tx *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, p *domain.Project) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetByID returns the project whether or not it is archived.
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

func (r *ProjectRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	if err := forUpdate(r.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return nil, notFound(err, "project", id)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	var out []domain.Project
	q := r.db.WithContext(ctx).Order("id ASC")
	if !includeArchived {
		q = q.Where("archived_at IS NULL")
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListIDs returns ids of live projects, used by the background jobs.
func (r *ProjectRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("archived_at IS NULL").
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UpdateBudget writes the budget columns only.
func (r *ProjectRepository) UpdateBudget(ctx context.Context, p *domain.Project) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"budget_total":       p.BudgetTotal,
			"budget_materials":   p.BudgetMaterials,
			"budget_labour":      p.BudgetLabour,
			"budget_contingency": p.BudgetContingency,
			"indirect_budget":    p.IndirectBudget,
		}).Error
}

func (r *ProjectRepository) UpdateStatus(ctx context.Context, id int64, status domain.ProjectStatus) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *ProjectRepository) MarkArchived(ctx context.Context, p *domain.Project, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":          domain.ProjectArchived,
			"previous_status": p.Status,
			"archived_at":     at,
		}).Error
}

func (r *ProjectRepository) MarkRestored(ctx context.Context, p *domain.Project) error {
	status := p.PreviousStatus
	if !status.Valid() || status == domain.ProjectArchived {
		status = domain.ProjectActive
	}
	return r.db.WithContext(ctx).Model(&domain.Project{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"status":          status,
			"previous_status": "",
			"archived_at":     nil,
		}).Error
}

func (r *ProjectRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Project{}, id).Error
}
