package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type RecalcTaskRepository struct {
	db *gorm.DB
}

func NewRecalcTaskRepository(db *gorm.DB) *RecalcTaskRepository {
	return &RecalcTaskRepository{db: db}
}

func (r *RecalcTaskRepository) WithTx(tx *gorm.DB) *RecalcTaskRepository {
	return &RecalcTaskRepository{db: tx}
}

func (r *RecalcTaskRepository) Create(ctx context.Context, t *domain.RecalcTask) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RecalcTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecalcTask, error) {
	var t domain.RecalcTask
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err, "recalc task", id)
	}
	return &t, nil
}

// ListDue returns pending tasks whose next attempt is due, oldest first.
func (r *RecalcTaskRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.RecalcTask, error) {
	var out []domain.RecalcTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", domain.RecalcTaskPending, now).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *RecalcTaskRepository) MarkDone(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.RecalcTask{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": domain.RecalcTaskDone, "last_error": ""}).Error
}

// ListPendingForProject returns pending tasks of the project written no later than
// upTo. A run that starts after them covers their work.
func (r *RecalcTaskRepository) ListPendingForProject(ctx context.Context, projectID int64, upTo time.Time) ([]domain.RecalcTask, error) {
	var out []domain.RecalcTask
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ? AND created_at <= ?", projectID, domain.RecalcTaskPending, upTo).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *RecalcTaskRepository) MarkDoneIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&domain.RecalcTask{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": domain.RecalcTaskDone, "last_error": ""}).Error
}

func (r *RecalcTaskRepository) RecordFailure(ctx context.Context, t *domain.RecalcTask) error {
	return r.db.WithContext(ctx).Model(&domain.RecalcTask{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"status":          t.Status,
			"attempts":        t.Attempts,
			"last_error":      t.LastError,
			"next_attempt_at": t.NextAttemptAt,
		}).Error
}

func (r *RecalcTaskRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RecalcTask{}).
		Where("status = ?", domain.RecalcTaskPending).
		Count(&n).Error
	return n, err
}

// DeleteByProject drops the outbox rows of a deleted project; there is nothing
// left for them to refresh.
func (r *RecalcTaskRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.RecalcTask{})
	return res.RowsAffected, res.Error
}
