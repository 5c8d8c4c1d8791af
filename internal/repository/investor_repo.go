package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

type InvestorRepository struct {
	db *gorm.DB
}

func NewInvestorRepository(db *gorm.DB) *InvestorRepository {
	return &InvestorRepository{db: db}
}

func (r *InvestorRepository) WithTx(tx *gorm.DB) *InvestorRepository {
	return &InvestorRepository{db: tx}
}

func (r *InvestorRepository) Create(ctx context.Context, inv *domain.Investor) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *InvestorRepository) GetByID(ctx context.Context, id int64) (*domain.Investor, error) {
	var inv domain.Investor
	err := r.db.WithContext(ctx).Preload("Allocations").First(&inv, id).Error
	if err != nil {
		return nil, notFound(err, "investor", id)
	}
	return &inv, nil
}

func (r *InvestorRepository) CreateAllocation(ctx context.Context, a *domain.InvestorAllocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListActiveAllocations returns active allocations of a project in id order.
func (r *InvestorRepository) ListActiveAllocations(ctx context.Context, projectID int64) ([]domain.InvestorAllocation, error) {
	var out []domain.InvestorAllocation
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, domain.AllocationActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *InvestorRepository) ListActiveAllocationsForUpdate(ctx context.Context, projectID int64) ([]domain.InvestorAllocation, error) {
	var out []domain.InvestorAllocation
	err := forUpdate(r.db.WithContext(ctx)).
		Where("project_id = ? AND status = ?", projectID, domain.AllocationActive).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// ApplyReturn lowers the allocation by returned and marks it returned once empty.
func (r *InvestorRepository) ApplyReturn(ctx context.Context, a *domain.InvestorAllocation, returned decimal.Decimal) error {
	remaining := a.Amount.Sub(returned)
	status := domain.AllocationActive
	if !remaining.IsPositive() {
		remaining = decimal.Zero
		status = domain.AllocationReturned
	}
	return r.db.WithContext(ctx).Model(&domain.InvestorAllocation{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"amount":          remaining,
			"returned_amount": a.ReturnedAmount.Add(returned),
			"status":          status,
		}).Error
}

func (r *InvestorRepository) DeleteAllocationsByProject(ctx context.Context, projectID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(&domain.InvestorAllocation{})
	return res.RowsAffected, res.Error
}
