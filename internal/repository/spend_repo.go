package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"buildledger/internal/domain"
)

// SpendRepository covers the three spend sources: material requests, expenses and
// initial expenses.
type SpendRepository struct {
	db *gorm.DB
}

func NewSpendRepository(db *gorm.DB) *SpendRepository {
	return &SpendRepository{db: db}
}

func (r *SpendRepository) WithTx(tx *gorm.DB) *SpendRepository {
	return &SpendRepository{db: tx}
}

// Sources is a set of spend rows of one project.
type Sources struct {
	Materials       []domain.MaterialRequest
	Expenses        []domain.Expense
	InitialExpenses []domain.InitialExpense
}

// ProjectSources is the qualifying spend of a project, archived rows excluded.
func (r *SpendRepository) ProjectSources(ctx context.Context, projectID int64) (*Sources, error) {
	db := r.db.WithContext(ctx)
	var s Sources
	if err := db.Where("project_id = ? AND archived_at IS NULL AND status IN ?", projectID, domain.SpendMaterialStatuses).
		Order("id ASC").Find(&s.Materials).Error; err != nil {
		return nil, err
	}
	if err := db.Where("project_id = ? AND archived_at IS NULL AND status IN ?", projectID,
		[]domain.ExpenseStatus{domain.ExpenseApproved, domain.ExpensePaid}).
		Order("id ASC").Find(&s.Expenses).Error; err != nil {
		return nil, err
	}
	if err := db.Where("project_id = ? AND archived_at IS NULL AND status = ?", projectID, domain.InitialExpenseApproved).
		Order("id ASC").Find(&s.InitialExpenses).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ConsumedSources is the spend that consumed project capital: live rows plus rows
// archived together with their project or phase. Rows deleted on their own are
// left out.
func (r *SpendRepository) ConsumedSources(ctx context.Context, projectID int64) (*Sources, error) {
	db := r.db.WithContext(ctx)
	var s Sources
	if err := db.Where("project_id = ? AND status IN ? AND "+consumedClause("material_requests", true), projectID, domain.SpendMaterialStatuses).
		Order("id ASC").Find(&s.Materials).Error; err != nil {
		return nil, err
	}
	if err := db.Where("project_id = ? AND status IN ? AND "+consumedClause("expenses", true), projectID,
		[]domain.ExpenseStatus{domain.ExpenseApproved, domain.ExpensePaid}).
		Order("id ASC").Find(&s.Expenses).Error; err != nil {
		return nil, err
	}
	if err := db.Where("project_id = ? AND status = ? AND "+consumedClause("initial_expenses", false), projectID, domain.InitialExpenseApproved).
		Order("id ASC").Find(&s.InitialExpenses).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func consumedClause(table string, phaseBound bool) string {
	clause := "(" + table + ".archived_at IS NULL" +
		" OR " + table + ".archived_at = (SELECT projects.archived_at FROM projects WHERE projects.id = " + table + ".project_id)"
	if phaseBound {
		clause += " OR " + table + ".archived_at = (SELECT phases.archived_at FROM phases WHERE phases.id = " + table + ".phase_id)"
	}
	return clause + ")"
}

// PhaseSources is the qualifying direct spend of one phase. Indirect expenses never
// land on a phase.
func (r *SpendRepository) PhaseSources(ctx context.Context, phaseID int64) (*Sources, error) {
	db := r.db.WithContext(ctx)
	var s Sources
	if err := db.Where("phase_id = ? AND archived_at IS NULL AND status IN ?", phaseID, domain.SpendMaterialStatuses).
		Order("id ASC").Find(&s.Materials).Error; err != nil {
		return nil, err
	}
	if err := db.Where("phase_id = ? AND archived_at IS NULL AND is_indirect = ? AND status IN ?", phaseID, false,
		[]domain.ExpenseStatus{domain.ExpenseApproved, domain.ExpensePaid}).
		Order("id ASC").Find(&s.Expenses).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// HasSpending reports whether any qualifying spend is recorded, archived rows included.
func (r *SpendRepository) HasSpending(ctx context.Context, projectID int64) (bool, error) {
	db := r.db.WithContext(ctx)
	var n int64
	if err := db.Model(&domain.MaterialRequest{}).
		Where("project_id = ? AND status IN ?", projectID, domain.SpendMaterialStatuses).
		Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	if err := db.Model(&domain.Expense{}).
		Where("project_id = ? AND status IN ?", projectID, []domain.ExpenseStatus{domain.ExpenseApproved, domain.ExpensePaid}).
		Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	err := db.Model(&domain.InitialExpense{}).
		Where("project_id = ? AND status = ?", projectID, domain.InitialExpenseApproved).
		Count(&n).Error
	return n > 0, err
}

// Materials.

func (r *SpendRepository) CreateMaterial(ctx context.Context, m *domain.MaterialRequest) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *SpendRepository) GetMaterial(ctx context.Context, id int64) (*domain.MaterialRequest, error) {
	var m domain.MaterialRequest
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err, "material request", id)
	}
	return &m, nil
}

func (r *SpendRepository) GetMaterialForUpdate(ctx context.Context, id int64) (*domain.MaterialRequest, error) {
	var m domain.MaterialRequest
	if err := forUpdate(r.db.WithContext(ctx)).First(&m, id).Error; err != nil {
		return nil, notFound(err, "material request", id)
	}
	return &m, nil
}

// ListMaterials loads the given requests in id order.
func (r *SpendRepository) ListMaterials(ctx context.Context, ids []int64) ([]domain.MaterialRequest, error) {
	var out []domain.MaterialRequest
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SpendRepository) ListMaterialsForUpdate(ctx context.Context, ids []int64) ([]domain.MaterialRequest, error) {
	var out []domain.MaterialRequest
	err := forUpdate(r.db.WithContext(ctx)).Where("id IN ?", ids).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SpendRepository) ListMaterialsByProject(ctx context.Context, projectID int64) ([]domain.MaterialRequest, error) {
	var out []domain.MaterialRequest
	err := r.db.WithContext(ctx).Where("project_id = ? AND archived_at IS NULL", projectID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SpendRepository) SaveMaterial(ctx context.Context, m *domain.MaterialRequest) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Expenses.

func (r *SpendRepository) CreateExpense(ctx context.Context, e *domain.Expense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *SpendRepository) GetExpense(ctx context.Context, id int64) (*domain.Expense, error) {
	var e domain.Expense
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err, "expense", id)
	}
	return &e, nil
}

func (r *SpendRepository) GetExpenseForUpdate(ctx context.Context, id int64) (*domain.Expense, error) {
	var e domain.Expense
	if err := forUpdate(r.db.WithContext(ctx)).First(&e, id).Error; err != nil {
		return nil, notFound(err, "expense", id)
	}
	return &e, nil
}

func (r *SpendRepository) ListExpensesByProject(ctx context.Context, projectID int64) ([]domain.Expense, error) {
	var out []domain.Expense
	err := r.db.WithContext(ctx).Where("project_id = ? AND archived_at IS NULL", projectID).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *SpendRepository) SaveExpense(ctx context.Context, e *domain.Expense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// Initial expenses.

func (r *SpendRepository) CreateInitialExpense(ctx context.Context, e *domain.InitialExpense) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *SpendRepository) GetInitialExpenseForUpdate(ctx context.Context, id int64) (*domain.InitialExpense, error) {
	var e domain.InitialExpense
	if err := forUpdate(r.db.WithContext(ctx)).First(&e, id).Error; err != nil {
		return nil, notFound(err, "initial expense", id)
	}
	return &e, nil
}

func (r *SpendRepository) GetInitialExpense(ctx context.Context, id int64) (*domain.InitialExpense, error) {
	var e domain.InitialExpense
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, notFound(err, "initial expense", id)
	}
	return &e, nil
}

func (r *SpendRepository) SaveInitialExpense(ctx context.Context, e *domain.InitialExpense) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// Archive cascade.

// ArchiveByProject stamps every live spend row of the project.
func (r *SpendRepository) ArchiveByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	var total int64
	for _, model := range spendModels() {
		res := r.db.WithContext(ctx).Model(model).
			Where("project_id = ? AND archived_at IS NULL", projectID).
			Update("archived_at", at)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *SpendRepository) RestoreByProject(ctx context.Context, projectID int64, at time.Time) (int64, error) {
	var total int64
	for _, model := range spendModels() {
		res := r.db.WithContext(ctx).Model(model).
			Where("project_id = ? AND archived_at = ?", projectID, at).
			Update("archived_at", nil)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

// ArchiveByPhase stamps the phase-bound materials and expenses.
func (r *SpendRepository) ArchiveByPhase(ctx context.Context, phaseID int64, at time.Time) (int64, error) {
	var total int64
	for _, model := range []any{&domain.MaterialRequest{}, &domain.Expense{}} {
		res := r.db.WithContext(ctx).Model(model).
			Where("phase_id = ? AND archived_at IS NULL", phaseID).
			Update("archived_at", at)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func (r *SpendRepository) DeleteByProject(ctx context.Context, projectID int64) (int64, error) {
	var total int64
	for _, model := range spendModels() {
		res := r.db.WithContext(ctx).Where("project_id = ?", projectID).Delete(model)
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
	}
	return total, nil
}

func spendModels() []any {
	return []any{&domain.MaterialRequest{}, &domain.Expense{}, &domain.InitialExpense{}}
}
