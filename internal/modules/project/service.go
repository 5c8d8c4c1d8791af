package project

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/pkg/moneyfmt"
	"buildledger/internal/pkg/validator"
	"buildledger/internal/repository"
)

// Service owns the setup records the financial operations act on: projects,
// phases, spend entries, contracts and investors. New spend is always created
// pending and only reaches the ledger through an approval.
type Service struct {
	uow       *database.Transactor
	projects  *repository.ProjectRepository
	phases    *repository.PhaseRepository
	spend     *repository.SpendRepository
	contracts *repository.ContractRepository
	finances  *repository.FinanceRepository
	investors *repository.InvestorRepository
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(uow *database.Transactor, log logrus.FieldLogger) *Service {
	db := uow.DB()
	return &Service{
		uow:       uow,
		projects:  repository.NewProjectRepository(db),
		phases:    repository.NewPhaseRepository(db),
		spend:     repository.NewSpendRepository(db),
		contracts: repository.NewContractRepository(db),
		finances:  repository.NewFinanceRepository(db),
		investors: repository.NewInvestorRepository(db),
		log:       log.WithField("component", "project"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// validate runs the struct tags and reports the first failing field.
func validate(req any) error {
	errs := validator.Validate(req)
	if len(errs) == 0 {
		return nil
	}
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return domain.NewValidationError(fields[0], "failed %q check", errs[fields[0]])
}

func (s *Service) CreateProject(ctx context.Context, ownerID int64, req CreateProjectRequest) (*ProjectResult, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = domain.ProjectPlanning
	}
	p := &domain.Project{
		Name:              req.Name,
		OwnerID:           ownerID,
		Status:            status,
		BudgetTotal:       calc.Round2(req.BudgetTotal),
		BudgetMaterials:   calc.Round2(req.BudgetMaterials),
		BudgetLabour:      calc.Round2(req.BudgetLabour),
		BudgetContingency: calc.Round2(req.BudgetContingency),
		IndirectBudget:    calc.Round2(req.IndirectBudget),
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"project_id": p.ID, "owner_id": ownerID}).Info("project created")
	return &ProjectResult{Project: p, Warnings: budgetWarnings(p)}, nil
}

// budgetWarnings flags category budgets that do not fit the total. The split is
// a planning aid and is never enforced.
func budgetWarnings(p *domain.Project) []string {
	split := p.BudgetMaterials.Add(p.BudgetLabour).Add(p.BudgetContingency)
	if split.GreaterThan(p.BudgetTotal) {
		return []string{fmt.Sprintf("category budgets total %s, above the project budget of %s",
			moneyfmt.Format(split), moneyfmt.Format(p.BudgetTotal))}
	}
	return nil
}

func (s *Service) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *Service) ListProjects(ctx context.Context, includeArchived bool) ([]domain.Project, error) {
	return s.projects.List(ctx, includeArchived)
}

// UpdateBudget replaces the project budget. Lowering it below the phase
// allocations is allowed and reported through the allocation policy.
func (s *Service) UpdateBudget(ctx context.Context, projectID int64, req UpdateBudgetRequest) (*ProjectResult, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	var result *ProjectResult
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		p, err := s.projects.WithTx(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsArchived() {
			return domain.NewValidationError("project_id", "project %d is archived", projectID)
		}
		p.BudgetTotal = calc.Round2(req.BudgetTotal)
		p.BudgetMaterials = calc.Round2(req.BudgetMaterials)
		p.BudgetLabour = calc.Round2(req.BudgetLabour)
		p.BudgetContingency = calc.Round2(req.BudgetContingency)
		p.IndirectBudget = calc.Round2(req.IndirectBudget)
		if err := s.projects.WithTx(tx).UpdateBudget(ctx, p); err != nil {
			return err
		}
		policy, err := s.policy(ctx, tx, p)
		if err != nil {
			return err
		}
		result = &ProjectResult{Project: p, Warnings: budgetWarnings(p)}
		if !policy.Compliant {
			result.Warnings = append(result.Warnings, policy.Warning)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus moves a live project between its working statuses. Archiving has
// its own operation.
func (s *Service) UpdateStatus(ctx context.Context, projectID int64, status domain.ProjectStatus) (*domain.Project, error) {
	if err := validate(&UpdateStatusRequest{Status: status}); err != nil {
		return nil, err
	}
	var p *domain.Project
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		var err error
		p, err = s.projects.WithTx(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsArchived() {
			return domain.InvalidTransition("project", domain.ProjectArchived, status)
		}
		p.Status = status
		return s.projects.WithTx(tx).UpdateStatus(ctx, projectID, status)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) CreatePhase(ctx context.Context, projectID int64, req CreatePhaseRequest) (*PhaseResult, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	alloc := phaseBudget(req.Allocation)
	if split := alloc.Categories(); split.GreaterThan(alloc.Total) {
		return nil, domain.NewValidationError("budget_allocation", "category allocations %s exceed the total %s",
			moneyfmt.Format(split), moneyfmt.Format(alloc.Total))
	}

	var result *PhaseResult
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		p, err := s.projects.WithTx(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if p.IsArchived() {
			return domain.NewValidationError("project_id", "project %d is archived", projectID)
		}
		seq := req.Sequence
		if seq == 0 {
			existing, err := s.phases.WithTx(tx).ListByProject(ctx, projectID)
			if err != nil {
				return err
			}
			seq = len(existing) + 1
		}
		phase := &domain.Phase{
			ProjectID:  projectID,
			Name:       req.Name,
			Sequence:   seq,
			Allocation: alloc,
			Actual:     zeroBudget(),
		}
		if err := s.phases.WithTx(tx).Create(ctx, phase); err != nil {
			return err
		}
		policy, err := s.policy(ctx, tx, p)
		if err != nil {
			return err
		}
		result = &PhaseResult{Phase: phase, Policy: policy}
		if !policy.Compliant {
			result.Warnings = []string{policy.Warning}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func phaseBudget(b BudgetSplit) domain.PhaseBudget {
	return domain.PhaseBudget{
		Total:             calc.Round2(b.Total),
		Materials:         calc.Round2(b.Materials),
		LabourSkilled:     calc.Round2(b.LabourSkilled),
		LabourUnskilled:   calc.Round2(b.LabourUnskilled),
		LabourSupervisory: calc.Round2(b.LabourSupervisory),
		LabourSpecialized: calc.Round2(b.LabourSpecialized),
		Equipment:         calc.Round2(b.Equipment),
		Other:             calc.Round2(b.Other),
	}
}

func zeroBudget() domain.PhaseBudget {
	z := decimal.Zero
	return domain.PhaseBudget{Total: z, Materials: z, LabourSkilled: z, LabourUnskilled: z,
		LabourSupervisory: z, LabourSpecialized: z, Equipment: z, Other: z}
}

func (s *Service) ListPhases(ctx context.Context, projectID int64) ([]domain.Phase, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.phases.ListByProject(ctx, projectID)
}

// CheckAllocationPolicy compares live phase allocations with the project budget.
func (s *Service) CheckAllocationPolicy(ctx context.Context, projectID int64) (*AllocationPolicy, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.policy(ctx, s.uow.DB(), p)
}

func (s *Service) policy(ctx context.Context, db *gorm.DB, p *domain.Project) (*AllocationPolicy, error) {
	allocated, err := s.phases.WithTx(db).SumAllocations(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	unallocated := p.BudgetTotal.Sub(allocated)
	policy := &AllocationPolicy{
		ProjectID:   p.ID,
		BudgetTotal: p.BudgetTotal,
		Allocated:   allocated,
		Unallocated: unallocated,
		Compliant:   !unallocated.IsNegative(),
	}
	if !policy.Compliant {
		policy.Warning = fmt.Sprintf("phase allocations of %s exceed the project budget of %s by %s",
			moneyfmt.Format(allocated), moneyfmt.Format(p.BudgetTotal), moneyfmt.Format(unallocated.Neg()))
	}
	return policy, nil
}

// liveProject loads a project that can still take new records.
func (s *Service) liveProject(ctx context.Context, projectID int64) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if p.IsArchived() {
		return nil, domain.NewValidationError("project_id", "project %d is archived", projectID)
	}
	return p, nil
}

// checkPhase requires phaseID, when set, to be a live phase of the project.
func (s *Service) checkPhase(ctx context.Context, projectID int64, phaseID *int64) error {
	if phaseID == nil {
		return nil
	}
	phase, err := s.phases.GetByID(ctx, *phaseID)
	if err != nil {
		return err
	}
	if phase.ProjectID != projectID {
		return domain.NewValidationError("phase_id", "phase %d does not belong to project %d", *phaseID, projectID)
	}
	if phase.ArchivedAt != nil {
		return domain.NewValidationError("phase_id", "phase %d is archived", *phaseID)
	}
	return nil
}

func (s *Service) CreateExpense(ctx context.Context, projectID, submittedBy int64, req CreateExpenseRequest) (*ExpenseResult, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if req.LabourType != "" && req.Category != domain.ExpenseLabour {
		return nil, domain.NewValidationError("labour_type", "labour type only applies to labour expenses")
	}
	if req.IsIndirect {
		if req.PhaseID != nil {
			return nil, domain.NewValidationError("phase_id", "indirect expenses belong to the project, not a phase")
		}
		if req.IndirectCategory == "" {
			return nil, domain.NewValidationError("indirect_category", "indirect expenses need an indirect category")
		}
	} else if req.IndirectCategory != "" {
		return nil, domain.NewValidationError("indirect_category", "indirect category requires is_indirect")
	}

	p, err := s.liveProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.checkPhase(ctx, projectID, req.PhaseID); err != nil {
		return nil, err
	}

	e := &domain.Expense{
		ProjectID:        projectID,
		PhaseID:          req.PhaseID,
		Category:         req.Category,
		LabourType:       req.LabourType,
		IsIndirect:       req.IsIndirect,
		IndirectCategory: req.IndirectCategory,
		Description:      req.Description,
		Amount:           calc.Round2(req.Amount),
		Status:           domain.ExpensePending,
		SubmittedBy:      submittedBy,
	}
	if err := s.spend.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	result := &ExpenseResult{Expense: e}
	if e.IsIndirect {
		if w, err := s.indirectWarning(ctx, p, e.Amount); err != nil {
			s.log.WithError(err).WithField("project_id", projectID).Warn("indirect budget check failed")
		} else if w != "" {
			result.Warnings = []string{w}
		}
	}
	return result, nil
}

// indirectWarning reports when approving amount would take indirect spending past
// the project's indirect budget.
func (s *Service) indirectWarning(ctx context.Context, p *domain.Project, amount decimal.Decimal) (string, error) {
	used := decimal.Zero
	f, err := s.finances.Get(ctx, p.ID)
	switch {
	case err == nil:
		used = f.IndirectUsed
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}
	after := used.Add(amount)
	if after.GreaterThan(p.IndirectBudget) {
		return fmt.Sprintf("indirect spending would reach %s against an indirect budget of %s",
			moneyfmt.Format(after), moneyfmt.Format(p.IndirectBudget)), nil
	}
	return "", nil
}

func (s *Service) CreateMaterial(ctx context.Context, projectID, requestedBy int64, req CreateMaterialRequest) (*domain.MaterialRequest, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.liveProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.checkPhase(ctx, projectID, req.PhaseID); err != nil {
		return nil, err
	}
	m := &domain.MaterialRequest{
		ProjectID:   projectID,
		PhaseID:     req.PhaseID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitCost:    calc.Round2(req.UnitCost),
		TotalCost:   calc.Round2(req.Quantity.Mul(req.UnitCost)),
		Status:      domain.MaterialPending,
		RequestedBy: requestedBy,
	}
	if err := s.spend.CreateMaterial(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) CreateInitialExpense(ctx context.Context, projectID, submittedBy int64, req CreateInitialExpenseRequest) (*domain.InitialExpense, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.liveProject(ctx, projectID); err != nil {
		return nil, err
	}
	e := &domain.InitialExpense{
		ProjectID:   projectID,
		Category:    req.Category,
		Description: req.Description,
		Amount:      calc.Round2(req.Amount),
		Status:      domain.InitialExpensePending,
		SubmittedBy: submittedBy,
	}
	if err := s.spend.CreateInitialExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// CreateContract registers a draft. It reserves nothing until it is activated.
func (s *Service) CreateContract(ctx context.Context, projectID int64, req CreateContractRequest) (*domain.Contract, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.liveProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.checkPhase(ctx, projectID, req.PhaseID); err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = domain.ContractKindContract
	}
	c := &domain.Contract{
		ProjectID:     projectID,
		PhaseID:       req.PhaseID,
		Kind:          kind,
		Title:         req.Title,
		Counterparty:  req.Counterparty,
		ContractValue: calc.Round2(req.ContractValue),
		FeesPaid:      decimal.Zero,
		Status:        domain.ContractDraft,
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) CreateInvestor(ctx context.Context, req CreateInvestorRequest) (*domain.Investor, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	inv := &domain.Investor{Name: req.Name, UserID: req.UserID}
	if err := s.investors.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInvestor(ctx context.Context, id int64) (*domain.Investor, error) {
	return s.investors.GetByID(ctx, id)
}

func (s *Service) ListExpenses(ctx context.Context, projectID int64) ([]domain.Expense, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.spend.ListExpensesByProject(ctx, projectID)
}

func (s *Service) ListMaterials(ctx context.Context, projectID int64) ([]domain.MaterialRequest, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.spend.ListMaterialsByProject(ctx, projectID)
}
