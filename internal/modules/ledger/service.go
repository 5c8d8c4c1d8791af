package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/repository"
)

// Service is the capital ledger: it owns project_finances and investor allocations.
type Service struct {
	uow       *database.Transactor
	projects  *repository.ProjectRepository
	phases    *repository.PhaseRepository
	finances  *repository.FinanceRepository
	investors *repository.InvestorRepository
	spend     *repository.SpendRepository
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(uow *database.Transactor, log logrus.FieldLogger) *Service {
	db := uow.DB()
	return &Service{
		uow:       uow,
		projects:  repository.NewProjectRepository(db),
		phases:    repository.NewPhaseRepository(db),
		finances:  repository.NewFinanceRepository(db),
		investors: repository.NewInvestorRepository(db),
		spend:     repository.NewSpendRepository(db),
		log:       log.WithField("component", "ledger"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Totals is qualifying spend grouped the way project_finances stores it.
type Totals struct {
	Used     decimal.Decimal
	Indirect decimal.Decimal
	Initial  decimal.Decimal
}

// SumSources totals spend by status. Which archived rows belong in the set is
// decided by the query that loaded it. Indirect expenses count toward Used as
// well as Indirect.
func SumSources(s *repository.Sources) Totals {
	t := Totals{Used: decimal.Zero, Indirect: decimal.Zero, Initial: decimal.Zero}
	for i := range s.Materials {
		if s.Materials[i].SpendStatus() {
			t.Used = t.Used.Add(s.Materials[i].TotalCost)
		}
	}
	for i := range s.Expenses {
		e := &s.Expenses[i]
		if !e.SpendStatus() {
			continue
		}
		t.Used = t.Used.Add(e.Amount)
		if e.IsIndirect {
			t.Indirect = t.Indirect.Add(e.Amount)
		}
	}
	for i := range s.InitialExpenses {
		if s.InitialExpenses[i].SpendStatus() {
			t.Initial = t.Initial.Add(s.InitialExpenses[i].Amount)
		}
	}
	t.Used = calc.Round2(t.Used.Add(t.Initial))
	t.Indirect = calc.Round2(t.Indirect)
	t.Initial = calc.Round2(t.Initial)
	return t
}

// GetCurrentTotalUsed returns the stored aggregate and falls back to the source
// records only when the project has never been recalculated.
func (s *Service) GetCurrentTotalUsed(ctx context.Context, projectID int64) (decimal.Decimal, error) {
	f, err := s.finances.Get(ctx, projectID)
	if err == nil {
		return f.TotalUsed, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, err
	}
	sources, err := s.spend.ProjectSources(ctx, projectID)
	if err != nil {
		return decimal.Zero, err
	}
	return SumSources(sources).Used, nil
}

// RecalculateProjectFinances rebuilds the aggregate from allocations and spend
// records. It is safe to repeat: every run writes the same figures for the same
// records, and the commitment counter is left untouched.
func (s *Service) RecalculateProjectFinances(ctx context.Context, projectID int64) (Snapshot, error) {
	var snap Snapshot
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		if _, err := s.projects.WithTx(tx).GetByID(ctx, projectID); err != nil {
			return err
		}

		allocations, err := s.investors.WithTx(tx).ListActiveAllocations(ctx, projectID)
		if err != nil {
			return err
		}
		invested := decimal.Zero
		for _, a := range allocations {
			invested = invested.Add(a.Amount)
		}
		invested = calc.Round2(invested)

		sources, err := s.spend.WithTx(tx).ProjectSources(ctx, projectID)
		if err != nil {
			return err
		}
		totals := SumSources(sources)

		now := s.now()
		row := &domain.ProjectFinances{
			ProjectID:           projectID,
			TotalInvested:       invested,
			TotalUsed:           totals.Used,
			CapitalBalance:      calc.AvailableCapital(invested, totals.Used),
			IndirectUsed:        totals.Indirect,
			InitialExpensesUsed: totals.Initial,
			LastRecalculatedAt:  &now,
		}
		if err := s.finances.WithTx(tx).Upsert(ctx, row); err != nil {
			return err
		}

		stored, err := s.finances.WithTx(tx).Get(ctx, projectID)
		if err != nil {
			return err
		}
		snap = Snapshot{
			ProjectID:           projectID,
			TotalInvested:       row.TotalInvested,
			TotalUsed:           row.TotalUsed,
			CapitalBalance:      row.CapitalBalance,
			CommittedTotal:      calc.Round2(stored.CommittedTotal),
			IndirectUsed:        row.IndirectUsed,
			InitialExpensesUsed: row.InitialExpensesUsed,
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	s.log.WithFields(logrus.Fields{
		"project_id":      projectID,
		"total_invested":  snap.TotalInvested.String(),
		"total_used":      snap.TotalUsed.String(),
		"capital_balance": snap.CapitalBalance.String(),
	}).Debug("project finances recalculated")
	return snap, nil
}

// ValidateCapitalAvailability is advisory: it reads without locking, so two
// concurrent approvals can both pass. A project without any allocation passes with
// CapitalNotSet and a warning.
func (s *Service) ValidateCapitalAvailability(ctx context.Context, projectID int64, requested decimal.Decimal) (CapitalCheck, error) {
	if requested.IsNegative() {
		return CapitalCheck{}, domain.NewValidationError("amount", "must not be negative")
	}
	requested = calc.Round2(requested)

	allocations, err := s.investors.ListActiveAllocations(ctx, projectID)
	if err != nil {
		return CapitalCheck{}, err
	}
	if len(allocations) == 0 {
		return CapitalCheck{
			IsValid:       true,
			Available:     decimal.Zero,
			Required:      requested,
			Shortfall:     decimal.Zero,
			CapitalNotSet: true,
			Warning:       "no investor capital allocated to this project yet",
		}, nil
	}

	invested := decimal.Zero
	for _, a := range allocations {
		invested = invested.Add(a.Amount)
	}
	used, err := s.GetCurrentTotalUsed(ctx, projectID)
	if err != nil {
		return CapitalCheck{}, err
	}

	available := calc.AvailableCapital(invested, used)
	return CapitalCheck{
		IsValid:   requested.LessThanOrEqual(available),
		Available: available,
		Required:  requested,
		Shortfall: calc.Shortfall(requested, available),
	}, nil
}

// UnusedCapital is the invested capital that spending never consumed. Unlike the
// stored balance it still counts spend archived with its project or phase, so an
// archived project cannot hand spent capital back.
func (s *Service) UnusedCapital(ctx context.Context, projectID int64) (CapitalCheck, error) {
	allocations, err := s.investors.ListActiveAllocations(ctx, projectID)
	if err != nil {
		return CapitalCheck{}, err
	}
	if len(allocations) == 0 {
		return CapitalCheck{IsValid: true, Available: decimal.Zero, Required: decimal.Zero, Shortfall: decimal.Zero, CapitalNotSet: true}, nil
	}
	invested := decimal.Zero
	for _, a := range allocations {
		invested = invested.Add(a.Amount)
	}
	sources, err := s.spend.ConsumedSources(ctx, projectID)
	if err != nil {
		return CapitalCheck{}, err
	}
	available := calc.AvailableCapital(calc.Round2(invested), SumSources(sources).Used)
	return CapitalCheck{
		IsValid:   !available.IsNegative(),
		Available: available,
		Required:  decimal.Zero,
		Shortfall: decimal.Zero,
	}, nil
}

// ReturnCapitalToInvestors splits amount across the active allocations of the
// project in proportion to their size. Shares are rounded down to cents in
// allocation id order and the last allocation takes the rounding residue, so the
// total returned is exactly min(amount, sum of allocations).
func (s *Service) ReturnCapitalToInvestors(ctx context.Context, projectID int64, amount decimal.Decimal, actingUserID int64) (*CapitalReturn, error) {
	if amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	result := &CapitalReturn{
		ProjectID: projectID,
		Requested: calc.Round2(amount),
		Returned:  decimal.Zero,
		Returns:   []InvestorReturn{},
		ActedBy:   actingUserID,
	}
	if !amount.IsPositive() {
		return result, nil
	}

	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		investors := s.investors.WithTx(tx)
		allocations, err := investors.ListActiveAllocationsForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		shares := ProportionalShares(allocations, result.Requested)
		for i := range allocations {
			if !shares[i].IsPositive() {
				continue
			}
			if err := investors.ApplyReturn(ctx, &allocations[i], shares[i]); err != nil {
				return err
			}
			result.Returned = result.Returned.Add(shares[i])
			result.Returns = append(result.Returns, InvestorReturn{
				AllocationID: allocations[i].ID,
				InvestorID:   allocations[i].InvestorID,
				Amount:       shares[i],
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.InvestorsUpdated = len(result.Returns)

	s.log.WithFields(logrus.Fields{
		"project_id":        projectID,
		"requested":         result.Requested.String(),
		"returned":          result.Returned.String(),
		"investors_updated": result.InvestorsUpdated,
		"acted_by":          actingUserID,
	}).Info("capital returned to investors")
	return result, nil
}

// ProportionalShares apportions amount over allocations by size. The result is
// aligned with allocations. Every share but the last is rounded down to cents and
// the last takes the residue, so no share is negative. When the residue is more
// than the last allocation holds, the excess goes to earlier allocations that
// still have room.
func ProportionalShares(allocations []domain.InvestorAllocation, amount decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(allocations))
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	for i := range shares {
		shares[i] = decimal.Zero
	}
	if !total.IsPositive() || !amount.IsPositive() {
		return shares
	}

	toReturn := decimal.Min(calc.Round2(amount), total)
	distributed := decimal.Zero
	last := len(allocations) - 1
	for i := 0; i < last; i++ {
		shares[i] = allocations[i].Amount.Mul(toReturn).Div(total).Truncate(2)
		distributed = distributed.Add(shares[i])
	}
	shares[last] = toReturn.Sub(distributed)

	if excess := shares[last].Sub(allocations[last].Amount); excess.IsPositive() {
		shares[last] = allocations[last].Amount
		for i := 0; i < last && excess.IsPositive(); i++ {
			room := decimal.Min(allocations[i].Amount.Sub(shares[i]), excess)
			if room.IsPositive() {
				shares[i] = shares[i].Add(room)
				excess = excess.Sub(room)
			}
		}
	}
	return shares
}

// AllocateCapital records new investor capital for a project and refreshes the
// aggregate. A failed refresh is logged and left to the next recalculation.
func (s *Service) AllocateCapital(ctx context.Context, investorID, projectID int64, amount decimal.Decimal) (*domain.InvestorAllocation, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsArchived() {
		return nil, domain.NewValidationError("project_id", "project %d is archived", projectID)
	}
	if _, err := s.investors.GetByID(ctx, investorID); err != nil {
		return nil, err
	}

	alloc := &domain.InvestorAllocation{
		InvestorID:     investorID,
		ProjectID:      projectID,
		Amount:         calc.Round2(amount),
		ReturnedAmount: decimal.Zero,
		Status:         domain.AllocationActive,
	}
	if err := s.investors.CreateAllocation(ctx, alloc); err != nil {
		return nil, err
	}

	if _, err := s.RecalculateProjectFinances(ctx, projectID); err != nil {
		s.log.WithError(err).WithField("project_id", projectID).Warn("recalculation after capital allocation failed")
	}
	return alloc, nil
}

// Summary reports finances and per-phase budget positions. A project that was
// never recalculated is reported from its source records without writing.
func (s *Service) Summary(ctx context.Context, projectID int64) (*Summary, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	phases, err := s.phases.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	snap, lastRun, err := s.currentSnapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		ProjectID:          projectID,
		Status:             string(project.Status),
		BudgetTotal:        project.BudgetTotal,
		IndirectBudget:     project.IndirectBudget,
		IndirectRemaining:  project.IndirectBudget.Sub(snap.IndirectUsed),
		Finances:           snap,
		AvailableCapital:   calc.AvailableCapital(snap.TotalInvested, snap.TotalUsed),
		CapitalUtilization: calc.Round2(calc.UtilizationPercentage(snap.TotalUsed, snap.TotalInvested)),
		Phases:             make([]PhaseSummary, 0, len(phases)),
		LastRecalculatedAt: lastRun,
	}

	allocated := decimal.Zero
	for _, p := range phases {
		allocated = allocated.Add(p.Allocation.Total)
		out.Phases = append(out.Phases, PhaseSummary{
			PhaseID:     p.ID,
			Name:        p.Name,
			Allocation:  p.Allocation.Total,
			Actual:      p.Actual.Total,
			Committed:   p.CommittedTotal,
			Available:   calc.AvailableBudget(p.Allocation.Total, p.Actual.Total, p.CommittedTotal),
			Utilization: calc.Round2(calc.UtilizationPercentage(p.Actual.Total, p.Allocation.Total)),
		})
	}
	out.AllocatedToPhases = allocated
	out.UnallocatedBudget = project.BudgetTotal.Sub(allocated)
	return out, nil
}

func (s *Service) currentSnapshot(ctx context.Context, projectID int64) (Snapshot, *time.Time, error) {
	f, err := s.finances.Get(ctx, projectID)
	if err == nil {
		return Snapshot{
			ProjectID:           projectID,
			TotalInvested:       f.TotalInvested,
			TotalUsed:           f.TotalUsed,
			CapitalBalance:      f.CapitalBalance,
			CommittedTotal:      f.CommittedTotal,
			IndirectUsed:        f.IndirectUsed,
			InitialExpensesUsed: f.InitialExpensesUsed,
		}, f.LastRecalculatedAt, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return Snapshot{}, nil, err
	}

	allocations, err := s.investors.ListActiveAllocations(ctx, projectID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	invested := decimal.Zero
	for _, a := range allocations {
		invested = invested.Add(a.Amount)
	}
	sources, err := s.spend.ProjectSources(ctx, projectID)
	if err != nil {
		return Snapshot{}, nil, err
	}
	totals := SumSources(sources)
	return Snapshot{
		ProjectID:           projectID,
		TotalInvested:       invested,
		TotalUsed:           totals.Used,
		CapitalBalance:      calc.AvailableCapital(invested, totals.Used),
		CommittedTotal:      decimal.Zero,
		IndirectUsed:        totals.Indirect,
		InitialExpensesUsed: totals.Initial,
	}, nil, nil
}
