package reallocation

import (
	"context"

	"github.com/shopspring/decimal"

	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/repository"
)

// Transfer is a budget move between two scopes of one project. The set of
// implementations is closed: PhaseToPhase, ProjectToPhase and PhaseToProject.
type Transfer interface {
	Type() domain.ReallocationType
	// Phases lists the phases the transfer touches, source first.
	Phases() []int64
	// Available is what the source scope can give up right now.
	Available(s *Scope) (decimal.Decimal, domain.FundsScope, int64)
	apply(ctx context.Context, s *Scope, amount decimal.Decimal) error
}

type PhaseToPhase struct {
	From int64
	To   int64
}

type ProjectToPhase struct {
	To int64
}

type PhaseToProject struct {
	From int64
}

// Scope is the budget state a transfer reads and writes.
type Scope struct {
	Project *domain.Project
	Phases  map[int64]*domain.Phase
	writer  *repository.PhaseRepository
}

func NewScope(project *domain.Project, phases []domain.Phase, writer *repository.PhaseRepository) *Scope {
	s := &Scope{Project: project, Phases: make(map[int64]*domain.Phase, len(phases)), writer: writer}
	for i := range phases {
		s.Phases[phases[i].ID] = &phases[i]
	}
	return s
}

// Unallocated is the project budget not yet handed to any live phase.
func (s *Scope) Unallocated() decimal.Decimal {
	allocated := decimal.Zero
	for _, p := range s.Phases {
		allocated = allocated.Add(p.Allocation.Total)
	}
	return s.Project.BudgetTotal.Sub(allocated)
}

func (s *Scope) phaseAvailable(id int64) decimal.Decimal {
	p := s.Phases[id]
	return calc.AvailableBudget(p.Allocation.Total, p.Actual.Total, p.CommittedTotal)
}

// shift moves the phase allocation total by delta. A debit that leaves the
// category split above the new total scales the split down with it.
func (s *Scope) shift(ctx context.Context, id int64, delta decimal.Decimal) error {
	p := s.Phases[id]
	p.Allocation.Total = p.Allocation.Total.Add(delta)
	if p.Allocation.Categories().GreaterThan(p.Allocation.Total) {
		p.Allocation = p.Allocation.FitCategories()
		return s.writer.UpdateAllocation(ctx, id, p.Allocation)
	}
	return s.writer.SetAllocationTotal(ctx, id, p.Allocation.Total)
}

func (PhaseToPhase) Type() domain.ReallocationType { return domain.PhaseToPhase }
func (t PhaseToPhase) Phases() []int64             { return []int64{t.From, t.To} }

func (t PhaseToPhase) Available(s *Scope) (decimal.Decimal, domain.FundsScope, int64) {
	return s.phaseAvailable(t.From), domain.ScopePhaseBudget, t.From
}

func (t PhaseToPhase) apply(ctx context.Context, s *Scope, amount decimal.Decimal) error {
	if err := s.shift(ctx, t.From, amount.Neg()); err != nil {
		return err
	}
	return s.shift(ctx, t.To, amount)
}

func (ProjectToPhase) Type() domain.ReallocationType { return domain.ProjectToPhase }
func (t ProjectToPhase) Phases() []int64             { return []int64{t.To} }

func (t ProjectToPhase) Available(s *Scope) (decimal.Decimal, domain.FundsScope, int64) {
	return s.Unallocated(), domain.ScopeProjectBudget, s.Project.ID
}

func (t ProjectToPhase) apply(ctx context.Context, s *Scope, amount decimal.Decimal) error {
	return s.shift(ctx, t.To, amount)
}

func (PhaseToProject) Type() domain.ReallocationType { return domain.PhaseToProject }
func (t PhaseToProject) Phases() []int64             { return []int64{t.From} }

func (t PhaseToProject) Available(s *Scope) (decimal.Decimal, domain.FundsScope, int64) {
	return s.phaseAvailable(t.From), domain.ScopePhaseBudget, t.From
}

func (t PhaseToProject) apply(ctx context.Context, s *Scope, amount decimal.Decimal) error {
	return s.shift(ctx, t.From, amount.Neg())
}

// NewTransfer builds the variant for typ, enforcing its required and forbidden
// phase fields.
func NewTransfer(typ domain.ReallocationType, from, to *int64) (Transfer, error) {
	switch typ {
	case domain.PhaseToPhase:
		if from == nil || *from <= 0 {
			return nil, domain.NewValidationError("from_phase_id", "is required for %s", typ)
		}
		if to == nil || *to <= 0 {
			return nil, domain.NewValidationError("to_phase_id", "is required for %s", typ)
		}
		if *from == *to {
			return nil, domain.NewValidationError("to_phase_id", "must differ from from_phase_id")
		}
		return PhaseToPhase{From: *from, To: *to}, nil
	case domain.ProjectToPhase:
		if from != nil {
			return nil, domain.NewValidationError("from_phase_id", "must be empty for %s", typ)
		}
		if to == nil || *to <= 0 {
			return nil, domain.NewValidationError("to_phase_id", "is required for %s", typ)
		}
		return ProjectToPhase{To: *to}, nil
	case domain.PhaseToProject:
		if to != nil {
			return nil, domain.NewValidationError("to_phase_id", "must be empty for %s", typ)
		}
		if from == nil || *from <= 0 {
			return nil, domain.NewValidationError("from_phase_id", "is required for %s", typ)
		}
		return PhaseToProject{From: *from}, nil
	}
	return nil, domain.NewValidationError("reallocation_type", "unknown type %q", typ)
}

// FromRecord rebuilds the transfer stored on a reallocation.
func FromRecord(r *domain.BudgetReallocation) (Transfer, error) {
	return NewTransfer(r.ReallocationType, r.FromPhaseID, r.ToPhaseID)
}

// check validates the transfer against a scope: every phase must be a live phase
// of the project and the source must cover amount.
func check(t Transfer, s *Scope, amount decimal.Decimal) error {
	for _, id := range t.Phases() {
		if _, ok := s.Phases[id]; !ok {
			return domain.NewValidationError("phase_id", "phase %d is not an active phase of project %d", id, s.Project.ID)
		}
	}
	available, scope, scopeID := t.Available(s)
	if amount.GreaterThan(available) {
		return domain.NewInsufficientFunds(scope, scopeID, available, amount)
	}
	return nil
}
