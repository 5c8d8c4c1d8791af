package commitment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/repository"
)

// Service keeps the committed-cost counters in step with contract status and
// value changes.
type Service struct {
	uow       *database.Transactor
	ledger    *ledger.Service
	cascade   *recalc.Cascade
	projects  *repository.ProjectRepository
	phases    *repository.PhaseRepository
	finances  *repository.FinanceRepository
	contracts *repository.ContractRepository
	spend     *repository.SpendRepository
	reports   *repository.ReconciliationRepository
	log       logrus.FieldLogger
	now       func() time.Time
}

func NewService(uow *database.Transactor, ledgerSvc *ledger.Service, cascade *recalc.Cascade, log logrus.FieldLogger) *Service {
	db := uow.DB()
	return &Service{
		uow:       uow,
		ledger:    ledgerSvc,
		cascade:   cascade,
		projects:  repository.NewProjectRepository(db),
		phases:    repository.NewPhaseRepository(db),
		finances:  repository.NewFinanceRepository(db),
		contracts: repository.NewContractRepository(db),
		spend:     repository.NewSpendRepository(db),
		reports:   repository.NewReconciliationRepository(db),
		log:       log.WithField("component", "commitment"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UpdateCommittedCost applies a delta to the project's committed total, and to the
// phase's when phaseID is set, under row locks in the caller's transaction. The
// counters never go below zero.
func (s *Service) UpdateCommittedCost(ctx context.Context, tx *gorm.DB, projectID int64, phaseID *int64, amount decimal.Decimal, dir Direction) (*Adjustment, error) {
	if !dir.Valid() {
		return nil, domain.NewValidationError("direction", "must be add or subtract")
	}
	if amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "must not be negative")
	}
	amount = calc.Round2(amount)
	adj := &Adjustment{ProjectID: projectID, PhaseID: phaseID, Direction: dir, Amount: amount}

	if _, err := s.projects.WithTx(tx).GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	f, err := s.finances.WithTx(tx).GetOrCreateForUpdate(ctx, projectID)
	if err != nil {
		return nil, err
	}
	adj.Before = f.CommittedTotal
	adj.After, adj.Drifted = applyDelta(f.CommittedTotal, amount, dir)
	if amount.IsPositive() {
		if err := s.finances.WithTx(tx).SetCommitted(ctx, projectID, adj.After); err != nil {
			return nil, err
		}
	}

	if phaseID != nil {
		phase, err := s.phases.WithTx(tx).GetForUpdate(ctx, *phaseID)
		if err != nil {
			return nil, err
		}
		if phase.ProjectID != projectID {
			return nil, domain.NewValidationError("phase_id", "phase %d does not belong to project %d", *phaseID, projectID)
		}
		adj.PhaseBefore = phase.CommittedTotal
		adj.PhaseAfter, adj.PhaseDrifted = applyDelta(phase.CommittedTotal, amount, dir)
		if amount.IsPositive() {
			if err := s.phases.WithTx(tx).SetCommitted(ctx, *phaseID, adj.PhaseAfter); err != nil {
				return nil, err
			}
		}
	}

	if adj.Drifted || adj.PhaseDrifted {
		s.log.WithFields(logrus.Fields{
			"project_id":   projectID,
			"phase_id":     phaseID,
			"amount":       amount.String(),
			"before":       adj.Before.String(),
			"phase_before": adj.PhaseBefore.String(),
		}).Warn("committed cost subtract went below zero, floored; counter has drifted")
	}
	return adj, nil
}

func applyDelta(current, amount decimal.Decimal, dir Direction) (decimal.Decimal, bool) {
	if dir == Add {
		return current.Add(amount), false
	}
	next := current.Sub(amount)
	if next.IsNegative() {
		return decimal.Zero, true
	}
	return next, false
}

// TransitionContract moves a contract through its lifecycle. Entering active adds
// its commitment; leaving active releases it. Both happen with the status write.
func (s *Service) TransitionContract(ctx context.Context, contractID int64, to domain.ContractStatus, actorID int64) (*ContractResult, error) {
	if !to.Valid() {
		return nil, domain.NewValidationError("status", "unknown contract status %q", to)
	}

	res := &ContractResult{}
	var ev recalc.Event
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		c, err := s.contracts.WithTx(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if !c.Status.CanTransition(to) {
			return domain.InvalidTransition("contract", c.Status, to)
		}

		from := c.Status
		if from.ReservesCapital() != to.ReservesCapital() {
			dir := Add
			if from.ReservesCapital() {
				dir = Subtract
			}
			adj, err := s.UpdateCommittedCost(ctx, tx, c.ProjectID, c.PhaseID, c.Commitment(), dir)
			if err != nil {
				return err
			}
			res.Adjustment = adj
		}

		c.Status = to
		if err := s.contracts.WithTx(tx).Save(ctx, c); err != nil {
			return err
		}
		res.Contract = c

		ev = contractEvent(c, "contract_"+string(to))
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"project_id":  res.Contract.ProjectID,
		"status":      to,
		"actor_id":    actorID,
	}).Info("contract status changed")
	res.Warnings = s.cascade.Trigger(ctx, ev)
	return res, nil
}

// UpdateContractValue changes the contract value. While the contract is active
// only the change in its commitment is applied to the counters.
func (s *Service) UpdateContractValue(ctx context.Context, contractID int64, newValue decimal.Decimal, actorID int64) (*ContractResult, error) {
	if newValue.IsNegative() {
		return nil, domain.NewValidationError("contract_value", "must not be negative")
	}
	newValue = calc.Round2(newValue)

	res := &ContractResult{}
	var ev recalc.Event
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		c, err := s.contracts.WithTx(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}

		before := c.Commitment()
		c.ContractValue = newValue
		after := c.Commitment()

		if c.Status.ReservesCapital() {
			adj, err := s.applyCommitmentDelta(ctx, tx, c, before, after)
			if err != nil {
				return err
			}
			res.Adjustment = adj
		}

		if err := s.contracts.WithTx(tx).Save(ctx, c); err != nil {
			return err
		}
		res.Contract = c
		ev = contractEvent(c, "contract_value_changed")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"value":       newValue.String(),
		"actor_id":    actorID,
	}).Info("contract value updated")
	res.Warnings = s.cascade.Trigger(ctx, ev)
	return res, nil
}

// RecordFeePayment pays part of a contract: fees_paid grows, an approved expense
// linked to the contract is posted, and the released commitment is subtracted.
func (s *Service) RecordFeePayment(ctx context.Context, contractID int64, amount decimal.Decimal, actorID int64) (*ContractResult, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	amount = calc.Round2(amount)

	current, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !current.Status.AcceptsFees() {
		return nil, domain.NewValidationError("status", "contract in status %s does not accept fee payments", current.Status)
	}

	check, err := s.ledger.ValidateCapitalAvailability(ctx, current.ProjectID, amount)
	if err != nil {
		return nil, err
	}
	if err := check.Err(current.ProjectID); err != nil {
		return nil, err
	}

	res := &ContractResult{}
	if check.CapitalNotSet {
		res.Warnings = append(res.Warnings, check.Warning)
	}
	var ev recalc.Event
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		c, err := s.contracts.WithTx(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if !c.Status.AcceptsFees() {
			return domain.NewValidationError("status", "contract in status %s does not accept fee payments", c.Status)
		}

		before := c.Commitment()
		c.FeesPaid = c.FeesPaid.Add(amount)
		after := c.Commitment()
		if c.Status.ReservesCapital() {
			adj, err := s.applyCommitmentDelta(ctx, tx, c, before, after)
			if err != nil {
				return err
			}
			res.Adjustment = adj
		}
		if err := s.contracts.WithTx(tx).Save(ctx, c); err != nil {
			return err
		}

		now := s.now()
		expense := &domain.Expense{
			ProjectID:   c.ProjectID,
			PhaseID:     c.PhaseID,
			ContractID:  &c.ID,
			Category:    feeCategory(c.Kind),
			Description: fmt.Sprintf("Fee payment: %s", c.Title),
			Amount:      amount,
			Status:      domain.ExpenseApproved,
			SubmittedBy: actorID,
			ApprovedBy:  &actorID,
			ApprovedAt:  &now,
		}
		if err := s.spend.WithTx(tx).CreateExpense(ctx, expense); err != nil {
			return err
		}
		res.Contract = c
		res.Expense = expense

		ev = contractEvent(c, "contract_fee_paid")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"contract_id": contractID,
		"amount":      amount.String(),
		"actor_id":    actorID,
	}).Info("contract fee recorded")
	res.Warnings = append(res.Warnings, s.cascade.Trigger(ctx, ev)...)
	return res, nil
}

func (s *Service) applyCommitmentDelta(ctx context.Context, tx *gorm.DB, c *domain.Contract, before, after decimal.Decimal) (*Adjustment, error) {
	delta := after.Sub(before)
	switch {
	case delta.IsPositive():
		return s.UpdateCommittedCost(ctx, tx, c.ProjectID, c.PhaseID, delta, Add)
	case delta.IsNegative():
		return s.UpdateCommittedCost(ctx, tx, c.ProjectID, c.PhaseID, delta.Neg(), Subtract)
	}
	return nil, nil
}

func feeCategory(kind domain.ContractKind) domain.ExpenseCategory {
	if kind == domain.ContractKindPurchaseOrder {
		return domain.ExpenseMaterials
	}
	return domain.ExpenseOther
}

func contractEvent(c *domain.Contract, reason string) recalc.Event {
	ev := recalc.Event{ProjectID: c.ProjectID, Reason: reason, CorrelationID: uuid.NewString()}
	if c.PhaseID != nil {
		ev.PhaseIDs = []int64{*c.PhaseID}
	}
	return ev
}

// ListContracts returns the contracts of a project.
func (s *Service) ListContracts(ctx context.Context, projectID int64) ([]domain.Contract, error) {
	return s.contracts.ListByProject(ctx, projectID)
}
