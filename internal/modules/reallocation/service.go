package reallocation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/repository"
)

type Service struct {
	uow           *database.Transactor
	cascade       *recalc.Cascade
	projects      *repository.ProjectRepository
	phases        *repository.PhaseRepository
	reallocations *repository.ReallocationRepository
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewService(uow *database.Transactor, cascade *recalc.Cascade, log logrus.FieldLogger) *Service {
	db := uow.DB()
	return &Service{
		uow:           uow,
		cascade:       cascade,
		projects:      repository.NewProjectRepository(db),
		phases:        repository.NewPhaseRepository(db),
		reallocations: repository.NewReallocationRepository(db),
		log:           log.WithField("component", "reallocation"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Create validates a reallocation request against the current budgets and stores
// it as pending. Nothing is clamped: an amount above what the source can give up
// is rejected with the available and shortfall figures.
func (s *Service) Create(ctx context.Context, projectID int64, req CreateRequest, requestedBy int64) (*domain.BudgetReallocation, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	transfer, err := NewTransfer(req.ReallocationType, req.FromPhaseID, req.ToPhaseID)
	if err != nil {
		return nil, err
	}
	amount := calc.Round2(req.Amount)

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.IsArchived() {
		return nil, domain.NewValidationError("project_id", "project %d is archived", projectID)
	}
	phases, err := s.phases.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := check(transfer, NewScope(project, phases, s.phases), amount); err != nil {
		return nil, err
	}

	r := &domain.BudgetReallocation{
		ProjectID:        projectID,
		ReallocationType: transfer.Type(),
		FromPhaseID:      req.FromPhaseID,
		ToPhaseID:        req.ToPhaseID,
		Amount:           amount,
		Reason:           reason,
		Status:           domain.ReallocationPending,
		RequestedBy:      requestedBy,
	}
	if err := s.reallocations.Create(ctx, r); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reallocation_id": r.ID,
		"project_id":      projectID,
		"type":            r.ReallocationType,
		"amount":          amount.String(),
	}).Info("reallocation requested")
	return r, nil
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID, actorID int64) (*domain.BudgetReallocation, error) {
	return s.transition(ctx, id, domain.ReallocationApproved, func(r *domain.BudgetReallocation) {
		now := s.now()
		r.ApprovedBy = &actorID
		r.ApprovedAt = &now
	})
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, actorID int64, reason string) (*domain.BudgetReallocation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}
	return s.transition(ctx, id, domain.ReallocationRejected, func(r *domain.BudgetReallocation) {
		r.RejectedBy = &actorID
		r.RejectionReason = reason
	})
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID int64) (*domain.BudgetReallocation, error) {
	return s.transition(ctx, id, domain.ReallocationCancelled, func(r *domain.BudgetReallocation) {
		r.RejectedBy = &actorID
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domain.ReallocationStatus, mutate func(*domain.BudgetReallocation)) (*domain.BudgetReallocation, error) {
	var out *domain.BudgetReallocation
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		r, err := s.reallocations.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !r.Status.CanTransition(to) {
			return domain.InvalidTransition("reallocation", r.Status, to)
		}
		r.Status = to
		mutate(r)
		if err := s.reallocations.WithTx(tx).Save(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"reallocation_id": id, "status": to}).Info("reallocation status changed")
	return out, nil
}

// Execute applies an approved reallocation. The debit and the credit commit
// together, and the source is re-checked under lock so a budget consumed since
// approval cannot be moved twice.
func (s *Service) Execute(ctx context.Context, id uuid.UUID, actorID int64) (*ExecuteResult, error) {
	var (
		out *domain.BudgetReallocation
		ev  recalc.Event
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		r, err := s.reallocations.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !r.Status.CanTransition(domain.ReallocationExecuted) {
			return domain.InvalidTransition("reallocation", r.Status, domain.ReallocationExecuted)
		}
		transfer, err := FromRecord(r)
		if err != nil {
			return err
		}

		project, err := s.projects.WithTx(tx).GetForUpdate(ctx, r.ProjectID)
		if err != nil {
			return err
		}
		if project.IsArchived() {
			return domain.NewValidationError("project_id", "project %d is archived", r.ProjectID)
		}
		phases, err := s.phases.WithTx(tx).ListForUpdate(ctx, r.ProjectID)
		if err != nil {
			return err
		}
		scope := NewScope(project, phases, s.phases.WithTx(tx))
		if err := check(transfer, scope, r.Amount); err != nil {
			return err
		}
		if err := transfer.apply(ctx, scope, r.Amount); err != nil {
			return err
		}

		now := s.now()
		r.Status = domain.ReallocationExecuted
		r.ExecutedAt = &now
		if err := s.reallocations.WithTx(tx).Save(ctx, r); err != nil {
			return err
		}
		out = r

		ev = recalc.Event{
			ProjectID:     r.ProjectID,
			PhaseIDs:      transfer.Phases(),
			Reason:        "reallocation_executed",
			CorrelationID: r.ID.String(),
		}
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"reallocation_id": id,
		"project_id":      out.ProjectID,
		"amount":          out.Amount.String(),
		"actor_id":        actorID,
	}).Info("reallocation executed")
	return &ExecuteResult{Reallocation: out, Warnings: s.cascade.Trigger(ctx, ev)}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.BudgetReallocation, error) {
	return s.reallocations.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, projectID int64, status domain.ReallocationStatus) ([]domain.BudgetReallocation, error) {
	return s.reallocations.List(ctx, projectID, status)
}
