package coordinator

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/domain"
	"buildledger/internal/integrations"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/pkg/moneyfmt"
	"buildledger/internal/repository"
)

// ArchivePhase archives a phase with its materials and expenses under one stamp.
// Contract commitments on the phase are left as they are.
func (s *Service) ArchivePhase(ctx context.Context, phaseID, actorID int64) (*PhaseArchiveResult, error) {
	res := &PhaseArchiveResult{PhaseID: phaseID}
	var ev recalc.Event
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		phase, err := s.phases.WithTx(tx).GetForUpdate(ctx, phaseID)
		if err != nil {
			return err
		}
		if phase.ArchivedAt != nil {
			return domain.NewValidationError("phase_id", "phase %d is already archived", phaseID)
		}
		project, err := s.projects.WithTx(tx).GetForUpdate(ctx, phase.ProjectID)
		if err != nil {
			return err
		}
		if project.IsArchived() {
			return domain.NewValidationError("project_id", "project %d is archived", project.ID)
		}

		stamp := repository.ArchiveStamp(s.now())
		if err := s.phases.WithTx(tx).Archive(ctx, phaseID, stamp); err != nil {
			return err
		}
		n, err := s.spend.WithTx(tx).ArchiveByPhase(ctx, phaseID, stamp)
		if err != nil {
			return err
		}
		res.ArchivedAt = stamp
		res.Spend = n
		ev = newEvent(phase.ProjectID, "phase_archived", phaseID)
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	res.Warnings = s.finish(ctx, ev,
		auditEntry(actorID, "phase.archive", "phase", phaseID, ev.ProjectID, map[string]any{"spend_archived": res.Spend}),
		nil,
	)
	return res, nil
}

// ArchiveProject stamps the project and every live phase, spend entry and
// contract with one archived_at value, atomically. RestoreProject undoes exactly
// the rows carrying that stamp. Commitments are not released.
func (s *Service) ArchiveProject(ctx context.Context, projectID, actorID int64) (*ArchiveResult, error) {
	res := &ArchiveResult{ProjectID: projectID}
	var (
		ev      recalc.Event
		ownerID int64
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		project, err := s.projects.WithTx(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if project.IsArchived() {
			return domain.InvalidTransition("project", project.Status, domain.ProjectArchived)
		}
		ownerID = project.OwnerID

		stamp := repository.ArchiveStamp(s.now())
		if err := s.projects.WithTx(tx).MarkArchived(ctx, project, stamp); err != nil {
			return err
		}
		if res.Phases, err = s.phases.WithTx(tx).ArchiveByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		if res.Spend, err = s.spend.WithTx(tx).ArchiveByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		if res.Contracts, err = s.contracts.WithTx(tx).ArchiveByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		phaseIDs, err := s.phases.WithTx(tx).IDsArchivedAt(ctx, projectID, stamp)
		if err != nil {
			return err
		}
		res.ArchivedAt = stamp
		ev = newEvent(projectID, "project_archived", phaseIDs...)
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	res.Warnings = s.finish(ctx, ev,
		auditEntry(actorID, "project.archive", "project", projectID, projectID, map[string]any{
			"archived_at": res.ArchivedAt,
			"phases":      res.Phases,
			"spend":       res.Spend,
			"contracts":   res.Contracts,
		}),
		[]integrations.Notification{{
			UserID: ownerID,
			Type:   integrations.TypeProjectArchived,
			Title:  "Project archived",
			Data:   integrations.NotificationData{ProjectID: &projectID},
		}},
	)
	return res, nil
}

// RestoreProject reverses ArchiveProject. Rows archived separately before the
// project was archived keep their own stamp and stay archived.
func (s *Service) RestoreProject(ctx context.Context, projectID, actorID int64) (*ArchiveResult, error) {
	res := &ArchiveResult{ProjectID: projectID}
	var (
		ev      recalc.Event
		ownerID int64
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		project, err := s.projects.WithTx(tx).GetForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		if !project.IsArchived() {
			return domain.InvalidTransition("project", project.Status, "restored")
		}
		ownerID = project.OwnerID

		stamp := *project.ArchivedAt
		phaseIDs, err := s.phases.WithTx(tx).IDsArchivedAt(ctx, projectID, stamp)
		if err != nil {
			return err
		}
		if res.Phases, err = s.phases.WithTx(tx).RestoreByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		if res.Spend, err = s.spend.WithTx(tx).RestoreByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		if res.Contracts, err = s.contracts.WithTx(tx).RestoreByProject(ctx, projectID, stamp); err != nil {
			return err
		}
		if err := s.projects.WithTx(tx).MarkRestored(ctx, project); err != nil {
			return err
		}
		res.ArchivedAt = stamp
		ev = newEvent(projectID, "project_restored", phaseIDs...)
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	res.Warnings = s.finish(ctx, ev,
		auditEntry(actorID, "project.restore", "project", projectID, projectID, map[string]any{
			"phases":    res.Phases,
			"spend":     res.Spend,
			"contracts": res.Contracts,
		}),
		[]integrations.Notification{{
			UserID: ownerID,
			Type:   integrations.TypeProjectRestored,
			Title:  "Project restored",
			Data:   integrations.NotificationData{ProjectID: &projectID},
		}},
	)
	return res, nil
}

// DeleteProject hard-deletes a project and everything under it. A project with
// recorded spending needs force. Unused capital goes back to the investors first,
// in its own transaction; if that fails the deletion still proceeds and the
// failure is reported as a warning for manual reconciliation.
func (s *Service) DeleteProject(ctx context.Context, projectID int64, force bool, actorID int64) (*DeleteResult, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	hasSpending, err := s.spend.HasSpending(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if hasSpending && !force {
		return nil, domain.ErrProjectHasSpending
	}

	log := s.log.WithFields(logrus.Fields{"project_id": projectID, "actor_id": actorID})
	res := &DeleteResult{ProjectID: projectID, Deleted: map[string]int64{}}

	if ret, err := s.returnUnusedCapital(ctx, projectID, actorID); err != nil {
		log.WithError(err).Error("capital return failed during project deletion")
		res.Warnings = append(res.Warnings, fmt.Sprintf("capital return failed, investor balances need manual reconciliation: %v", err))
	} else {
		res.CapitalReturn = ret
	}

	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		if _, err := s.projects.WithTx(tx).GetForUpdate(ctx, projectID); err != nil {
			return err
		}
		steps := []struct {
			name string
			run  func() (int64, error)
		}{
			{"reallocations", func() (int64, error) { return s.reallocations.WithTx(tx).DeleteByProject(ctx, projectID) }},
			{"recalc_tasks", func() (int64, error) { return s.tasks.WithTx(tx).DeleteByProject(ctx, projectID) }},
			{"contracts", func() (int64, error) { return s.contracts.WithTx(tx).DeleteByProject(ctx, projectID) }},
			{"spend", func() (int64, error) { return s.spend.WithTx(tx).DeleteByProject(ctx, projectID) }},
			{"phases", func() (int64, error) { return s.phases.WithTx(tx).DeleteByProject(ctx, projectID) }},
			{"allocations", func() (int64, error) { return s.investors.WithTx(tx).DeleteAllocationsByProject(ctx, projectID) }},
		}
		for _, step := range steps {
			n, err := step.run()
			if err != nil {
				return fmt.Errorf("deleting %s: %w", step.name, err)
			}
			res.Deleted[step.name] = n
		}
		if err := s.finances.WithTx(tx).DeleteByProject(ctx, projectID); err != nil {
			return fmt.Errorf("deleting finances: %w", err)
		}
		return s.projects.WithTx(tx).Delete(ctx, projectID)
	})
	if err != nil {
		return nil, err
	}

	if s.assets != nil {
		if err := s.assets.CleanupProjectAssets(ctx, projectID); err != nil {
			log.WithError(err).Warn("asset cleanup failed")
			res.Warnings = append(res.Warnings, fmt.Sprintf("project assets were not removed: %v", err))
		}
	}

	if s.audit != nil {
		entry := auditEntry(actorID, "project.delete", "project", projectID, projectID, map[string]any{
			"force":   force,
			"deleted": res.Deleted,
		})
		entry.At = s.now()
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			log.WithError(err).Warn("audit log failed")
		}
	}
	s.notify(ctx, s.deletionNotifications(ctx, project, res.CapitalReturn))

	log.WithField("deleted", res.Deleted).Info("project deleted")
	return res, nil
}

// returnUnusedCapital hands back invested capital not consumed by spending.
func (s *Service) returnUnusedCapital(ctx context.Context, projectID, actorID int64) (*ledger.CapitalReturn, error) {
	check, err := s.ledger.UnusedCapital(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if check.CapitalNotSet || !check.Available.IsPositive() {
		return nil, nil
	}
	return s.ledger.ReturnCapitalToInvestors(ctx, projectID, check.Available, actorID)
}

func (s *Service) deletionNotifications(ctx context.Context, project *domain.Project, ret *ledger.CapitalReturn) []integrations.Notification {
	batch := []integrations.Notification{{
		UserID: project.OwnerID,
		Type:   integrations.TypeProjectDeleted,
		Title:  "Project deleted",
		Body:   project.Name,
		Data:   integrations.NotificationData{ProjectID: &project.ID},
	}}
	if ret == nil {
		return batch
	}
	for _, r := range ret.Returns {
		inv, err := s.investors.GetByID(ctx, r.InvestorID)
		if err != nil || inv.UserID == nil {
			continue
		}
		allocationID := r.AllocationID
		batch = append(batch, integrations.Notification{
			UserID: *inv.UserID,
			Type:   integrations.TypeCapitalReturned,
			Title:  "Capital returned",
			Body:   fmt.Sprintf("%s was returned from project %s.", moneyfmt.Format(r.Amount), project.Name),
			Data:   integrations.NotificationData{ProjectID: &project.ID, AllocationID: &allocationID, Amount: r.Amount.StringFixed(2)},
		})
	}
	return batch
}
