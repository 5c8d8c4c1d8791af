package commitment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
)

const checkCommittedTotal = "committed_total"

// Reconcile recomputes the committed counters from the active contracts of a
// project and records a report for every counter that diverges. With repair set
// the stored counters are overwritten by the recomputed values.
func (s *Service) Reconcile(ctx context.Context, projectID int64, repair bool) (*ReconcileResult, error) {
	correlationID := uuid.NewString()
	res := &ReconcileResult{ProjectID: projectID, Drifts: []domain.ReconciliationReport{}}

	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		if _, err := s.projects.WithTx(tx).GetByID(ctx, projectID); err != nil {
			return err
		}
		// Lock counters before reading contracts, in UpdateCommittedCost order.
		f, err := s.finances.WithTx(tx).GetOrCreateForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		phases, err := s.phases.WithTx(tx).ListForUpdate(ctx, projectID)
		if err != nil {
			return err
		}
		active, err := s.contracts.WithTx(tx).ListActive(ctx, projectID)
		if err != nil {
			return err
		}

		projectTotal := decimal.Zero
		byPhase := map[int64]decimal.Decimal{}
		for i := range active {
			c := &active[i]
			projectTotal = projectTotal.Add(c.Commitment())
			if c.PhaseID != nil {
				byPhase[*c.PhaseID] = byPhase[*c.PhaseID].Add(c.Commitment())
			}
		}

		res.Checked++
		if drift := calc.Round2(f.CommittedTotal.Sub(projectTotal)); !drift.IsZero() {
			report := domain.ReconciliationReport{
				ProjectID:     projectID,
				CheckType:     checkCommittedTotal,
				EntityType:    "project",
				EntityID:      projectID,
				Stored:        f.CommittedTotal,
				Recomputed:    calc.Round2(projectTotal),
				Drift:         drift,
				Repaired:      repair,
				Details:       fmt.Sprintf("%d active contracts", len(active)),
				CorrelationID: correlationID,
			}
			if repair {
				if err := s.finances.WithTx(tx).SetCommitted(ctx, projectID, report.Recomputed); err != nil {
					return err
				}
			}
			if err := s.reports.WithTx(tx).Create(ctx, &report); err != nil {
				return err
			}
			res.Drifts = append(res.Drifts, report)
		}

		for _, p := range phases {
			res.Checked++
			expected := calc.Round2(byPhase[p.ID])
			drift := calc.Round2(p.CommittedTotal.Sub(expected))
			if drift.IsZero() {
				continue
			}
			report := domain.ReconciliationReport{
				ProjectID:     projectID,
				CheckType:     checkCommittedTotal,
				EntityType:    "phase",
				EntityID:      p.ID,
				Stored:        p.CommittedTotal,
				Recomputed:    expected,
				Drift:         drift,
				Repaired:      repair,
				CorrelationID: correlationID,
			}
			if repair {
				if err := s.phases.WithTx(tx).SetCommitted(ctx, p.ID, expected); err != nil {
					return err
				}
			}
			if err := s.reports.WithTx(tx).Create(ctx, &report); err != nil {
				return err
			}
			res.Drifts = append(res.Drifts, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, d := range res.Drifts {
		s.log.WithFields(logrus.Fields{
			"project_id":     projectID,
			"entity_type":    d.EntityType,
			"entity_id":      d.EntityID,
			"stored":         d.Stored.String(),
			"recomputed":     d.Recomputed.String(),
			"repaired":       d.Repaired,
			"correlation_id": correlationID,
		}).Warn("committed cost drift detected")
	}
	return res, nil
}

// ReconcileAll runs Reconcile for every live project. A failing project is
// logged and skipped.
func (s *Service) ReconcileAll(ctx context.Context, repair bool) ([]ReconcileResult, error) {
	ids, err := s.projects.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ReconcileResult, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		res, err := s.Reconcile(ctx, id, repair)
		if err != nil {
			s.log.WithError(err).WithField("project_id", id).Warn("reconciliation failed")
			continue
		}
		out = append(out, *res)
	}
	return out, nil
}

// Reports lists recent reconciliation reports of a project.
func (s *Service) Reports(ctx context.Context, projectID int64, limit int) ([]domain.ReconciliationReport, error) {
	return s.reports.ListByProject(ctx, projectID, limit)
}
