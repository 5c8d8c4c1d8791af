package recalc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/config"
	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/pkg/utils"
	"buildledger/internal/repository"
)

// Event names what changed. PhaseIDs are the phases whose direct spend may have
// moved; the project aggregate is always refreshed.
type Event struct {
	ProjectID     int64
	PhaseIDs      []int64
	Reason        string
	CorrelationID string
}

// Cascade refreshes derived totals after a committed mutation: phase actuals
// first, then the project aggregate.
type Cascade struct {
	uow    *database.Transactor
	ledger *ledger.Service
	phases *repository.PhaseRepository
	spend  *repository.SpendRepository
	tasks  *repository.RecalcTaskRepository
	mode   string
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewCascade(uow *database.Transactor, ledgerSvc *ledger.Service, mode string, log logrus.FieldLogger) *Cascade {
	if mode != config.RecalcOutbox {
		mode = config.RecalcInline
	}
	db := uow.DB()
	return &Cascade{
		uow:    uow,
		ledger: ledgerSvc,
		phases: repository.NewPhaseRepository(db),
		spend:  repository.NewSpendRepository(db),
		tasks:  repository.NewRecalcTaskRepository(db),
		mode:   mode,
		log:    log.WithField("component", "recalc"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *Cascade) Mode() string {
	return c.mode
}

// Schedule writes a durable task inside the caller's transaction when running in
// outbox mode. Inline mode writes nothing.
func (c *Cascade) Schedule(tx *gorm.DB, ev Event) error {
	if c.mode != config.RecalcOutbox {
		return nil
	}
	if ev.CorrelationID == "" {
		ev.CorrelationID = uuid.NewString()
	}
	task := &domain.RecalcTask{
		ProjectID:     ev.ProjectID,
		PhaseIDs:      utils.IDsToString(utils.UniqueIDs(ev.PhaseIDs)),
		Reason:        ev.Reason,
		Status:        domain.RecalcTaskPending,
		NextAttemptAt: c.now(),
		CorrelationID: ev.CorrelationID,
	}
	if err := c.tasks.WithTx(tx).Create(tx.Statement.Context, task); err != nil {
		return fmt.Errorf("scheduling recalculation: %w", err)
	}
	return nil
}

// Trigger runs the cascade now. It never fails the caller: problems come back as
// warnings and, in outbox mode, the pending tasks stay for the worker.
func (c *Cascade) Trigger(ctx context.Context, ev Event) []string {
	warnings, _ := c.run(ctx, ev)
	return warnings
}

// run returns the warnings and whether every step succeeded.
func (c *Cascade) run(ctx context.Context, ev Event) ([]string, bool) {
	started := c.now()
	log := c.log.WithFields(logrus.Fields{
		"project_id":     ev.ProjectID,
		"reason":         ev.Reason,
		"correlation_id": ev.CorrelationID,
	})

	var covered []domain.RecalcTask
	phaseIDs := ev.PhaseIDs
	if c.mode == config.RecalcOutbox {
		pending, err := c.tasks.ListPendingForProject(ctx, ev.ProjectID, started)
		if err != nil {
			log.WithError(err).Warn("loading pending recalculation tasks failed")
		}
		covered = pending
		for _, t := range pending {
			phaseIDs = append(phaseIDs, utils.StringToIDs(t.PhaseIDs)...)
		}
	}

	var warnings []string
	ok := true
	for _, phaseID := range utils.UniqueIDs(phaseIDs) {
		if _, err := c.RecalculatePhase(ctx, phaseID); err != nil {
			ok = false
			log.WithError(err).WithField("phase_id", phaseID).Warn("phase recalculation failed")
			warnings = append(warnings, fmt.Sprintf("phase %d totals may be stale: %v", phaseID, err))
		}
	}

	if _, err := c.ledger.RecalculateProjectFinances(ctx, ev.ProjectID); err != nil {
		ok = false
		log.WithError(err).Warn("project recalculation failed")
		warnings = append(warnings, fmt.Sprintf("project %d finances may be stale: %v", ev.ProjectID, err))
	}

	if ok && len(covered) > 0 {
		ids := make([]uuid.UUID, 0, len(covered))
		for _, t := range covered {
			ids = append(ids, t.ID)
		}
		if err := c.tasks.MarkDoneIDs(ctx, ids); err != nil {
			log.WithError(err).Warn("closing recalculation tasks failed")
		}
	}
	return warnings, ok
}

// RecalculatePhase rebuilds a phase's actual spending from its direct-cost
// records. Indirect expenses are never part of a phase.
func (c *Cascade) RecalculatePhase(ctx context.Context, phaseID int64) (domain.PhaseBudget, error) {
	var actual domain.PhaseBudget
	err := c.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		if _, err := c.phases.WithTx(tx).GetByID(ctx, phaseID); err != nil {
			return err
		}
		sources, err := c.spend.WithTx(tx).PhaseSources(ctx, phaseID)
		if err != nil {
			return err
		}
		actual = PhaseActuals(sources)
		return c.phases.WithTx(tx).UpdateActual(ctx, phaseID, actual)
	})
	return actual, err
}

// PhaseActuals groups direct spend by budget category.
func PhaseActuals(s *repository.Sources) domain.PhaseBudget {
	b := domain.PhaseBudget{
		Total:             decimal.Zero,
		Materials:         decimal.Zero,
		LabourSkilled:     decimal.Zero,
		LabourUnskilled:   decimal.Zero,
		LabourSupervisory: decimal.Zero,
		LabourSpecialized: decimal.Zero,
		Equipment:         decimal.Zero,
		Other:             decimal.Zero,
	}
	for i := range s.Materials {
		if s.Materials[i].CountsAsSpend() {
			b.Materials = b.Materials.Add(s.Materials[i].TotalCost)
		}
	}
	for i := range s.Expenses {
		e := &s.Expenses[i]
		if e.IsIndirect || !e.CountsAsSpend() {
			continue
		}
		switch e.Category {
		case domain.ExpenseMaterials:
			b.Materials = b.Materials.Add(e.Amount)
		case domain.ExpenseEquipment:
			b.Equipment = b.Equipment.Add(e.Amount)
		case domain.ExpenseLabour:
			switch e.LabourType {
			case domain.LabourSkilled:
				b.LabourSkilled = b.LabourSkilled.Add(e.Amount)
			case domain.LabourUnskilled:
				b.LabourUnskilled = b.LabourUnskilled.Add(e.Amount)
			case domain.LabourSupervisory:
				b.LabourSupervisory = b.LabourSupervisory.Add(e.Amount)
			case domain.LabourSpecialized:
				b.LabourSpecialized = b.LabourSpecialized.Add(e.Amount)
			default:
				b.Other = b.Other.Add(e.Amount)
			}
		default:
			b.Other = b.Other.Add(e.Amount)
		}
	}
	b.Total = calc.Round2(calc.Sum(b.Materials, b.Labour(), b.Equipment, b.Other))
	return b
}
