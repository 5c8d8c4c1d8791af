package coordinator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/finance/calc"
	"buildledger/internal/integrations"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/pkg/moneyfmt"
	"buildledger/internal/pkg/utils"
	"buildledger/internal/repository"
)

// Options carries the external collaborators. Any of them may be nil.
type Options struct {
	Audit    AuditSink
	Notifier Notifier
	Assets   AssetCleaner
}

// Service runs the named multi-record financial mutations. Each one validates
// capital outside the transaction, mutates inside it and refreshes derived totals
// after commit.
type Service struct {
	uow           *database.Transactor
	ledger        *ledger.Service
	cascade       *recalc.Cascade
	projects      *repository.ProjectRepository
	phases        *repository.PhaseRepository
	spend         *repository.SpendRepository
	contracts     *repository.ContractRepository
	finances      *repository.FinanceRepository
	investors     *repository.InvestorRepository
	reallocations *repository.ReallocationRepository
	tasks         *repository.RecalcTaskRepository
	audit         AuditSink
	notifier      Notifier
	assets        AssetCleaner
	log           logrus.FieldLogger
	now           func() time.Time
}

// NewService fails with ErrTransactionsRequired without a Transactor: none of the
// operations has a non-atomic fallback.
func NewService(uow *database.Transactor, ledgerSvc *ledger.Service, cascade *recalc.Cascade, opts Options, log logrus.FieldLogger) (*Service, error) {
	if uow == nil {
		return nil, domain.ErrTransactionsRequired
	}
	db := uow.DB()
	return &Service{
		uow:           uow,
		ledger:        ledgerSvc,
		cascade:       cascade,
		projects:      repository.NewProjectRepository(db),
		phases:        repository.NewPhaseRepository(db),
		spend:         repository.NewSpendRepository(db),
		contracts:     repository.NewContractRepository(db),
		finances:      repository.NewFinanceRepository(db),
		investors:     repository.NewInvestorRepository(db),
		reallocations: repository.NewReallocationRepository(db),
		tasks:         repository.NewRecalcTaskRepository(db),
		audit:         opts.Audit,
		notifier:      opts.Notifier,
		assets:        opts.Assets,
		log:           log.WithField("component", "coordinator"),
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// precheck is the advisory capital check. It reads without locks; a project with
// no capital yet passes with a warning.
func (s *Service) precheck(ctx context.Context, projectID int64, amount decimal.Decimal) ([]string, error) {
	check, err := s.ledger.ValidateCapitalAvailability(ctx, projectID, amount)
	if err != nil {
		return nil, err
	}
	if err := check.Err(projectID); err != nil {
		return nil, err
	}
	if check.CapitalNotSet {
		return []string{check.Warning}, nil
	}
	return nil, nil
}

// finish runs the post-commit steps: audit, notifications, then the cascade. None
// of them can fail the already committed mutation.
func (s *Service) finish(ctx context.Context, ev recalc.Event, entry integrations.AuditEntry, batch []integrations.Notification) []string {
	log := s.log.WithFields(logrus.Fields{"project_id": ev.ProjectID, "action": entry.Action})
	if s.audit != nil {
		if entry.At.IsZero() {
			entry.At = s.now()
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			log.WithError(err).Warn("audit log failed")
		}
	}
	s.notify(ctx, batch)
	warnings := s.cascade.Trigger(ctx, ev)
	log.WithField("warnings", len(warnings)).Info("financial mutation committed")
	return warnings
}

func (s *Service) notify(ctx context.Context, batch []integrations.Notification) {
	if s.notifier == nil || len(batch) == 0 {
		return
	}
	now := s.now()
	for i := range batch {
		if batch[i].Channel == "" {
			batch[i].Channel = integrations.ChannelInApp
		}
		batch[i].CreatedAt = now
	}
	if err := s.notifier.CreateNotifications(ctx, batch); err != nil {
		s.log.WithError(err).WithField("count", len(batch)).Warn("notification dispatch failed")
	}
}

func newEvent(projectID int64, reason string, phaseIDs ...int64) recalc.Event {
	return recalc.Event{
		ProjectID:     projectID,
		PhaseIDs:      utils.UniqueIDs(phaseIDs),
		Reason:        reason,
		CorrelationID: uuid.NewString(),
	}
}

func expenseEvent(e *domain.Expense, reason string) recalc.Event {
	if e.PhaseID != nil && !e.IsIndirect {
		return newEvent(e.ProjectID, reason, *e.PhaseID)
	}
	return newEvent(e.ProjectID, reason)
}

func auditEntry(actorID int64, action, entityType string, entityID any, projectID int64, changes map[string]any) integrations.AuditEntry {
	return integrations.AuditEntry{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   fmt.Sprint(entityID),
		ProjectID:  projectID,
		Changes:    changes,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

// Expenses.

func (s *Service) ApproveExpense(ctx context.Context, expenseID, actorID int64) (*ExpenseResult, error) {
	current, err := s.spend.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := checkExpense(current, domain.ExpenseApproved); err != nil {
		return nil, err
	}
	warnings, err := s.precheck(ctx, current.ProjectID, current.Amount)
	if err != nil {
		return nil, err
	}

	var (
		e  *domain.Expense
		ev recalc.Event
	)
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if err := checkExpense(locked, domain.ExpenseApproved); err != nil {
			return err
		}
		now := s.now()
		locked.Status = domain.ExpenseApproved
		locked.ApprovedBy = &actorID
		locked.ApprovedAt = &now
		if err := s.spend.WithTx(tx).SaveExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = expenseEvent(locked, "expense_approved")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, s.finish(ctx, ev,
		auditEntry(actorID, "expense.approve", "expense", e.ID, e.ProjectID, map[string]any{"status": e.Status, "amount": e.Amount.String()}),
		[]integrations.Notification{{
			UserID: e.SubmittedBy,
			Type:   integrations.TypeExpenseApproved,
			Title:  "Expense approved",
			Body:   fmt.Sprintf("Your expense of %s was approved.", moneyfmt.Format(e.Amount)),
			Data:   integrations.NotificationData{ProjectID: int64Ptr(e.ProjectID), ExpenseID: int64Ptr(e.ID), Amount: e.Amount.StringFixed(2)},
		}},
	)...)
	return &ExpenseResult{Expense: e, Warnings: warnings}, nil
}

func (s *Service) RejectExpense(ctx context.Context, expenseID, actorID int64, reason string) (*ExpenseResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	var (
		e  *domain.Expense
		ev recalc.Event
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if err := checkExpense(locked, domain.ExpenseRejected); err != nil {
			return err
		}
		locked.Status = domain.ExpenseRejected
		locked.RejectedBy = &actorID
		locked.RejectionReason = reason
		if err := s.spend.WithTx(tx).SaveExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = expenseEvent(locked, "expense_rejected")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings := s.finish(ctx, ev,
		auditEntry(actorID, "expense.reject", "expense", e.ID, e.ProjectID, map[string]any{"status": e.Status, "reason": reason}),
		[]integrations.Notification{{
			UserID: e.SubmittedBy,
			Type:   integrations.TypeExpenseRejected,
			Title:  "Expense rejected",
			Body:   reason,
			Data:   integrations.NotificationData{ProjectID: int64Ptr(e.ProjectID), ExpenseID: int64Ptr(e.ID)},
		}},
	)
	return &ExpenseResult{Expense: e, Warnings: warnings}, nil
}

func checkExpense(e *domain.Expense, to domain.ExpenseStatus) error {
	if e.ArchivedAt != nil {
		return domain.NewValidationError("expense_id", "expense %d is archived", e.ID)
	}
	if !e.Status.CanTransition(to) {
		return domain.InvalidTransition("expense", e.Status, to)
	}
	return nil
}

// UpdateExpenseAmount edits a pending or approved expense. Raising an approved
// amount is checked against capital for the increase only.
func (s *Service) UpdateExpenseAmount(ctx context.Context, expenseID int64, amount decimal.Decimal, actorID int64) (*ExpenseResult, error) {
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be greater than zero")
	}
	amount = calc.Round2(amount)

	current, err := s.spend.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := checkEditable(current); err != nil {
		return nil, err
	}
	var warnings []string
	if current.Status.Counts() && amount.GreaterThan(current.Amount) {
		if warnings, err = s.precheck(ctx, current.ProjectID, amount.Sub(current.Amount)); err != nil {
			return nil, err
		}
	}

	var (
		e      *domain.Expense
		before decimal.Decimal
		ev     recalc.Event
	)
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if err := checkEditable(locked); err != nil {
			return err
		}
		before = locked.Amount
		locked.Amount = amount
		if err := s.spend.WithTx(tx).SaveExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = expenseEvent(locked, "expense_edited")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, s.finish(ctx, ev,
		auditEntry(actorID, "expense.update_amount", "expense", e.ID, e.ProjectID, map[string]any{
			"amount": map[string]string{"from": before.StringFixed(2), "to": amount.StringFixed(2)},
		}),
		nil,
	)...)
	return &ExpenseResult{Expense: e, Warnings: warnings}, nil
}

func checkEditable(e *domain.Expense) error {
	if e.ArchivedAt != nil {
		return domain.NewValidationError("expense_id", "expense %d is archived", e.ID)
	}
	if e.Status != domain.ExpensePending && e.Status != domain.ExpenseApproved {
		return domain.NewValidationError("status", "expense in status %s cannot be edited", e.Status)
	}
	return nil
}

// DeleteExpense archives the expense; its amount stops counting as spend.
func (s *Service) DeleteExpense(ctx context.Context, expenseID, actorID int64) (*ExpenseResult, error) {
	var (
		e  *domain.Expense
		ev recalc.Event
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if locked.ArchivedAt != nil {
			return domain.NewValidationError("expense_id", "expense %d is already archived", expenseID)
		}
		stamp := repository.ArchiveStamp(s.now())
		locked.ArchivedAt = &stamp
		if err := s.spend.WithTx(tx).SaveExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = expenseEvent(locked, "expense_deleted")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings := s.finish(ctx, ev,
		auditEntry(actorID, "expense.delete", "expense", e.ID, e.ProjectID, map[string]any{"archived_at": e.ArchivedAt}),
		nil,
	)
	return &ExpenseResult{Expense: e, Warnings: warnings}, nil
}

// RestoreExpense brings back an expense archived on its own. Expenses archived with
// their project or phase come back through RestoreProject.
func (s *Service) RestoreExpense(ctx context.Context, expenseID, actorID int64) (*ExpenseResult, error) {
	current, err := s.spend.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if current.ArchivedAt == nil {
		return nil, domain.NewValidationError("expense_id", "expense %d is not archived", expenseID)
	}
	var warnings []string
	if current.Status.Counts() {
		if warnings, err = s.precheck(ctx, current.ProjectID, current.Amount); err != nil {
			return nil, err
		}
	}

	var (
		e  *domain.Expense
		ev recalc.Event
	)
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetExpenseForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		if locked.ArchivedAt == nil {
			return domain.NewValidationError("expense_id", "expense %d is not archived", expenseID)
		}
		project, err := s.projects.WithTx(tx).GetForUpdate(ctx, locked.ProjectID)
		if err != nil {
			return err
		}
		if project.IsArchived() {
			return domain.NewValidationError("project_id", "project %d is archived, restore the project instead", project.ID)
		}
		if locked.PhaseID != nil {
			phase, err := s.phases.WithTx(tx).GetByID(ctx, *locked.PhaseID)
			if err != nil {
				return err
			}
			if phase.ArchivedAt != nil {
				return domain.NewValidationError("phase_id", "phase %d is archived", phase.ID)
			}
		}
		locked.ArchivedAt = nil
		if err := s.spend.WithTx(tx).SaveExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = expenseEvent(locked, "expense_restored")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, s.finish(ctx, ev,
		auditEntry(actorID, "expense.restore", "expense", e.ID, e.ProjectID, nil),
		nil,
	)...)
	return &ExpenseResult{Expense: e, Warnings: warnings}, nil
}

// Initial expenses.

func (s *Service) ApproveInitialExpense(ctx context.Context, id, actorID int64) (*InitialExpenseResult, error) {
	current, err := s.spend.GetInitialExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkInitialExpense(current, domain.InitialExpenseApproved); err != nil {
		return nil, err
	}
	warnings, err := s.precheck(ctx, current.ProjectID, current.Amount)
	if err != nil {
		return nil, err
	}

	var e *domain.InitialExpense
	ev := newEvent(current.ProjectID, "initial_expense_approved")
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetInitialExpenseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkInitialExpense(locked, domain.InitialExpenseApproved); err != nil {
			return err
		}
		now := s.now()
		locked.Status = domain.InitialExpenseApproved
		locked.ApprovedBy = &actorID
		locked.ApprovedAt = &now
		if err := s.spend.WithTx(tx).SaveInitialExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, s.finish(ctx, ev,
		auditEntry(actorID, "initial_expense.approve", "initial_expense", e.ID, e.ProjectID, map[string]any{"amount": e.Amount.String()}),
		[]integrations.Notification{{
			UserID: e.SubmittedBy,
			Type:   integrations.TypeInitialExpenseApproved,
			Title:  "Initial expense approved",
			Body:   fmt.Sprintf("%s (%s) was approved.", e.Description, moneyfmt.Format(e.Amount)),
			Data:   integrations.NotificationData{ProjectID: int64Ptr(e.ProjectID), ExpenseID: int64Ptr(e.ID), Amount: e.Amount.StringFixed(2)},
		}},
	)...)
	return &InitialExpenseResult{InitialExpense: e, Warnings: warnings}, nil
}

func (s *Service) RejectInitialExpense(ctx context.Context, id, actorID int64, reason string) (*InitialExpenseResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "is required")
	}

	var (
		e  *domain.InitialExpense
		ev recalc.Event
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetInitialExpenseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := checkInitialExpense(locked, domain.InitialExpenseRejected); err != nil {
			return err
		}
		locked.Status = domain.InitialExpenseRejected
		locked.RejectedBy = &actorID
		locked.RejectionReason = reason
		if err := s.spend.WithTx(tx).SaveInitialExpense(ctx, locked); err != nil {
			return err
		}
		e = locked
		ev = newEvent(locked.ProjectID, "initial_expense_rejected")
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings := s.finish(ctx, ev,
		auditEntry(actorID, "initial_expense.reject", "initial_expense", e.ID, e.ProjectID, map[string]any{"reason": reason}),
		[]integrations.Notification{{
			UserID: e.SubmittedBy,
			Type:   integrations.TypeInitialExpenseRejected,
			Title:  "Initial expense rejected",
			Body:   reason,
			Data:   integrations.NotificationData{ProjectID: int64Ptr(e.ProjectID), ExpenseID: int64Ptr(e.ID)},
		}},
	)
	return &InitialExpenseResult{InitialExpense: e, Warnings: warnings}, nil
}

func checkInitialExpense(e *domain.InitialExpense, to domain.InitialExpenseStatus) error {
	if e.ArchivedAt != nil {
		return domain.NewValidationError("initial_expense_id", "initial expense %d is archived", e.ID)
	}
	if !e.Status.CanTransition(to) {
		return domain.InvalidTransition("initial expense", e.Status, to)
	}
	return nil
}

// Materials.

// BulkApproveMaterials approves a batch of pending material requests as one unit.
// The capital check runs on the batch total, so a batch is refused as a whole
// even when every item would pass alone.
func (s *Service) BulkApproveMaterials(ctx context.Context, projectID int64, materialIDs []int64, actorID int64) (*BatchResult, error) {
	ids := utils.UniqueIDs(materialIDs)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("material_ids", "at least one material request is required")
	}

	current, err := s.spend.ListMaterials(ctx, ids)
	if err != nil {
		return nil, err
	}
	total, err := checkBatch(projectID, ids, current)
	if err != nil {
		return nil, err
	}
	warnings, err := s.precheck(ctx, projectID, total)
	if err != nil {
		return nil, err
	}

	res := &BatchResult{BatchID: uuid.New(), Total: total}
	var ev recalc.Event
	err = s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		spend := s.spend.WithTx(tx)
		locked, err := spend.ListMaterialsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		if _, err := checkBatch(projectID, ids, locked); err != nil {
			return err
		}

		now := s.now()
		var phaseIDs []int64
		for i := range locked {
			m := &locked[i]
			m.Status = domain.MaterialApproved
			m.BatchID = &res.BatchID
			m.ApprovedBy = &actorID
			m.ApprovedAt = &now
			if err := spend.SaveMaterial(ctx, m); err != nil {
				return err
			}
			if m.PhaseID != nil {
				phaseIDs = append(phaseIDs, *m.PhaseID)
			}
		}
		res.Materials = locked
		ev = newEvent(projectID, "materials_bulk_approved", phaseIDs...)
		ev.CorrelationID = res.BatchID.String()
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	var batch []integrations.Notification
	seen := map[int64]bool{}
	for _, m := range res.Materials {
		if seen[m.RequestedBy] {
			continue
		}
		seen[m.RequestedBy] = true
		batch = append(batch, integrations.Notification{
			UserID: m.RequestedBy,
			Type:   integrations.TypeMaterialsApproved,
			Title:  "Material requests approved",
			Body:   fmt.Sprintf("A batch of %d material requests totalling %s was approved.", len(res.Materials), moneyfmt.Format(total)),
			Data:   integrations.NotificationData{ProjectID: int64Ptr(projectID), BatchID: res.BatchID.String(), Amount: total.StringFixed(2)},
		})
	}
	res.Warnings = append(warnings, s.finish(ctx, ev,
		auditEntry(actorID, "materials.bulk_approve", "material_batch", res.BatchID, projectID, map[string]any{
			"material_ids": ids,
			"total":        total.StringFixed(2),
		}),
		batch,
	)...)
	return res, nil
}

// checkBatch verifies every requested id is a live pending request of the project
// and returns the batch total.
func checkBatch(projectID int64, ids []int64, materials []domain.MaterialRequest) (decimal.Decimal, error) {
	found := make(map[int64]*domain.MaterialRequest, len(materials))
	for i := range materials {
		found[materials[i].ID] = &materials[i]
	}
	total := decimal.Zero
	for _, id := range ids {
		m, ok := found[id]
		if !ok {
			return decimal.Zero, domain.NotFound("material request", id)
		}
		if m.ProjectID != projectID {
			return decimal.Zero, domain.NewValidationError("material_ids", "material request %d belongs to another project", id)
		}
		if m.ArchivedAt != nil {
			return decimal.Zero, domain.NewValidationError("material_ids", "material request %d is archived", id)
		}
		if !m.Status.CanTransition(domain.MaterialApproved) {
			return decimal.Zero, domain.InvalidTransition("material request "+strconv.FormatInt(id, 10), m.Status, domain.MaterialApproved)
		}
		total = total.Add(m.TotalCost)
	}
	return total, nil
}

// ReceiveMaterial records delivery of an approved or ordered request. Its cost
// already counts as spend, so no capital check is needed.
func (s *Service) ReceiveMaterial(ctx context.Context, materialID, actorID int64) (*MaterialResult, error) {
	var (
		m  *domain.MaterialRequest
		ev recalc.Event
	)
	err := s.uow.WithinTx(ctx, func(tx *gorm.DB) error {
		ctx := tx.Statement.Context
		locked, err := s.spend.WithTx(tx).GetMaterialForUpdate(ctx, materialID)
		if err != nil {
			return err
		}
		if locked.ArchivedAt != nil {
			return domain.NewValidationError("material_id", "material request %d is archived", materialID)
		}
		if !locked.Status.CanTransition(domain.MaterialReceived) {
			return domain.InvalidTransition("material request", locked.Status, domain.MaterialReceived)
		}
		now := s.now()
		locked.Status = domain.MaterialReceived
		locked.ReceivedAt = &now
		if err := s.spend.WithTx(tx).SaveMaterial(ctx, locked); err != nil {
			return err
		}
		m = locked
		if locked.PhaseID != nil {
			ev = newEvent(locked.ProjectID, "material_received", *locked.PhaseID)
		} else {
			ev = newEvent(locked.ProjectID, "material_received")
		}
		return s.cascade.Schedule(tx, ev)
	})
	if err != nil {
		return nil, err
	}

	warnings := s.finish(ctx, ev,
		auditEntry(actorID, "material.receive", "material_request", m.ID, m.ProjectID, map[string]any{"status": m.Status}),
		[]integrations.Notification{{
			UserID: m.RequestedBy,
			Type:   integrations.TypeMaterialReceived,
			Title:  "Material received",
			Body:   m.Description,
			Data:   integrations.NotificationData{ProjectID: int64Ptr(m.ProjectID), MaterialID: int64Ptr(m.ID)},
		}},
	)
	return &MaterialResult{Material: m, Warnings: warnings}, nil
}
