// Command seed loads a demo portfolio and walks it through the common financial
// flows so a fresh database has realistic figures to look at.
package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"buildledger/internal/app"
	"buildledger/internal/config"
	"buildledger/internal/domain"
	"buildledger/internal/logging"
	"buildledger/internal/modules/project"
	"buildledger/internal/modules/reallocation"
	"buildledger/internal/pkg/moneyfmt"
)

const (
	ownerID   int64 = 1
	financeID int64 = 2
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.WithError(err).Fatal("invalid configuration")
	}
	logging.Init(logging.Options{Service: "seed", Level: cfg.LogLevel})
	log := logging.Logger.WithField("service", "seed")

	a, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer func() { _ = a.Close() }()

	ctx := context.Background()
	existing, err := a.Projects.ListProjects(ctx, true)
	if err != nil {
		log.WithError(err).Fatal("listing projects failed")
	}
	if len(existing) > 0 {
		log.WithField("projects", len(existing)).Info("database already seeded, nothing to do")
		return
	}

	s := &seeder{a: a, log: log}
	s.riverside(ctx)
	s.harbourView(ctx)
	log.Info("seed complete")
}

type seeder struct {
	a   *app.App
	log logrus.FieldLogger
}

func (s *seeder) must(err error, step string) {
	if err != nil {
		s.log.WithError(err).Fatalf("seed step %q failed", step)
	}
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// riverside is a funded project in progress: approved spend, an active contract
// and one executed reallocation.
func (s *seeder) riverside(ctx context.Context) {
	p, err := s.a.Projects.CreateProject(ctx, ownerID, project.CreateProjectRequest{
		Name:              "Riverside Apartments",
		Status:            domain.ProjectActive,
		BudgetTotal:       d("500000"),
		BudgetMaterials:   d("200000"),
		BudgetLabour:      d("180000"),
		BudgetContingency: d("40000"),
		IndirectBudget:    d("25000"),
	})
	s.must(err, "create riverside")
	pid := p.Project.ID

	foundations, err := s.a.Projects.CreatePhase(ctx, pid, project.CreatePhaseRequest{
		Name: "Foundations",
		Allocation: project.BudgetSplit{
			Total: d("60000"), Materials: d("35000"), LabourSkilled: d("15000"), Equipment: d("10000"),
		},
	})
	s.must(err, "create foundations")
	structure, err := s.a.Projects.CreatePhase(ctx, pid, project.CreatePhaseRequest{
		Name:       "Structure",
		Allocation: project.BudgetSplit{Total: d("180000"), Materials: d("110000"), LabourSkilled: d("50000")},
	})
	s.must(err, "create structure")
	fid, sid := foundations.Phase.ID, structure.Phase.ID

	for _, inv := range []struct {
		name   string
		amount string
	}{{"Northwind Capital", "210000"}, {"Keel Family Office", "90000"}} {
		investor, err := s.a.Projects.CreateInvestor(ctx, project.CreateInvestorRequest{Name: inv.name})
		s.must(err, "create investor")
		_, err = s.a.Ledger.AllocateCapital(ctx, investor.ID, pid, d(inv.amount))
		s.must(err, "allocate capital")
	}

	concrete, err := s.a.Projects.CreateExpense(ctx, pid, ownerID, project.CreateExpenseRequest{
		PhaseID: &fid, Category: domain.ExpenseMaterials, Description: "Ready-mix concrete", Amount: d("14250"),
	})
	s.must(err, "create concrete expense")
	_, err = s.a.Coordinator.ApproveExpense(ctx, concrete.Expense.ID, financeID)
	s.must(err, "approve concrete")

	crew, err := s.a.Projects.CreateExpense(ctx, pid, ownerID, project.CreateExpenseRequest{
		PhaseID: &fid, Category: domain.ExpenseLabour, LabourType: domain.LabourSkilled,
		Description: "Formwork crew, week 1", Amount: d("5750"),
	})
	s.must(err, "create crew expense")
	_, err = s.a.Coordinator.ApproveExpense(ctx, crew.Expense.ID, financeID)
	s.must(err, "approve crew")

	site, err := s.a.Projects.CreateExpense(ctx, pid, ownerID, project.CreateExpenseRequest{
		Category: domain.ExpenseOther, IsIndirect: true, IndirectCategory: domain.IndirectSiteOverhead,
		Description: "Site office rental", Amount: d("2400"),
	})
	s.must(err, "create site expense")
	_, err = s.a.Coordinator.ApproveExpense(ctx, site.Expense.ID, financeID)
	s.must(err, "approve site")

	permits, err := s.a.Projects.CreateInitialExpense(ctx, pid, ownerID, project.CreateInitialExpenseRequest{
		Category: "permits", Description: "Building permit", Amount: d("8000"),
	})
	s.must(err, "create permit")
	_, err = s.a.Coordinator.ApproveInitialExpense(ctx, permits.ID, financeID)
	s.must(err, "approve permit")

	var batch []int64
	for _, m := range []struct {
		desc, qty, unit string
	}{{"Rebar 12mm (t)", "18", "920"}, {"Structural steel beams", "40", "610.50"}} {
		mr, err := s.a.Projects.CreateMaterial(ctx, pid, ownerID, project.CreateMaterialRequest{
			PhaseID: &sid, Description: m.desc, Quantity: d(m.qty), UnitCost: d(m.unit),
		})
		s.must(err, "create material")
		batch = append(batch, mr.ID)
	}
	_, err = s.a.Coordinator.BulkApproveMaterials(ctx, pid, batch, financeID)
	s.must(err, "approve materials")
	_, err = s.a.Coordinator.ReceiveMaterial(ctx, batch[0], financeID)
	s.must(err, "receive rebar")

	engineering, err := s.a.Projects.CreateContract(ctx, pid, project.CreateContractRequest{
		PhaseID: &sid, Kind: domain.ContractKindProfessionalService,
		Title: "Structural engineering", Counterparty: "Arch & Load LLP", ContractValue: d("30000"),
	})
	s.must(err, "create contract")
	_, err = s.a.Commitments.TransitionContract(ctx, engineering.ID, domain.ContractActive, financeID)
	s.must(err, "activate contract")
	_, err = s.a.Commitments.RecordFeePayment(ctx, engineering.ID, d("12000"), financeID)
	s.must(err, "pay engineering fee")

	move, err := s.a.Reallocation.Create(ctx, pid, reallocation.CreateRequest{
		ReallocationType: domain.PhaseToPhase, FromPhaseID: &fid, ToPhaseID: &sid,
		Amount: d("10000"), Reason: "Foundations came in under estimate",
	}, ownerID)
	s.must(err, "request reallocation")
	_, err = s.a.Reallocation.Approve(ctx, move.ID, financeID)
	s.must(err, "approve reallocation")
	_, err = s.a.Reallocation.Execute(ctx, move.ID, financeID)
	s.must(err, "execute reallocation")

	s.report(ctx, pid)
}

// harbourView is fully spent: any further approval fails the capital check.
func (s *seeder) harbourView(ctx context.Context) {
	p, err := s.a.Projects.CreateProject(ctx, ownerID, project.CreateProjectRequest{
		Name: "Harbour View Retrofit", Status: domain.ProjectActive, BudgetTotal: d("120000"),
	})
	s.must(err, "create harbour view")
	pid := p.Project.ID

	investor, err := s.a.Projects.CreateInvestor(ctx, project.CreateInvestorRequest{Name: "Harbour Holdings"})
	s.must(err, "create investor")
	_, err = s.a.Ledger.AllocateCapital(ctx, investor.ID, pid, d("50000"))
	s.must(err, "allocate capital")

	works, err := s.a.Projects.CreateExpense(ctx, pid, ownerID, project.CreateExpenseRequest{
		Category: domain.ExpenseEquipment, Description: "Facade scaffolding, full term", Amount: d("50000"),
	})
	s.must(err, "create works expense")
	_, err = s.a.Coordinator.ApproveExpense(ctx, works.Expense.ID, financeID)
	s.must(err, "approve works")

	extra, err := s.a.Projects.CreateExpense(ctx, pid, ownerID, project.CreateExpenseRequest{
		Category: domain.ExpenseOther, Description: "Glazing repairs", Amount: d("3200"),
	})
	s.must(err, "create pending expense")
	if _, err := s.a.Coordinator.ApproveExpense(ctx, extra.Expense.ID, financeID); err != nil {
		s.log.WithError(err).Info("approval blocked as expected")
	}

	s.report(ctx, pid)
}

func (s *seeder) report(ctx context.Context, projectID int64) {
	summary, err := s.a.Ledger.Summary(ctx, projectID)
	s.must(err, "summary")
	s.log.WithFields(logrus.Fields{
		"project_id": projectID,
		"invested":   moneyfmt.Format(summary.Finances.TotalInvested),
		"used":       moneyfmt.Format(summary.Finances.TotalUsed),
		"committed":  moneyfmt.Format(summary.Finances.CommittedTotal),
		"balance":    moneyfmt.Format(summary.Finances.CapitalBalance),
		"available":  moneyfmt.Format(summary.AvailableCapital),
	}).Info("project seeded")
}
