// Package app wires the engine's services from configuration. The API server,
// the seed tool and the operator CLI share it.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"buildledger/internal/config"
	"buildledger/internal/database"
	"buildledger/internal/integrations"
	"buildledger/internal/modules/commitment"
	"buildledger/internal/modules/coordinator"
	"buildledger/internal/modules/ledger"
	"buildledger/internal/modules/project"
	"buildledger/internal/modules/reallocation"
	"buildledger/internal/modules/recalc"
	"buildledger/internal/pkg/moneyfmt"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	UoW    *database.Transactor

	Ledger       *ledger.Service
	Cascade      *recalc.Cascade
	Worker       *recalc.Worker
	Commitments  *commitment.Service
	Reallocation *reallocation.Service
	Coordinator  *coordinator.Service
	Projects     *project.Service
}

// New connects, migrates and builds every service. It fails when the store
// cannot run transactions: the engine has no non-atomic mode.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if err := moneyfmt.SetCurrency(cfg.Currency); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	uow, err := database.NewTransactor(db, cfg.DBTransactions, cfg.TxTimeout)
	if err != nil {
		return nil, err
	}

	ledgerSvc := ledger.NewService(uow, log)
	cascade := recalc.NewCascade(uow, ledgerSvc, cfg.RecalcMode, log)
	coord, err := coordinator.NewService(uow, ledgerSvc, cascade, coordinator.Options{
		Audit:    integrations.NewLogAuditSink(cfg.AuditLogFile),
		Notifier: notifier(cfg, log),
		Assets:   integrations.NewDirAssetCleaner(cfg.AssetDir, log),
	}, log)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:  cfg,
		DB:      db,
		UoW:     uow,
		Ledger:  ledgerSvc,
		Cascade: cascade,
		Worker: recalc.NewWorker(cascade, recalc.WorkerConfig{
			PollInterval: cfg.OutboxPollInterval,
			MaxAttempts:  cfg.OutboxMaxAttempts,
		}, log),
		Commitments:  commitment.NewService(uow, ledgerSvc, cascade, log),
		Reallocation: reallocation.NewService(uow, cascade, log),
		Coordinator:  coord,
		Projects:     project.NewService(uow, log),
	}, nil
}

func notifier(cfg *config.Config, log logrus.FieldLogger) coordinator.Notifier {
	if cfg.NotifyWebhookURL == "" {
		return integrations.NewLogNotifier(log)
	}
	return integrations.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyTimeout, log)
}

func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// NewReconcileScheduler builds the periodic commitment checksum job.
func NewReconcileScheduler(a *App, log logrus.FieldLogger) *commitment.Scheduler {
	return commitment.NewScheduler(a.Commitments, a.Config.ReconcileInterval, a.Config.ReconcileRepair, log)
}
