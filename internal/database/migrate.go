package database

import (
	"fmt"

	"gorm.io/gorm"

	"buildledger/internal/domain"
)

// Models lists every record owned by the engine, in creation order.
func Models() []interface{} {
	return []interface{}{
		&domain.Project{},
		&domain.Phase{},
		&domain.ProjectFinances{},
		&domain.Investor{},
		&domain.InvestorAllocation{},
		&domain.MaterialRequest{},
		&domain.Expense{},
		&domain.InitialExpense{},
		&domain.Contract{},
		&domain.BudgetReallocation{},
		&domain.RecalcTask{},
		&domain.ReconciliationReport{},
	}
}

func Migrate(db *gorm.DB) error {
	for _, model := range Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrating %T: %w", model, err)
		}
	}
	return nil
}
