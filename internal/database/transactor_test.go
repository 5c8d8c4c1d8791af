package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"buildledger/internal/database"
	"buildledger/internal/domain"
	"buildledger/internal/testutil"
)

func countProjects(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Project{}).Where("name = ?", name).Count(&n).Error)
	return n
}

func TestWithinTx_CommitOnSuccess(t *testing.T) {
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)

	err := uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&domain.Project{Name: "commit", OwnerID: 1, BudgetTotal: decimal.NewFromInt(10)}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countProjects(t, db, "commit"))
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)

	err := uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&domain.Project{Name: "rollback", OwnerID: 1}).Error; err != nil {
			return err
		}
		return fmt.Errorf("deliberate failure")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deliberate failure")
	assert.Equal(t, int64(0), countProjects(t, db, "rollback"))
}

func TestWithinTx_RollbackOnPanic(t *testing.T) {
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)

	assert.Panics(t, func() {
		_ = uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
			_ = tx.Create(&domain.Project{Name: "panic", OwnerID: 1}).Error
			panic("boom")
		})
	})
	assert.Equal(t, int64(0), countProjects(t, db, "panic"))
}

func TestWithinTx_IgnoresCallerCancellation(t *testing.T) {
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := uow.WithinTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&domain.Project{Name: "detached", OwnerID: 1}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countProjects(t, db, "detached"))
}

func TestNilTransactorFailsClosed(t *testing.T) {
	var uow *database.Transactor
	called := false

	err := uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrTransactionsRequired)
	assert.False(t, called)
}

func TestNewTransactorDisabled(t *testing.T) {
	db := testutil.NewTestDB(t)

	uow, err := database.NewTransactor(db, database.TransactionsDisabled, time.Second)
	assert.Nil(t, uow)
	assert.ErrorIs(t, err, domain.ErrTransactionsRequired)
}

func TestWithinTx_ClassifiesSerializationFailure(t *testing.T) {
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestTransactor(t, db)

	err := uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
		return fmt.Errorf("update: %w", &pgconn.PgError{Code: "40001", Message: "could not serialize access"})
	})
	assert.ErrorIs(t, err, domain.ErrTransactionAborted)

	err = uow.WithinTx(context.Background(), func(tx *gorm.DB) error {
		return domain.ErrValidation
	})
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.False(t, errors.Is(err, domain.ErrTransactionAborted))
}
