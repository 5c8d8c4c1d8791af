package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"buildledger/internal/domain"
)

const (
	TransactionsAuto     = "auto"
	TransactionsDisabled = "disabled"
)

// Transactor is the unit of work for multi-record financial mutations. A Transactor
// only exists for stores that support transactions; operations that need atomicity
// take one and cannot run without it.
type Transactor struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewTransactor probes the store and fails with ErrTransactionsRequired when it
// cannot run transactions or when they are disabled by configuration.
func NewTransactor(db *gorm.DB, mode string, timeout time.Duration) (*Transactor, error) {
	if mode == TransactionsDisabled {
		return nil, fmt.Errorf("%w: disabled by configuration", domain.ErrTransactionsRequired)
	}
	if err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Exec("SELECT 1").Error
	}); err != nil {
		return nil, fmt.Errorf("%w: probe failed: %v", domain.ErrTransactionsRequired, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Transactor{db: db, timeout: timeout}, nil
}

func (t *Transactor) DB() *gorm.DB {
	return t.db
}

// WithinTx runs fn in a single transaction. The closure is not interrupted by the
// caller's cancellation, only by the transaction timeout, so a commit runs to
// completion or aborts as a whole.
func (t *Transactor) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if t == nil {
		return domain.ErrTransactionsRequired
	}
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	return classify(t.db.WithContext(txCtx).Transaction(fn))
}

// classify turns serialization failures, deadlocks, lock timeouts and expired
// transactions into ErrTransactionAborted so callers can offer a retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return fmt.Errorf("%w: %s", domain.ErrTransactionAborted, pgErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: transaction timeout", domain.ErrTransactionAborted)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy") {
		return fmt.Errorf("%w: %v", domain.ErrTransactionAborted, err)
	}
	return err
}
