package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"buildledger/internal/finance/calc"
	"buildledger/internal/pkg/moneyfmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation error")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrProjectHasSpending   = errors.New("project has recorded spending, force is required to delete it")
	ErrTransactionsRequired = errors.New("operation requires transactional support")
	ErrTransactionAborted   = errors.New("transaction aborted, retry")
)

// ValidationError is a rejected input, reported before any state change.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type FundsScope string

const (
	ScopeCapital       FundsScope = "capital"
	ScopePhaseBudget   FundsScope = "phase_budget"
	ScopeProjectBudget FundsScope = "project_budget"
)

// InsufficientFundsError is a business-rule rejection carrying the figures a caller
// needs to explain it.
type InsufficientFundsError struct {
	Scope     FundsScope      `json:"scope"`
	ScopeID   int64           `json:"scope_id"`
	Available decimal.Decimal `json:"available"`
	Required  decimal.Decimal `json:"required"`
	Shortfall decimal.Decimal `json:"shortfall"`
}

func NewInsufficientFunds(scope FundsScope, scopeID int64, available, required decimal.Decimal) *InsufficientFundsError {
	return &InsufficientFundsError{
		Scope:     scope,
		ScopeID:   scopeID,
		Available: available,
		Required:  required,
		Shortfall: calc.Shortfall(required, available),
	}
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient %s: available %s, required %s, shortfall %s",
		e.Scope,
		moneyfmt.Format(e.Available),
		moneyfmt.Format(e.Required),
		moneyfmt.Format(e.Shortfall),
	)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

func InvalidTransition(entity string, from, to any) error {
	return fmt.Errorf("%w: %s %v -> %v", ErrInvalidTransition, entity, from, to)
}

func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}
