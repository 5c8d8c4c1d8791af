package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildledger/internal/domain"
)

// Fault maps an engine error onto the error envelope.
func Fault(c *gin.Context, err error) {
	var verr *domain.ValidationError
	var ferr *domain.InsufficientFundsError

	switch {
	case errors.As(err, &verr):
		ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), gin.H{
			"field": verr.Field,
		})
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.As(err, &ferr):
		ErrorWithDetails(c, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", ferr.Error(), gin.H{
			"scope":     ferr.Scope,
			"scope_id":  ferr.ScopeID,
			"available": ferr.Available.StringFixed(2),
			"required":  ferr.Required.StringFixed(2),
			"shortfall": ferr.Shortfall.StringFixed(2),
		})
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, domain.ErrProjectHasSpending):
		Error(c, http.StatusConflict, "PROJECT_HAS_SPENDING", err.Error())
	case errors.Is(err, domain.ErrTransactionsRequired):
		Error(c, http.StatusServiceUnavailable, "TRANSACTIONS_REQUIRED", err.Error())
	case errors.Is(err, domain.ErrTransactionAborted):
		Error(c, http.StatusConflict, "RETRY", err.Error())
	default:
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// BindError reports a malformed request body.
func BindError(c *gin.Context, err error) {
	ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", err.Error())
}
