package moneyfmt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIn(t *testing.T) {
	assert.Equal(t, "$5,000.00", FormatIn(decimal.NewFromInt(5000), "USD"))
	assert.Equal(t, "$0.10", FormatIn(decimal.RequireFromString("0.104"), "USD"))
	assert.Equal(t, "12.50", FormatIn(decimal.RequireFromString("12.5"), "XXX-unknown"))
}

func TestSetCurrencyRejectsUnknownCode(t *testing.T) {
	require.Error(t, SetCurrency("nope"))
	assert.Equal(t, "USD", Currency())
}
