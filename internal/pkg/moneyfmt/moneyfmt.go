// Package moneyfmt renders decimal amounts in the deployment's single currency.
package moneyfmt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	mu       sync.RWMutex
	currency = money.USD
)

// SetCurrency selects the ISO 4217 code used by Format.
func SetCurrency(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency %q", code)
	}
	mu.Lock()
	currency = code
	mu.Unlock()
	return nil
}

func Currency() string {
	mu.RLock()
	defer mu.RUnlock()
	return currency
}

func Format(d decimal.Decimal) string {
	return FormatIn(d, Currency())
}

func FormatIn(d decimal.Decimal, code string) string {
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2)
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
