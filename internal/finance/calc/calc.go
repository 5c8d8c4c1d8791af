// Package calc holds the side-effect-free money arithmetic shared by the engine.
// None of these functions fail: negative or zero results are business states.
package calc

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// AvailableBudget is allocation - actual - committed. A negative result signals
// over-commitment.
func AvailableBudget(allocation, actual, committed decimal.Decimal) decimal.Decimal {
	return allocation.Sub(actual).Sub(committed)
}

// AvailableCapital is invested - used. A negative result means spending outran capital.
func AvailableCapital(totalInvested, totalUsed decimal.Decimal) decimal.Decimal {
	return totalInvested.Sub(totalUsed)
}

// UtilizationPercentage returns used/allocated*100, or 0 when nothing is allocated.
func UtilizationPercentage(used, allocated decimal.Decimal) decimal.Decimal {
	if !allocated.IsPositive() {
		return decimal.Zero
	}
	return used.Div(allocated).Mul(hundred)
}

// Variance is the unspent part of an allocation; negative means overspend.
func Variance(allocation, actual decimal.Decimal) decimal.Decimal {
	return allocation.Sub(actual)
}

// VariancePercentage is Variance as a share of the allocation, or 0 when nothing is allocated.
func VariancePercentage(allocation, actual decimal.Decimal) decimal.Decimal {
	if !allocation.IsPositive() {
		return decimal.Zero
	}
	return Variance(allocation, actual).Div(allocation).Mul(hundred)
}

// Commitment is max(0, contractValue - feesPaid).
func Commitment(contractValue, feesPaid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, contractValue.Sub(feesPaid))
}

// Shortfall is max(0, required - available).
func Shortfall(required, available decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, required.Sub(available))
}

// Sum adds values without rounding.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Round2 rounds to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
