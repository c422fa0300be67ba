// Package valueobject holds monetary helpers shared by orders, payments and
// cash sessions. Amounts are decimal.Decimal rounded to two places; floats never
// carry money.
package valueobject

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places kept for monetary amounts
const MoneyScale int32 = 2

var (
	ErrInvalidSplitCount = errors.New("split count must be at least 1")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
)

// RoundMoney rounds half away from zero to two places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ParseMoney parses a string amount and rounds it to two places
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return RoundMoney(d), nil
}

// MustMoney parses s and panics on error; intended for constants and tests
func MustMoney(s string) decimal.Decimal {
	d, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LineAmount is quantity × unit price, rounded
func LineAmount(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// Sum adds amounts
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Split divides total into n shares of whole cents. Every share but the last is
// total/n truncated to the cent; the last share absorbs the remainder, so the
// shares always sum to the rounded total.
//
//	Split(100.00, 3) = [33.33 33.33 33.34]
func Split(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < 1 {
		return nil, ErrInvalidSplitCount
	}
	total = RoundMoney(total)
	if total.IsNegative() {
		return nil, ErrNegativeAmount
	}

	share := total.Div(decimal.NewFromInt(int64(n))).Truncate(MoneyScale)
	shares := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		shares[i] = share
		allocated = allocated.Add(share)
	}
	shares[n-1] = total.Sub(allocated)
	return shares, nil
}

// PositiveDifference returns max(0, a − b)
func PositiveDifference(a, b decimal.Decimal) decimal.Decimal {
	diff := a.Sub(b)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return RoundMoney(diff)
}
