package domain

import (
	"github.com/shopspring/decimal"
)

// Amount is a non-negative money value denominated in the smallest unit of
// the network currency (lamports on Solana, winston on Arweave/Bundlr).
// Arbitrary precision; construction clamps negatives to zero.
type Amount struct {
	value decimal.Decimal
}

// NewAmount creates an Amount from an integer number of smallest units.
func NewAmount(units int64) Amount {
	if units < 0 {
		units = 0
	}
	return Amount{value: decimal.NewFromInt(units)}
}

// AmountFromUint64 creates an Amount from an unsigned unit count.
func AmountFromUint64(units uint64) Amount {
	return Amount{value: decimal.NewFromUint64(units)}
}

// AmountFromDecimal creates an Amount from a decimal value, clamped at zero.
func AmountFromDecimal(d decimal.Decimal) Amount {
	if d.IsNegative() {
		return Amount{value: decimal.Zero}
	}
	return Amount{value: d}
}

// ZeroAmount returns the zero value.
func ZeroAmount() Amount {
	return Amount{value: decimal.Zero}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{value: a.value.Add(b.value)}
}

// Subtract returns a - b floored at zero.
func (a Amount) Subtract(b Amount) Amount {
	diff := a.value.Sub(b.value)
	if diff.IsNegative() {
		return Amount{value: decimal.Zero}
	}
	return Amount{value: diff}
}

// MultiplyCeil returns a * factor rounded up to a whole unit. Prices are
// always rounded in the payer's disfavor so a quote never underpays.
func (a Amount) MultiplyCeil(factor decimal.Decimal) Amount {
	return AmountFromDecimal(a.value.Mul(factor).Ceil())
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.value.Cmp(b.value)
}

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool {
	return a.value.GreaterThan(b.value)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.value.IsZero()
}

// Uint64 returns the amount as an unsigned unit count.
// Values that exceed uint64 range are truncated by the underlying decimal.
func (a Amount) Uint64() uint64 {
	return uint64(a.value.IntPart())
}

// Decimal returns the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.value
}

// String formats the amount in smallest units.
func (a Amount) String() string {
	return a.value.String()
}
