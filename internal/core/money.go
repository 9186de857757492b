// Package core provides the domain types and the pure date arithmetic used by
// the batch processors.
//
// Money is always carried in integer minor units (cents). Conversion to major
// units happens only when a value leaves the core, through Major.
package core

import (
	"github.com/shopspring/decimal"
)

// minorUnitExp is the decimal exponent of one minor unit (1 cent = 10^-2).
const minorUnitExp = -2

type Money struct {
	Cents int64
}

func Cents(c int64) Money {
	return Money{Cents: c}
}

// Abs returns the magnitude of the amount. Ledger entries may be stored
// signed; totals are always sums of magnitudes.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (m Money) IsZero() bool {
	return m.Cents == 0
}

// Decimal returns the exact major-unit value.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, minorUnitExp)
}

// Major returns the major-unit value for display and payloads.
func (m Money) Major() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// FromMajor converts a major-unit value to cents, rounding half away from zero.
func FromMajor(v float64) Money {
	return Money{Cents: decimal.NewFromFloat(v).Shift(-minorUnitExp).Round(0).IntPart()}
}
