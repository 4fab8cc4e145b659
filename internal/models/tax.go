package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxBracket is one range of the progressive schedule. Base is the tax
// accumulated by all brackets below Lower, so tax within the bracket is
// Base + (income-Lower)*Rate. Upper is zero on the last, open-ended bracket.
type TaxBracket struct {
	Lower decimal.Decimal `json:"lower"`
	Upper decimal.Decimal `json:"upper"`
	Rate  decimal.Decimal `json:"rate"`
	Base  decimal.Decimal `json:"base"`
}

// Schedule is an ordered progressive bracket table. Brackets vary by tax
// year, so the schedule is configuration, never hard-coded in the engine.
type Schedule struct {
	Brackets []TaxBracket
}

// Validate checks that the schedule is contiguous, strictly increasing, and
// continuous: each bracket's base must equal the tax accumulated at its
// lower bound by the brackets below it. A schedule that fails the base check
// would produce a discontinuous jump at the threshold.
func (s Schedule) Validate() error {
	if len(s.Brackets) == 0 {
		return fmt.Errorf("tax schedule has no brackets")
	}
	first := s.Brackets[0]
	if !first.Lower.IsZero() {
		return fmt.Errorf("first bracket must start at 0, got %s", first.Lower)
	}
	if !first.Base.IsZero() {
		return fmt.Errorf("first bracket base must be 0, got %s", first.Base)
	}
	one := decimal.NewFromInt(1)
	for i, b := range s.Brackets {
		if !b.Rate.IsPositive() || b.Rate.GreaterThan(one) {
			return fmt.Errorf("bracket %d: rate %s out of (0,1]", i, b.Rate)
		}
		last := i == len(s.Brackets)-1
		if last {
			if !b.Upper.IsZero() {
				return fmt.Errorf("last bracket must be open-ended (upper 0), got %s", b.Upper)
			}
			continue
		}
		if !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("bracket %d: upper %s not above lower %s", i, b.Upper, b.Lower)
		}
		next := s.Brackets[i+1]
		if !next.Lower.Equal(b.Upper) {
			return fmt.Errorf("bracket %d: gap between upper %s and next lower %s", i, b.Upper, next.Lower)
		}
		wantBase := b.Base.Add(b.Upper.Sub(b.Lower).Mul(b.Rate))
		if !next.Base.Equal(wantBase) {
			return fmt.Errorf("bracket %d: base %s breaks continuity at %s (want %s)", i+1, next.Base, next.Lower, wantBase)
		}
	}
	return nil
}

// Tax applies the progressive schedule to income. Non-positive income owes
// nothing.
func (s Schedule) Tax(income decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	for _, b := range s.Brackets {
		open := b.Upper.IsZero()
		if open || income.LessThanOrEqual(b.Upper) {
			return b.Base.Add(income.Sub(b.Lower).Mul(b.Rate))
		}
	}
	// unreachable on a validated schedule
	return decimal.Zero
}

// DefaultSchedule returns the published 2025 Turkish income-tax schedule,
// with bases recomputed so the table is continuous at every threshold.
func DefaultSchedule() Schedule {
	d := decimal.NewFromInt
	r := decimal.NewFromFloat
	return Schedule{Brackets: []TaxBracket{
		{Lower: d(0), Upper: d(158_000), Rate: r(0.15), Base: d(0)},
		{Lower: d(158_000), Upper: d(330_000), Rate: r(0.20), Base: d(23_700)},
		{Lower: d(330_000), Upper: d(1_200_000), Rate: r(0.27), Base: d(58_100)},
		{Lower: d(1_200_000), Upper: d(4_300_000), Rate: r(0.35), Base: d(293_000)},
		{Lower: d(4_300_000), Rate: r(0.40), Base: d(1_378_000)},
	}}
}
