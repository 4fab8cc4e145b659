package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validPosition() *Position {
	return &Position{
		Ticker:      "AAPL",
		BuyDate:     time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		BuyQuantity: decimal.NewFromInt(10),
		BuyPrice:    decimal.NewFromInt(150),
	}
}

func TestValidateAcceptsWellFormedPosition(t *testing.T) {
	if err := validPosition().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Position)
	}{
		{"empty ticker", func(p *Position) { p.Ticker = "" }},
		{"ticker too long", func(p *Position) { p.Ticker = "TOOLONG" }},
		{"ticker with digits", func(p *Position) { p.Ticker = "AB1" }},
		{"zero quantity", func(p *Position) { p.BuyQuantity = decimal.Zero }},
		{"negative price", func(p *Position) { p.BuyPrice = decimal.NewFromInt(-1) }},
		{"missing buy date", func(p *Position) { p.BuyDate = time.Time{} }},
	}
	for _, tc := range cases {
		p := validPosition()
		tc.mutate(p)
		if err := p.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestNormalizeUppercasesTicker(t *testing.T) {
	p := validPosition()
	p.Ticker = "brk.b"
	p.Normalize()
	if p.Ticker != "BRK.B" {
		t.Errorf("expected BRK.B, got %s", p.Ticker)
	}
}

func TestPriceAvailable(t *testing.T) {
	p := validPosition()
	p.CurrentPrice = PriceUnavailable
	if p.PriceAvailable() {
		t.Error("sentinel price should read as unavailable")
	}
	p.CurrentPrice = decimal.NewFromInt(30)
	if !p.PriceAvailable() {
		t.Error("real price should read as available")
	}
}

func TestMonthKeyIsUnpadded(t *testing.T) {
	key := MonthKey(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC))
	if key != "2024-3" {
		t.Errorf("expected 2024-3, got %s", key)
	}
}

func TestPrevMonthHandlesLongMonthEnds(t *testing.T) {
	// Naive AddDate(0,-1,0) on March 31 normalizes to March 3.
	got := PrevMonth(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC))
	if got.Year() != 2024 || got.Month() != time.February {
		t.Errorf("expected February 2024, got %v", got)
	}
}

func TestPrevMonthCrossesYearBoundary(t *testing.T) {
	got := PrevMonth(time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))
	if got.Year() != 2023 || got.Month() != time.December {
		t.Errorf("expected December 2023, got %v", got)
	}
}
