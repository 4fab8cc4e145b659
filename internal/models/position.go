// Package models defines the data records exchanged with the tax engine
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceUnavailable is the sentinel CurrentPrice for tickers the market-data
// provider did not return. Such positions contribute zero profit.
var PriceUnavailable = decimal.NewFromInt(-1)

var tickerPattern = regexp.MustCompile(`^[A-Za-z.]{1,5}$`)

// Position is one foreign-equity lot. The caller supplies the first four
// fields; every other field is overwritten each time the engine runs.
type Position struct {
	Ticker      string          `json:"ticker"`
	BuyDate     time.Time       `json:"buy_date"`
	BuyQuantity decimal.Decimal `json:"buy_quantity"`
	BuyPrice    decimal.Decimal `json:"buy_price"`

	CurrentPrice   decimal.Decimal `json:"current_price"`
	BuyRate        decimal.Decimal `json:"buy_rate"`
	SellRate       decimal.Decimal `json:"sell_rate"`
	BuyIndex       RateSample      `json:"buy_index"`
	SellIndex      RateSample      `json:"sell_index"`
	Profit         decimal.Decimal `json:"profit"`
	MinTaxEstimate decimal.Decimal `json:"min_tax_estimate"`
	AppliedSplits  []Split         `json:"applied_splits,omitempty"`
}

// Normalize upper-cases the ticker the way providers expect it.
func (p *Position) Normalize() {
	p.Ticker = strings.ToUpper(p.Ticker)
}

// Validate checks the caller-supplied fields.
func (p *Position) Validate() error {
	if !tickerPattern.MatchString(p.Ticker) {
		return fmt.Errorf("ticker %q must be 1-5 letters or dots", p.Ticker)
	}
	if p.BuyDate.IsZero() {
		return fmt.Errorf("ticker %s: buy date is required", p.Ticker)
	}
	if !p.BuyQuantity.IsPositive() {
		return fmt.Errorf("ticker %s: buy quantity must be positive", p.Ticker)
	}
	if !p.BuyPrice.IsPositive() {
		return fmt.Errorf("ticker %s: buy price must be positive", p.Ticker)
	}
	return nil
}

// PriceAvailable reports whether the market-data batch priced this position.
func (p *Position) PriceAvailable() bool {
	return !p.CurrentPrice.Equal(PriceUnavailable)
}

// Split is a share subdivision event. Factor is the ratio of post- to
// pre-split share count (2 for a 2:1 split).
type Split struct {
	EffectiveDate time.Time       `json:"effective_date"`
	Factor        decimal.Decimal `json:"factor"`
}

// RateSample is a resolved value tagged with the date or month it was
// actually sourced from, which differs from the requested one whenever a
// lookback or fallback applied.
type RateSample struct {
	Value decimal.Decimal `json:"value"`
	Date  time.Time       `json:"date,omitzero"`  // FX: the day the rate was published for
	Month string          `json:"month,omitempty"` // index: the YYYY-M key actually used
}

// MonthKey formats t's year-month the way the EVDS payload keys its monthly
// series: unpadded, e.g. "2024-3".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}

// PrevMonth returns the first day of the month before t's month. Going
// through the month start avoids Go's day-overflow normalization (March 31
// minus one month must land in February, not on March 3).
func PrevMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m-1, 1, 0, 0, 0, 0, time.UTC)
}

// Credentials carries the resolved per-provider API keys for one engine run.
type Credentials struct {
	EVDS  string
	Yahoo string
}

// Result is the outcome of one engine run. Per-position figures are written
// back onto the caller's Position records.
type Result struct {
	BatchID     string          `json:"batch_id"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	TotalTax    decimal.Decimal `json:"total_tax"`
	Warnings    []string        `json:"warnings,omitempty"`
}
