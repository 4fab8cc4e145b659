package tax

import (
	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/models"
)

// adjust computes the split- and inflation-adjusted realized profit for one
// position whose rate, index, and price inputs have already been resolved,
// records the derived fields on it, and returns its profit contribution.
//
// An unpriceable position contributes nothing and its splits and
// adjustments are skipped entirely: no assumption is made about an asset
// the market would not price.
func adjust(p *models.Position, splits []models.Split, minRate, indexThreshold decimal.Decimal) decimal.Decimal {
	if !p.PriceAvailable() {
		p.AppliedSplits = nil
		p.Profit = decimal.Zero
		p.MinTaxEstimate = decimal.Zero
		return decimal.Zero
	}

	// Only splits effective on or after the buy date change this holding;
	// their factors compose multiplicatively across the period.
	factor := decimal.NewFromInt(1)
	p.AppliedSplits = nil
	for _, split := range splits {
		if split.EffectiveDate.Before(p.BuyDate) {
			continue
		}
		factor = factor.Mul(split.Factor)
		p.AppliedSplits = append(p.AppliedSplits, split)
	}

	quantity := p.BuyQuantity.Mul(factor)
	unitCost := p.BuyPrice.Div(factor)

	// Index the cost basis only past the materiality threshold; smaller
	// cumulative inflation leaves the basis untouched.
	ratio := p.SellIndex.Value.Div(p.BuyIndex.Value)
	if ratio.GreaterThan(indexThreshold) {
		unitCost = unitCost.Mul(ratio)
	}

	profit := p.CurrentPrice.Mul(p.SellRate).
		Sub(unitCost.Mul(p.BuyRate)).
		Mul(quantity)
	// A loss never produces negative taxable income at the position level.
	if profit.IsNegative() {
		profit = decimal.Zero
	}

	p.Profit = profit
	p.MinTaxEstimate = profit.Mul(minRate).Round(2)
	return profit
}
