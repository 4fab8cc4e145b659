package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/models"
)

// RateService resolves point-in-time exchange rates and inflation indices
type RateService interface {
	// ResolveFX resolves the USD/TRY rate for day, walking backward through
	// prior days when the requested one has no published value.
	ResolveFX(ctx context.Context, day time.Time, credential string) (models.RateSample, error)

	// ResolveIndexSeries fetches (or serves from cache) the full monthly
	// inflation index series, keyed by unpadded year-month.
	ResolveIndexSeries(ctx context.Context, credential string) (map[string]decimal.Decimal, error)

	// ResolveIndexForMonth looks up day's month in series, falling back to
	// the previous month. A non-empty warning names both months when the
	// fallback applied.
	ResolveIndexForMonth(series map[string]decimal.Decimal, day time.Time) (sample models.RateSample, warning string, err error)
}

// MarketDataService resolves current prices and split histories
type MarketDataService interface {
	// ResolvePrices updates CurrentPrice on every position in place.
	// Tickers the provider does not return keep the unavailable sentinel.
	ResolvePrices(ctx context.Context, positions []*models.Position, credential string) error

	// ResolveSplits returns the split history for a ticker, ascending.
	ResolveSplits(ctx context.Context, ticker string, credential string) ([]models.Split, error)
}

// TaxService computes the progressive tax liability for a batch of positions
type TaxService interface {
	// Compute resolves all inputs, adjusts every position in place, and
	// returns the aggregate result. Any resolver error aborts the batch;
	// an unpriceable ticker only zeroes its own position.
	Compute(ctx context.Context, positions []*models.Position, creds models.Credentials) (*models.Result, error)
}
