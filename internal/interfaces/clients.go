// Package interfaces defines service contracts for Vergo
package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/models"
)

// EVDSClient provides access to the TCMB EVDS API. Credentials are passed
// per call: the engine receives a resolved key per provider for each run.
type EVDSClient interface {
	// GetUSDTRYRate retrieves the USD/TRY rate for one calendar day.
	// ok is false when the provider answered successfully but published no
	// value for that day (weekend or holiday).
	GetUSDTRYRate(ctx context.Context, day time.Time, apiKey string) (rate decimal.Decimal, ok bool, err error)

	// GetUFESeries retrieves the monthly producer-price index series for
	// [from, to], keyed by unpadded year-month ("2024-3").
	GetUFESeries(ctx context.Context, from, to time.Time, apiKey string) (map[string]decimal.Decimal, error)
}

// MarketDataClient provides access to the Yahoo Finance gateway
type MarketDataClient interface {
	// GetQuotes retrieves current prices for a batch of tickers in one
	// request. Unrecognized tickers are simply absent from the result.
	GetQuotes(ctx context.Context, tickers []string, apiKey string) (map[string]decimal.Decimal, error)

	// GetSplits retrieves the full split history for a ticker, ordered by
	// effective date ascending. No history is an empty list, not an error.
	GetSplits(ctx context.Context, ticker string, apiKey string) ([]models.Split, error)
}
