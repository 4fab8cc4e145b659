// Package marketdata resolves current prices and split histories
package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/cache"
	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/interfaces"
	"github.com/ckaraca/vergo/internal/models"
)

// priceTTL keeps a quote for ten minutes; repeated computations within that
// window skip the provider entirely. Split histories are immutable once
// published and never expire.
const priceTTL = 10 * time.Minute

// Service implements MarketDataService on top of the Yahoo Finance client.
type Service struct {
	yahoo      interfaces.MarketDataClient
	priceCache *cache.Cache[decimal.Decimal]
	splitCache *cache.Cache[[]models.Split]
	logger     *common.Logger
}

// NewService creates a new market data service.
func NewService(yahoo interfaces.MarketDataClient, logger *common.Logger) *Service {
	return &Service{
		yahoo:      yahoo,
		priceCache: cache.New[decimal.Decimal](),
		splitCache: cache.New[[]models.Split](),
		logger:     logger,
	}
}

// ResolvePrices updates CurrentPrice on every position in place. Recently
// priced tickers are served from cache; the rest go to the provider in one
// batch call. Tickers the provider does not return keep the unavailable
// sentinel — one unrecognized symbol must not fail the whole batch.
func (s *Service) ResolvePrices(ctx context.Context, positions []*models.Position, credential string) error {
	if len(positions) == 0 {
		return nil
	}

	byTicker := make(map[string][]*models.Position)
	for _, p := range positions {
		p.CurrentPrice = models.PriceUnavailable
		ticker := strings.ToUpper(p.Ticker)
		byTicker[ticker] = append(byTicker[ticker], p)
	}

	var missing []string
	for ticker, group := range byTicker {
		if price, ok := s.priceCache.Get("price:" + ticker); ok {
			for _, p := range group {
				p.CurrentPrice = price
			}
			continue
		}
		missing = append(missing, ticker)
	}
	if len(missing) == 0 {
		return nil
	}

	prices, err := s.yahoo.GetQuotes(ctx, missing, credential)
	if err != nil {
		return err
	}

	for ticker, price := range prices {
		group, ok := byTicker[ticker]
		if !ok {
			continue
		}
		s.priceCache.Set("price:"+ticker, price, priceTTL)
		for _, p := range group {
			p.CurrentPrice = price
		}
	}

	if len(prices) < len(missing) {
		s.logger.Warn().
			Int("requested", len(missing)).
			Int("priced", len(prices)).
			Msg("Some tickers were not priced by the provider")
	}
	return nil
}

// ResolveSplits returns the split history for a ticker, ascending by
// effective date. Histories are cached without expiry; an empty history is
// returned but not cached, so a newly listed ticker gets re-checked.
func (s *Service) ResolveSplits(ctx context.Context, ticker string, credential string) ([]models.Split, error) {
	key := "splits:" + strings.ToUpper(ticker)
	if splits, ok := s.splitCache.Get(key); ok {
		return splits, nil
	}

	splits, err := s.yahoo.GetSplits(ctx, ticker, credential)
	if err != nil {
		return nil, err
	}
	if len(splits) > 0 {
		s.splitCache.Set(key, splits, 0)
	}
	return splits, nil
}

// Ensure Service implements MarketDataService
var _ interfaces.MarketDataService = (*Service)(nil)
