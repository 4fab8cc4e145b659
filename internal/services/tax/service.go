// Package tax computes progressive capital-gains tax for position batches
package tax

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/interfaces"
	"github.com/ckaraca/vergo/internal/models"
)

// maxConcurrent bounds how many position pipelines resolve at once.
const maxConcurrent = 5

// Service implements TaxService. It orchestrates the resolvers, adjusts
// every position, and folds the profits through the bracket schedule.
type Service struct {
	rates          interfaces.RateService
	market         interfaces.MarketDataService
	schedule       models.Schedule
	minRate        decimal.Decimal
	indexThreshold decimal.Decimal
	logger         *common.Logger
	now            func() time.Time // injectable clock for testing
}

// Option configures the service
type Option func(*Service)

// WithMinRate sets the flat rate used for the per-position minimum-tax
// estimate shown alongside the aggregate figure.
func WithMinRate(rate decimal.Decimal) Option {
	return func(s *Service) {
		s.minRate = rate
	}
}

// WithIndexationThreshold sets the cumulative-inflation ratio above which
// cost basis is indexed.
func WithIndexationThreshold(threshold decimal.Decimal) Option {
	return func(s *Service) {
		s.indexThreshold = threshold
	}
}

// NewService creates a new tax service.
func NewService(rates interfaces.RateService, market interfaces.MarketDataService, schedule models.Schedule, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		rates:          rates,
		market:         market,
		schedule:       schedule,
		minRate:        decimal.NewFromFloat(0.15),
		indexThreshold: decimal.NewFromFloat(1.10),
		logger:         logger,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute resolves all external inputs for the batch, adjusts every
// position in place, and returns the aggregate liability.
//
// Resolution runs in two phases. Phase one fetches the batch-wide inputs
// concurrently: the current FX rate, the inflation index series, and the
// price batch. Phase two runs a bounded pipeline per position (buy-date FX
// rate and split history) against an isolated working copy, merged back
// only once all of its inputs resolved. Any resolver error aborts the whole
// computation — a partial tax figure is worse than none — and cancels
// whatever is still in flight. A ticker the market would not price only
// zeroes its own position.
func (s *Service) Compute(ctx context.Context, positions []*models.Position, creds models.Credentials) (*models.Result, error) {
	batchID := uuid.NewString()
	result := &models.Result{BatchID: batchID}

	for i, p := range positions {
		p.Normalize()
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
	}
	if len(positions) == 0 {
		result.TotalTax = decimal.Zero
		return result, nil
	}

	logger := s.logger.With().Str("batch", batchID).Logger()
	logger.Info().Int("positions", len(positions)).Msg("Starting tax computation")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		errs     []error
		warnings = make(map[string]struct{})
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
		cancel()
	}
	warn := func(w string) {
		if w == "" {
			return
		}
		mu.Lock()
		warnings[w] = struct{}{}
		mu.Unlock()
	}

	// Phase one: batch-wide inputs, resolved concurrently.
	var (
		sellFX models.RateSample
		series map[string]decimal.Decimal
	)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		sample, err := s.rates.ResolveFX(ctx, s.now().AddDate(0, 0, -1), creds.EVDS)
		if err != nil {
			fail(err)
			return
		}
		sellFX = sample
	}()
	go func() {
		defer wg.Done()
		values, err := s.rates.ResolveIndexSeries(ctx, creds.EVDS)
		if err != nil {
			fail(err)
			return
		}
		series = values
	}()
	go func() {
		defer wg.Done()
		if err := s.market.ResolvePrices(ctx, positions, creds.Yahoo); err != nil {
			fail(err)
		}
	}()
	wg.Wait()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// The sell leg uses the previous month's index for every position
	// (publication lag), so resolve it once for the batch.
	sellIndex, sellWarn, err := s.rates.ResolveIndexForMonth(series, models.PrevMonth(s.now()))
	if err != nil {
		return nil, err
	}
	warn(sellWarn)

	// Phase two: per-position pipelines over isolated working copies.
	copies := make([]*models.Position, len(positions))
	sem := make(chan struct{}, maxConcurrent)
	for i, src := range positions {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, src *models.Position) {
			defer wg.Done()
			defer func() { <-sem }()

			cp := *src
			copies[i] = &cp

			if !cp.PriceAvailable() {
				adjust(&cp, nil, s.minRate, s.indexThreshold)
				return
			}

			// Both index legs use the month before the event month.
			buyIndex, buyWarn, err := s.rates.ResolveIndexForMonth(series, models.PrevMonth(cp.BuyDate))
			if err != nil {
				fail(err)
				return
			}
			warn(buyWarn)

			buyFX, err := s.rates.ResolveFX(ctx, cp.BuyDate.AddDate(0, 0, -1), creds.EVDS)
			if err != nil {
				fail(err)
				return
			}

			splits, err := s.market.ResolveSplits(ctx, cp.Ticker, creds.Yahoo)
			if err != nil {
				fail(err)
				return
			}

			cp.BuyRate = buyFX.Value
			cp.SellRate = sellFX.Value
			cp.BuyIndex = buyIndex
			cp.SellIndex = sellIndex
			adjust(&cp, splits, s.minRate, s.indexThreshold)
		}(i, src)
	}
	wg.Wait()
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	// Phase three: merge the copies back and aggregate.
	income := decimal.Zero
	for i := range positions {
		if copies[i] == nil {
			// cancelled before this pipeline started
			return nil, ctx.Err()
		}
		*positions[i] = *copies[i]
		income = income.Add(positions[i].Profit)
	}

	result.TotalProfit = income
	result.TotalTax = s.schedule.Tax(income)
	for w := range warnings {
		result.Warnings = append(result.Warnings, w)
	}
	sort.Strings(result.Warnings)

	logger.Info().
		Str("income", income.String()).
		Str("tax", result.TotalTax.String()).
		Msg("Tax computation complete")
	return result, nil
}

// Ensure Service implements TaxService
var _ interfaces.TaxService = (*Service)(nil)
