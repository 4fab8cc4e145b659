// Package rates resolves point-in-time FX rates and inflation indices
package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/cache"
	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/interfaces"
	"github.com/ckaraca/vergo/internal/models"
)

const (
	// FX rates and the index series change at most daily.
	fxTTL     = 24 * time.Hour
	seriesTTL = 24 * time.Hour

	// MaxLookback bounds the backward probe for an FX rate. Markets close
	// for weekends and holiday runs; ten days absorbs any realistic gap.
	MaxLookback = 10

	seriesCacheKey = "ufe:series"
)

// Service implements RateService on top of the EVDS client.
type Service struct {
	evds        interfaces.EVDSClient
	fxCache     *cache.Cache[models.RateSample]
	seriesCache *cache.Cache[map[string]decimal.Decimal]
	logger      *common.Logger
	seriesFrom  time.Time
	now         func() time.Time // injectable clock for testing
}

// Option configures the service
type Option func(*Service)

// WithSeriesStart sets the first month of the index series to fetch.
func WithSeriesStart(from time.Time) Option {
	return func(s *Service) {
		s.seriesFrom = from
	}
}

// NewService creates a new rate service.
func NewService(evds interfaces.EVDSClient, logger *common.Logger, opts ...Option) *Service {
	s := &Service{
		evds:        evds,
		fxCache:     cache.New[models.RateSample](),
		seriesCache: cache.New[map[string]decimal.Decimal](),
		logger:      logger,
		seriesFrom:  time.Date(2014, time.January, 1, 0, 0, 0, 0, time.UTC),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dateOnly truncates t to midnight UTC.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ResolveFX resolves the USD/TRY rate for day. Rates are never available
// same-day, so the request is clamped to yesterday; from there the probe
// walks strictly backward one day at a time, cache first, up to MaxLookback
// attempts. An authorization failure aborts immediately — a rejected key
// will not improve on an earlier date.
func (s *Service) ResolveFX(ctx context.Context, day time.Time, credential string) (models.RateSample, error) {
	yesterday := dateOnly(s.now()).AddDate(0, 0, -1)
	day = dateOnly(day)
	if day.After(yesterday) {
		day = yesterday
	}

	for i := 0; i < MaxLookback; i++ {
		probe := day.AddDate(0, 0, -i)
		key := "fx:" + probe.Format("2006-01-02")
		if sample, ok := s.fxCache.Get(key); ok {
			return sample, nil
		}

		value, ok, err := s.evds.GetUSDTRYRate(ctx, probe, credential)
		if err != nil {
			return models.RateSample{}, err
		}
		if !ok {
			// no value published for that day, step back one
			continue
		}

		sample := models.RateSample{Value: value, Date: probe}
		s.fxCache.Set(key, sample, fxTTL)
		return sample, nil
	}

	return models.RateSample{}, &common.NotFoundError{
		What: fmt.Sprintf("USD/TRY rate within %d days up to %s", MaxLookback, day.Format("2006-01-02")),
	}
}

// ResolveIndexSeries fetches the full monthly index series once and caches
// it for a day as a single unit: the provider only supports range queries,
// so point lookups would re-fetch the whole range anyway.
func (s *Service) ResolveIndexSeries(ctx context.Context, credential string) (map[string]decimal.Decimal, error) {
	if series, ok := s.seriesCache.Get(seriesCacheKey); ok {
		return series, nil
	}

	series, err := s.evds.GetUFESeries(ctx, s.seriesFrom, dateOnly(s.now()), credential)
	if err != nil {
		return nil, err
	}
	if len(series) > 0 {
		s.seriesCache.Set(seriesCacheKey, series, seriesTTL)
	}
	return series, nil
}

// ResolveIndexForMonth looks up day's month in the series. The index is
// published with a lag, so the most recent month is frequently missing;
// falling back to the previous month is expected, not exceptional, and is
// surfaced as a warning naming both months.
func (s *Service) ResolveIndexForMonth(series map[string]decimal.Decimal, day time.Time) (models.RateSample, string, error) {
	key := models.MonthKey(day)
	if value, ok := series[key]; ok {
		return models.RateSample{Value: value, Month: key}, "", nil
	}

	prevKey := models.MonthKey(models.PrevMonth(day))
	if value, ok := series[prevKey]; ok {
		warning := fmt.Sprintf("no inflation index published for %s yet; used %s instead", key, prevKey)
		return models.RateSample{Value: value, Month: prevKey}, warning, nil
	}

	return models.RateSample{}, "", &common.NotFoundError{
		What: fmt.Sprintf("inflation index for %s (nor %s)", key, prevKey),
	}
}

// Ensure Service implements RateService
var _ interfaces.RateService = (*Service)(nil)
