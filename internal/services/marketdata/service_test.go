package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/models"
)

type mockYahoo struct {
	prices     map[string]decimal.Decimal
	splits     map[string][]models.Split
	quoteCalls [][]string
	splitCalls []string
}

func (m *mockYahoo) GetQuotes(ctx context.Context, tickers []string, credential string) (map[string]decimal.Decimal, error) {
	m.quoteCalls = append(m.quoteCalls, tickers)
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if price, ok := m.prices[t]; ok {
			out[t] = price
		}
	}
	return out, nil
}

func (m *mockYahoo) GetSplits(ctx context.Context, ticker string, credential string) ([]models.Split, error) {
	m.splitCalls = append(m.splitCalls, ticker)
	return m.splits[ticker], nil
}

func position(ticker string) *models.Position {
	return &models.Position{
		Ticker:      ticker,
		BuyDate:     time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
		BuyQuantity: decimal.NewFromInt(10),
		BuyPrice:    decimal.NewFromInt(100),
	}
}

func TestResolvePricesAssignsBatch(t *testing.T) {
	yahoo := &mockYahoo{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromFloat(231.59),
		"MSFT": decimal.NewFromFloat(512.5),
	}}
	s := NewService(yahoo, common.NewSilentLogger())

	positions := []*models.Position{position("AAPL"), position("MSFT"), position("AAPL")}
	if err := s.ResolvePrices(context.Background(), positions, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(yahoo.quoteCalls) != 1 {
		t.Fatalf("expected one batch call, got %d", len(yahoo.quoteCalls))
	}
	if got := len(yahoo.quoteCalls[0]); got != 2 {
		t.Errorf("duplicate tickers should collapse into one symbol, requested %d", got)
	}
	for _, p := range positions {
		if !p.PriceAvailable() {
			t.Errorf("%s should have a price", p.Ticker)
		}
	}
	if !positions[0].CurrentPrice.Equal(positions[2].CurrentPrice) {
		t.Error("positions on the same ticker should share the price")
	}
}

func TestResolvePricesUnknownTickerKeepsSentinel(t *testing.T) {
	yahoo := &mockYahoo{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromFloat(231.59),
	}}
	s := NewService(yahoo, common.NewSilentLogger())

	positions := []*models.Position{position("AAPL"), position("NOPE")}
	if err := s.ResolvePrices(context.Background(), positions, "key"); err != nil {
		t.Fatalf("an unrecognized ticker must not fail the batch: %v", err)
	}
	if positions[1].PriceAvailable() {
		t.Errorf("expected the sentinel price, got %s", positions[1].CurrentPrice)
	}
}

func TestResolvePricesServedFromCache(t *testing.T) {
	yahoo := &mockYahoo{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromFloat(231.59),
	}}
	s := NewService(yahoo, common.NewSilentLogger())

	if err := s.ResolvePrices(context.Background(), []*models.Position{position("AAPL")}, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ResolvePrices(context.Background(), []*models.Position{position("aapl")}, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(yahoo.quoteCalls) != 1 {
		t.Errorf("second resolve should be served from cache, got %d provider calls", len(yahoo.quoteCalls))
	}
}

func TestResolvePricesUnpricedNotCached(t *testing.T) {
	yahoo := &mockYahoo{prices: map[string]decimal.Decimal{}}
	s := NewService(yahoo, common.NewSilentLogger())

	for i := 0; i < 2; i++ {
		if err := s.ResolvePrices(context.Background(), []*models.Position{position("NOPE")}, "key"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if len(yahoo.quoteCalls) != 2 {
		t.Errorf("a ticker the provider skipped must be re-requested, got %d calls", len(yahoo.quoteCalls))
	}
}

func TestResolveSplitsCachedIndefinitely(t *testing.T) {
	yahoo := &mockYahoo{splits: map[string][]models.Split{
		"AAPL": {{
			EffectiveDate: time.Date(2020, 8, 31, 0, 0, 0, 0, time.UTC),
			Factor:        decimal.NewFromInt(4),
		}},
	}}
	s := NewService(yahoo, common.NewSilentLogger())

	first, err := s.ResolveSplits(context.Background(), "AAPL", "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.ResolveSplits(context.Background(), "aapl", "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(yahoo.splitCalls) != 1 {
		t.Errorf("split history should be fetched once per ticker, got %d calls", len(yahoo.splitCalls))
	}
	if len(first) != 1 || len(second) != 1 || !first[0].Factor.Equal(second[0].Factor) {
		t.Error("cached history differs from fetched history")
	}
}

func TestResolveSplitsEmptyHistoryNotCached(t *testing.T) {
	yahoo := &mockYahoo{splits: map[string][]models.Split{}}
	s := NewService(yahoo, common.NewSilentLogger())

	for i := 0; i < 2; i++ {
		splits, err := s.ResolveSplits(context.Background(), "NEWCO", "key")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(splits) != 0 {
			t.Errorf("expected no splits, got %d", len(splits))
		}
	}
	if len(yahoo.splitCalls) != 2 {
		t.Errorf("an empty history must not be cached, got %d calls", len(yahoo.splitCalls))
	}
}
