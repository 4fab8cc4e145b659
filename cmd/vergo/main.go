// Command vergo computes Turkish capital-gains tax for a batch of
// foreign-equity positions described in a JSON file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/clients/evds"
	"github.com/ckaraca/vergo/internal/clients/yahoo"
	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/models"
	"github.com/ckaraca/vergo/internal/services/marketdata"
	"github.com/ckaraca/vergo/internal/services/rates"
	"github.com/ckaraca/vergo/internal/services/tax"
)

func main() {
	configPath := flag.String("config", "", "path to vergo.toml (default: $VERGO_CONFIG)")
	positionsPath := flag.String("positions", "positions.json", "path to the positions JSON file")
	evdsKey := flag.String("evds-key", "", "EVDS API key (overrides config and VERGO_EVDS_KEY)")
	yahooKey := flag.String("yahoo-key", "", "RapidAPI Yahoo Finance key (overrides config and VERGO_YAHOO_KEY)")
	flag.Parse()

	// .env is optional; environment wins over config file either way.
	_ = godotenv.Load()

	if *configPath == "" {
		*configPath = os.Getenv("VERGO_CONFIG")
	}
	if *configPath == "" {
		*configPath = "vergo.toml"
	}

	config, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := common.NewLogger(config.Logging.Level)

	creds := models.Credentials{
		EVDS:  config.Clients.EVDS.APIKey,
		Yahoo: config.Clients.Yahoo.APIKey,
	}
	if *evdsKey != "" {
		creds.EVDS = *evdsKey
	}
	if *yahooKey != "" {
		creds.Yahoo = *yahooKey
	}
	if creds.EVDS == "" || creds.Yahoo == "" {
		fmt.Fprintln(os.Stderr, "Both an EVDS key and a Yahoo Finance key are required (flags, config, or environment)")
		os.Exit(1)
	}

	positions, err := loadPositions(*positionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load positions: %v\n", err)
		os.Exit(1)
	}
	if len(positions) == 0 {
		fmt.Fprintln(os.Stderr, "No positions to compute")
		os.Exit(1)
	}

	schedule, err := config.Tax.Schedule()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	evdsClient := evds.NewClient(
		evds.WithBaseURL(config.Clients.EVDS.BaseURL),
		evds.WithRateLimit(config.Clients.EVDS.RateLimit),
		evds.WithTimeout(config.Clients.EVDS.GetTimeout()),
		evds.WithLogger(logger),
	)
	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithHost(config.Clients.Yahoo.Host),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
		yahoo.WithLogger(logger),
	)

	seriesStart := time.Date(config.Tax.SeriesStartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	rateService := rates.NewService(evdsClient, logger, rates.WithSeriesStart(seriesStart))
	marketService := marketdata.NewService(yahooClient, logger)
	taxService := tax.NewService(rateService, marketService, schedule, logger,
		tax.WithMinRate(decimal.NewFromFloat(config.Tax.MinRate)),
		tax.WithIndexationThreshold(decimal.NewFromFloat(config.Tax.IndexationThreshold)),
	)

	result, err := taxService.Compute(context.Background(), positions, creds)
	if err != nil {
		switch {
		case common.IsAuthorization(err):
			fmt.Fprintf(os.Stderr, "Credential rejected: %v\n", err)
		case common.IsNotFound(err):
			fmt.Fprintf(os.Stderr, "Required market data is missing: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "Unexpected error: %v\n", err)
		}
		os.Exit(1)
	}

	printResult(positions, result)
}

// loadPositions reads the caller-maintained position list. This file stands
// in for the session-scoped list an embedding application would supply.
func loadPositions(path string) ([]*models.Position, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var positions []*models.Position
	if err := json.Unmarshal(data, &positions); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return positions, nil
}

func printResult(positions []*models.Position, result *models.Result) {
	for _, p := range positions {
		if !p.PriceAvailable() {
			fmt.Printf("%-6s price unavailable, contributes no profit\n", p.Ticker)
			continue
		}
		fmt.Printf("%-6s bought %s @ %s on %s | price %s | fx %s->%s | index %s (%s) -> %s (%s) | profit %s TRY (min. tax est. %s)\n",
			p.Ticker,
			p.BuyQuantity.String(), p.BuyPrice.String(), p.BuyDate.Format("2006-01-02"),
			p.CurrentPrice.String(),
			p.BuyRate.String(), p.SellRate.String(),
			p.BuyIndex.Value.String(), p.BuyIndex.Month,
			p.SellIndex.Value.String(), p.SellIndex.Month,
			p.Profit.StringFixed(2), p.MinTaxEstimate.StringFixed(2),
		)
		for _, split := range p.AppliedSplits {
			fmt.Printf("       split %s on %s\n", split.Factor.String(), split.EffectiveDate.Format("2006-01-02"))
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	fmt.Printf("total profit: %s TRY\n", result.TotalProfit.StringFixed(2))
	fmt.Printf("total tax:    %s TRY\n", result.TotalTax.StringFixed(2))
}
