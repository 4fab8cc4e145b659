// Package yahoo provides a client for the Yahoo Finance RapidAPI gateway
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/interfaces"
	"github.com/ckaraca/vergo/internal/models"
)

const (
	DefaultBaseURL   = "https://apidojo-yahoo-finance-v1.p.rapidapi.com"
	DefaultHost      = "apidojo-yahoo-finance-v1.p.rapidapi.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	host       string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHost sets the x-rapidapi-host header value
func WithHost(host string) ClientOption {
	return func(c *Client) {
		c.host = host
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client. The RapidAPI key is supplied
// per call so a caller-provided credential can override the configured one.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		host:    DefaultHost,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET request with RapidAPI headers
func (c *Client) get(ctx context.Context, path string, params url.Values, apiKey string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", apiKey)

	c.logger.Debug().Str("path", path).Msg("Yahoo Finance API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return &common.AuthorizationError{
			Provider: "Yahoo Finance",
			Message:  fmt.Sprintf("API key rejected (status %d); it may be invalid, expired, or over quota", resp.StatusCode),
		}
	default:
		body, _ := io.ReadAll(resp.Body)
		return &common.ProviderError{
			Provider:   "Yahoo Finance",
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type quotesResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// GetQuotes retrieves current prices for a batch of tickers in one request.
// Tickers the provider does not recognize are absent from the result; the
// caller decides what an unpriceable ticker means.
func (c *Client) GetQuotes(ctx context.Context, tickers []string, apiKey string) (map[string]decimal.Decimal, error) {
	params := url.Values{}
	params.Set("region", "US")
	params.Set("symbols", strings.Join(tickers, ","))

	var payload quotesResponse
	if err := c.get(ctx, "/market/v2/get-quotes", params, apiKey, &payload); err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(payload.QuoteResponse.Result))
	for _, item := range payload.QuoteResponse.Result {
		if item.RegularMarketPrice == nil {
			continue
		}
		prices[strings.ToUpper(item.Symbol)] = decimal.NewFromFloat(*item.RegularMarketPrice)
	}

	c.logger.Debug().Int("requested", len(tickers)).Int("priced", len(prices)).Msg("Yahoo quote batch")
	return prices, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Events struct {
				Splits map[string]struct {
					Date        int64   `json:"date"`
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
	} `json:"chart"`
}

// GetSplits retrieves the full split history for a ticker, ordered by
// effective date ascending. A ticker with no recorded splits returns an
// empty list.
func (c *Client) GetSplits(ctx context.Context, ticker string, apiKey string) ([]models.Split, error) {
	params := url.Values{}
	params.Set("region", "US")
	params.Set("symbol", ticker)
	params.Set("interval", "1d")
	params.Set("range", "max")
	params.Set("events", "split")

	var payload chartResponse
	if err := c.get(ctx, "/stock/v2/get-chart", params, apiKey, &payload); err != nil {
		return nil, err
	}

	if len(payload.Chart.Result) == 0 {
		return nil, nil
	}

	events := payload.Chart.Result[0].Events.Splits
	splits := make([]models.Split, 0, len(events))
	for _, ev := range events {
		if ev.Denominator == 0 {
			continue
		}
		splits = append(splits, models.Split{
			EffectiveDate: time.Unix(ev.Date, 0).UTC(),
			Factor:        decimal.NewFromFloat(ev.Numerator).Div(decimal.NewFromFloat(ev.Denominator)),
		})
	}
	sort.Slice(splits, func(i, j int) bool {
		return splits[i].EffectiveDate.Before(splits[j].EffectiveDate)
	})

	return splits, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
