// Package evds provides a client for the TCMB EVDS API
package evds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/ckaraca/vergo/internal/common"
	"github.com/ckaraca/vergo/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://evds2.tcmb.gov.tr/service/evds"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	// EVDS series codes: USD/TRY selling rate, domestic producer price index.
	usdTrySeries = "TP.DK.USD.S.YTL"
	ufeSeries    = "TP.TUFE1YI.T1"

	// EVDS date parameter format (day-month-year).
	dateFormat = "02-01-2006"
)

// Client implements the EVDSClient interface
type Client struct {
	baseURL    string
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

// NewClient creates a new EVDS client. The API key is supplied per call so a
// caller-provided credential can override the configured default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// get performs a rate-limited GET request with the EVDS key header and
// translates authorization failures before decoding the payload.
func (c *Client) get(ctx context.Context, endpoint string, apiKey string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("key", apiKey)

	c.logger.Debug().Str("endpoint", endpoint).Msg("EVDS API request")

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
			Provider: "EVDS",
			Message:  fmt.Sprintf("API key rejected (status %d); it may be invalid, expired, or over quota", resp.StatusCode),
		}
	default:
		body, _ := io.ReadAll(resp.Body)
		return &common.ProviderError{
			Provider:   "EVDS",
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type fxResponse struct {
	Items []struct {
		Date string  `json:"Tarih"`
		Rate *string `json:"TP_DK_USD_S_YTL"`
	} `json:"items"`
}

// GetUSDTRYRate retrieves the USD/TRY selling rate for one calendar day.
// A successful response with no published value (weekend, holiday) returns
// ok=false with a nil error.
func (c *Client) GetUSDTRYRate(ctx context.Context, day time.Time, apiKey string) (decimal.Decimal, bool, error) {
	dateStr := day.Format(dateFormat)
	endpoint := fmt.Sprintf("/series=%s&startDate=%s&endDate=%s&type=json", usdTrySeries, dateStr, dateStr)

	var payload fxResponse
	if err := c.get(ctx, endpoint, apiKey, &payload); err != nil {
		return decimal.Decimal{}, false, err
	}

	if len(payload.Items) == 0 {
		return decimal.Decimal{}, false, nil
	}
	raw := payload.Items[0].Rate
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return decimal.Decimal{}, false, nil
	}

	value, err := decimal.NewFromString(strings.TrimSpace(*raw))
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("failed to parse USD/TRY rate %q for %s: %w", *raw, dateStr, err)
	}
	return value, true, nil
}

type ufeResponse struct {
	Items []struct {
		Date  string  `json:"Tarih"`
		Value *string `json:"TP_TUFE1YI_T1"`
	} `json:"items"`
}

// GetUFESeries retrieves the monthly producer-price index series for
// [from, to]. Months the provider has not published yet arrive blank and are
// skipped, so recent months may be absent from the returned map.
func (c *Client) GetUFESeries(ctx context.Context, from, to time.Time, apiKey string) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("/series=%s&startDate=%s&endDate=%s&type=json", ufeSeries, from.Format(dateFormat), to.Format(dateFormat))

	var payload ufeResponse
	if err := c.get(ctx, endpoint, apiKey, &payload); err != nil {
		return nil, err
	}

	series := make(map[string]decimal.Decimal, len(payload.Items))
	for _, item := range payload.Items {
		if item.Value == nil || strings.TrimSpace(*item.Value) == "" {
			continue
		}
		value, err := decimal.NewFromString(strings.TrimSpace(*item.Value))
		if err != nil {
			return nil, fmt.Errorf("failed to parse index value %q for %s: %w", *item.Value, item.Date, err)
		}
		series[item.Date] = value
	}

	c.logger.Debug().Int("months", len(series)).Msg("EVDS index series fetched")
	return series, nil
}

// Ensure Client implements EVDSClient
var _ interfaces.EVDSClient = (*Client)(nil)
