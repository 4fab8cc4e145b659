package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ckaraca/vergo/internal/common"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(
		WithBaseURL(srv.URL),
		WithHost("test-host"),
		WithRateLimit(1000),
	)
	return client, srv
}

func TestGetQuotesParsesBatch(t *testing.T) {
	var gotHost, gotKey, gotSymbols string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Header.Get("x-rapidapi-host")
		gotKey = r.Header.Get("x-rapidapi-key")
		gotSymbols = r.URL.Query().Get("symbols")
		w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":231.59},
			{"symbol":"msft","regularMarketPrice":512.5},
			{"symbol":"HALTED","regularMarketPrice":null}
		]}}`))
	})
	defer srv.Close()

	prices, err := client.GetQuotes(context.Background(), []string{"AAPL", "MSFT", "HALTED"}, "secret")
	require.NoError(t, err)

	assert.Equal(t, "test-host", gotHost)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "AAPL,MSFT,HALTED", gotSymbols)

	require.Len(t, prices, 2, "quotes without a price are dropped")
	assert.Equal(t, "231.59", prices["AAPL"].String())
	assert.Equal(t, "512.5", prices["MSFT"].String(), "symbols are normalized to upper case")
}

func TestGetQuotesUnknownTickerAbsent(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
	})
	defer srv.Close()

	prices, err := client.GetQuotes(context.Background(), []string{"NOPE"}, "secret")
	require.NoError(t, err)
	_, ok := prices["NOPE"]
	assert.False(t, ok)
}

func TestGetSplitsSortedAscending(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "split", r.URL.Query().Get("events"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		// 2020-08-31 4:1 and 2014-06-09 7:1, keyed out of order.
		w.Write([]byte(`{"chart":{"result":[{"events":{"splits":{
			"1598880600":{"date":1598880600,"numerator":4,"denominator":1},
			"1402320600":{"date":1402320600,"numerator":7,"denominator":1},
			"0":{"date":0,"numerator":1,"denominator":0}
		}}}]}}`))
	})
	defer srv.Close()

	splits, err := client.GetSplits(context.Background(), "AAPL", "secret")
	require.NoError(t, err)

	require.Len(t, splits, 2, "splits with a zero denominator are dropped")
	assert.Equal(t, "7", splits[0].Factor.String())
	assert.Equal(t, "4", splits[1].Factor.String())
	assert.True(t, splits[0].EffectiveDate.Before(splits[1].EffectiveDate))
	assert.Equal(t, 2014, splits[0].EffectiveDate.Year())
	assert.Equal(t, time.UTC, splits[0].EffectiveDate.Location())
}

func TestGetSplitsEmptyResult(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[]}}`))
	})
	defer srv.Close()

	splits, err := client.GetSplits(context.Background(), "NEWCO", "secret")
	require.NoError(t, err)
	assert.Empty(t, splits)
}

func TestRejectedKeyIsAuthorizationError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	_, err := client.GetQuotes(context.Background(), []string{"AAPL"}, "bad")
	require.Error(t, err)
	assert.True(t, common.IsAuthorization(err))

	_, err = client.GetSplits(context.Background(), "AAPL", "bad")
	require.Error(t, err)
	assert.True(t, common.IsAuthorization(err))
}

func TestServerErrorIsProviderError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})
	defer srv.Close()

	_, err := client.GetQuotes(context.Background(), []string{"AAPL"}, "secret")
	var pe *common.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
	assert.Equal(t, "maintenance", pe.Message)
}
