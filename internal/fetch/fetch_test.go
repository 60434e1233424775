package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tipous = schema.SeriesKey{Index: "tipous", Period: schema.PeriodYear}

func TestPageClient_Fetch(t *testing.T) {
	var capturedPath, capturedAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	client := NewPageClient(WithBaseURL(srv.URL), WithRateLimit(0))
	payload, err := client.Fetch(context.Background(), schema.SeriesKey{Index: "TIPOUS", Period: schema.PeriodAll})
	require.NoError(t, err)

	assert.Equal(t, "/invest/indexes/tipous/", capturedPath)
	assert.Equal(t, DefaultUserAgent, capturedAgent)
	assert.Equal(t, schema.MarkupPayload, payload.Format)
	assert.Equal(t, "<html><body>ok</body></html>", string(payload.Body))
	assert.Equal(t, srv.URL+"/invest/indexes/tipous/", payload.Source)
	assert.Equal(t, schema.PageStrategy, client.Strategy())
}

func TestAPIClient_Fetch(t *testing.T) {
	var capturedPath, capturedPeriod, capturedAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedPeriod = r.URL.Query().Get("period")
		capturedAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"payload":{"index":[]}}`))
	}))
	defer srv.Close()

	client := NewAPIClient(WithBaseURL(srv.URL), WithUserAgent("indexhist-test"))
	payload, err := client.Fetch(context.Background(), schema.SeriesKey{Index: "gold", Period: schema.PeriodAll})
	require.NoError(t, err)

	assert.Equal(t, "/api/invest-gw/capital/funds/v1/indexes/gold/history", capturedPath)
	assert.Equal(t, "all", capturedPeriod)
	assert.Equal(t, "application/json", capturedAccept)
	assert.Equal(t, schema.APIPayload, payload.Format)
	assert.JSONEq(t, `{"payload":{"index":[]}}`, string(payload.Body))
	assert.Equal(t, schema.APIStrategy, client.Strategy())
}

func TestFetch_NonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Location", "/elsewhere")
				w.WriteHeader(status)
			}))
			defer srv.Close()

			// Redirects are not followed so the 302 is observable.
			noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}}
			client := NewPageClient(WithBaseURL(srv.URL), WithHTTPClient(noRedirect))
			_, err := client.Fetch(context.Background(), tipous)
			require.Error(t, err)

			var tErr *contract.TransportError
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, status, tErr.StatusCode)
			assert.Equal(t, srv.URL+"/invest/indexes/tipous/", tErr.URL)
		})
	}
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	client := NewPageClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := client.Fetch(context.Background(), tipous)
	require.Error(t, err)

	var tErr *contract.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, 0, tErr.StatusCode)
	assert.Error(t, tErr.Err)
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewAPIClient(WithBaseURL(url)).Fetch(context.Background(), tipous)
	var tErr *contract.TransportError
	assert.True(t, errors.As(err, &tErr))
}

func TestFetch_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPageClient(WithBaseURL("http://127.0.0.1:1")).Fetch(ctx, tipous)
	var tErr *contract.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFetcher(t *testing.T) {
	tests := []struct {
		strategy schema.FetchStrategy
		expected schema.FetchStrategy
	}{
		{schema.PageStrategy, schema.PageStrategy},
		{"", schema.PageStrategy},
		{schema.APIStrategy, schema.APIStrategy},
		{schema.BrowserStrategy, schema.BrowserStrategy},
	}
	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			f, err := NewFetcher(tt.strategy)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.Strategy())
		})
	}

	_, err := NewFetcher("carrier-pigeon")
	assert.ErrorContains(t, err, "unsupported fetch strategy")
}

func TestNewSettings(t *testing.T) {
	s := newSettings(nil)
	assert.Equal(t, DefaultBaseURL, s.baseURL)
	assert.Equal(t, DefaultTimeout, s.httpClient.Timeout)

	s = newSettings([]Option{WithTimeout(3 * time.Second), WithTimeout(0), WithLogger(nil)})
	assert.Equal(t, 3*time.Second, s.httpClient.Timeout)
	assert.NotNil(t, s.logger)
}

func TestURLs(t *testing.T) {
	key := schema.SeriesKey{Index: "TIPOUS", Period: schema.PeriodYear}
	assert.Equal(t, "https://www.tbank.ru/invest/indexes/tipous/", PageURL(DefaultBaseURL, key))
	assert.Equal(t,
		"https://www.tbank.ru/api/invest-gw/capital/funds/v1/indexes/tipous/history?period=year",
		HistoryURL(DefaultBaseURL, key))
}
