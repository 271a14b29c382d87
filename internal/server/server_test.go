package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/internal/cache"
	"portfolio-tracker/internal/gateway"
	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/provider"
	"portfolio-tracker/internal/stream"
)

type stubProvider struct {
	quotes map[string]*models.Quote
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	quote, ok := p.quotes[symbol]
	if !ok {
		return nil, errors.New("no data")
	}
	return quote, nil
}

func (p *stubProvider) BatchQuotes(_ context.Context, symbols []string) (map[string]*models.Quote, error) {
	result := make(map[string]*models.Quote)
	for _, symbol := range symbols {
		if quote, ok := p.quotes[symbol]; ok {
			result[symbol] = quote
		}
	}
	return result, nil
}

func newTestServer(t *testing.T, quotes map[string]*models.Quote) *Server {
	t.Helper()

	c := cache.New(5*time.Minute, time.Minute)
	t.Cleanup(c.Close)

	g := gateway.New([]provider.Provider{&stubProvider{quotes: quotes}}, c, gateway.DefaultConfig())

	hub := stream.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub.Start(ctx)
	t.Cleanup(hub.Stop)

	return New(g, hub, nil, Config{
		RateLimitWindow: 15 * time.Minute,
		RateLimitMax:    100,
	}, zerolog.Nop())
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := doRequest(t, s.Router(), http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestQuoteFound(t *testing.T) {
	s := newTestServer(t, map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 185.5, Source: "stub"},
	})

	rec, env := doRequest(t, s.Router(), http.MethodGet, "/api/quote/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var quote models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, 185.5, quote.Price)
}

func TestQuoteLowercaseSymbol(t *testing.T) {
	s := newTestServer(t, map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 185.5, Source: "stub"},
	})

	// Lowercase path segments resolve to the same upstream symbol and
	// the same cache entry as their uppercase form.
	rec, env := doRequest(t, s.Router(), http.MethodGet, "/api/quote/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var quote models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, "AAPL", quote.Symbol)
}

func TestQuoteNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodGet, "/api/quote/NOPE", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "NOPE")
}

func TestPortfolioBatch(t *testing.T) {
	s := newTestServer(t, map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 185.5},
		"MSFT": {Symbol: "MSFT", Price: 420.1},
	})

	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/portfolio", `{"symbols":["AAPL","MSFT"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var quotes map[string]*models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quotes))
	assert.Len(t, quotes, 2)
}

func TestPortfolioUppercasesSymbols(t *testing.T) {
	s := newTestServer(t, map[string]*models.Quote{
		"AAPL": {Symbol: "AAPL", Price: 185.5},
	})

	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/portfolio", `{"symbols":["aapl"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var quotes map[string]*models.Quote
	require.NoError(t, json.Unmarshal(env.Data, &quotes))
	require.Contains(t, quotes, "AAPL")
	assert.Equal(t, 185.5, quotes["AAPL"].Price)
}

func TestPortfolioBadBody(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/portfolio", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestPortfolioMissingSymbols(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/portfolio", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Error, "symbols")
}

func TestAllocations(t *testing.T) {
	s := newTestServer(t, nil)

	body := `[
		{"ticker":"AAPL","quantity":10,"currentPrice":100,"sector":"Technology"},
		{"ticker":"XOM","quantity":5,"currentPrice":100,"sector":"Energy"}
	]`
	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/allocations", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp struct {
		Industries   []models.AllocationSlice `json:"industries"`
		AssetClasses []models.AllocationSlice `json:"assetClasses"`
		Summary      models.PortfolioSummary  `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Industries, 2)
	assert.Equal(t, "Technology", resp.Industries[0].Name)
	assert.InDelta(t, 66.67, resp.Industries[0].Percentage, 0.001)
	assert.Equal(t, 1500.0, resp.Summary.TotalValue)
}

func TestAllocationsBadBody(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/allocations", `{"not":"a list"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestInsights(t *testing.T) {
	s := newTestServer(t, nil)

	body := `[{"ticker":"AAPL","quantity":10,"currentPrice":100}]`
	rec, env := doRequest(t, s.Router(), http.MethodPost, "/api/insights", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Contains(t, resp["insights"], "Technology")
}

func TestPopularAssets(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodGet, "/api/assets/popular", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var assets []models.PopularAsset
	require.NoError(t, json.Unmarshal(env.Data, &assets))
	assert.NotEmpty(t, assets)
}

func TestNewsEmptyOnFailure(t *testing.T) {
	// No company provider configured: news degrades to an empty list.
	s := newTestServer(t, nil)

	rec, env := doRequest(t, s.Router(), http.MethodGet, "/api/news/AAPL", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(string(env.Data)))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	s := newTestServer(t, nil)

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	rec := httptest.NewRecorder()
	s.recovery(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
