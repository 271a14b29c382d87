// Package integration provides end-to-end tests across the gateway,
// stream hub, store, and HTTP/WebSocket servers.
package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-tracker/internal/cache"
	"portfolio-tracker/internal/gateway"
	"portfolio-tracker/internal/provider"
	"portfolio-tracker/internal/store"
	"portfolio-tracker/internal/stream"
)

// newPolygonStub serves the Polygon previous-close endpoints with
// canned data for AAPL.
func newPolygonStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v2/aggs/ticker/AAPL/prev":
			json.NewEncoder(w).Encode(map[string]any{
				"ticker": "AAPL",
				"results": []map[string]any{
					{"T": "AAPL", "c": 185.5, "o": 183.0, "h": 186.0, "l": 182.5, "v": 50000000.0, "t": 1700000000000.0},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQuoteFlowEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	polygon := newPolygonStub(t)

	c := cache.New(5*time.Minute, time.Minute)
	defer c.Close()

	dbPath := filepath.Join(t.TempDir(), "cache.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer dataStore.Close()

	hub := stream.NewHub()
	hub.Start(ctx)
	defer hub.Stop()

	g := gateway.New(
		[]provider.Provider{provider.NewPolygonWithBaseURL("test-key", polygon.URL)},
		c,
		gateway.DefaultConfig(),
		gateway.WithStore(dataStore),
		gateway.WithHub(hub),
		gateway.WithLogger(zerolog.Nop()),
	)

	// First lookup goes upstream and writes through to the store.
	quote := g.Quote(ctx, "AAPL")
	require.NotNil(t, quote)
	assert.Equal(t, 185.5, quote.Price)
	assert.Equal(t, "polygon", quote.Source)

	stored, err := dataStore.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 185.5, stored.Price)

	watchlist, err := dataStore.Watchlist(ctx)
	require.NoError(t, err)
	assert.Contains(t, watchlist, "AAPL")

	// A fresh gateway over the same store warm-starts from it without
	// touching upstream.
	polygon.Close()

	c2 := cache.New(5*time.Minute, time.Minute)
	defer c2.Close()

	g2 := gateway.New(
		[]provider.Provider{provider.NewPolygonWithBaseURL("test-key", polygon.URL)},
		c2,
		gateway.DefaultConfig(),
		gateway.WithStore(dataStore),
		gateway.WithLogger(zerolog.Nop()),
	)
	g2.WarmStart(ctx)

	warm := g2.Quote(ctx, "AAPL")
	require.NotNil(t, warm, "warm-started cache should serve the quote with upstream down")
	assert.Equal(t, 185.5, warm.Price)
}

func TestRefreshReachesSubscribers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	polygon := newPolygonStub(t)

	c := cache.New(5*time.Minute, time.Minute)
	defer c.Close()

	hub := stream.NewHub()
	hub.Start(ctx)
	defer hub.Stop()

	config := gateway.DefaultConfig()
	config.RefreshInterval = 50 * time.Millisecond

	g := gateway.New(
		[]provider.Provider{provider.NewPolygonWithBaseURL("test-key", polygon.URL)},
		c,
		config,
		gateway.WithHub(hub),
		gateway.WithLogger(zerolog.Nop()),
	)

	sub := hub.Subscribe([]string{"AAPL"})

	// Seed the watched set, then let the refresh loop run.
	require.NotNil(t, g.Quote(ctx, "AAPL"))
	g.StartRefresh(ctx)

	select {
	case update := <-sub.Channel:
		require.Contains(t, update.Quotes, "AAPL")
		assert.Equal(t, 185.5, update.Quotes["AAPL"].Price)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a refresh update on the subscriber channel")
	}
}

func TestFallbackAcrossRealClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Polygon always errors; Alpha Vantage serves the quote.
	polygonDown := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(polygonDown.Close)

	alphaVantage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"Global Quote": map[string]string{
				"01. symbol":         "AAPL",
				"02. open":           "183.00",
				"03. high":           "186.00",
				"04. low":            "182.50",
				"05. price":          "185.40",
				"06. volume":         "48000000",
				"08. previous close": "183.00",
				"09. change":         "2.40",
				"10. change percent": "1.31%",
			},
		})
	}))
	t.Cleanup(alphaVantage.Close)

	c := cache.New(5*time.Minute, time.Minute)
	defer c.Close()

	g := gateway.New(
		[]provider.Provider{
			provider.NewPolygonWithBaseURL("test-key", polygonDown.URL),
			provider.NewAlphaVantageWithBaseURL("test-key", alphaVantage.URL),
		},
		c,
		gateway.DefaultConfig(),
		gateway.WithLogger(zerolog.Nop()),
	)

	quote := g.Quote(ctx, "AAPL")
	require.NotNil(t, quote)
	assert.Equal(t, "alpha_vantage", quote.Source)
	assert.Equal(t, 185.4, quote.Price)
}
