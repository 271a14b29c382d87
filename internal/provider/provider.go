// Package provider implements clients for the upstream market data
// providers.
package provider

import (
	"context"
	"net/http"
	"time"

	"portfolio-tracker/internal/models"
)

// Request timeouts mirror the upstream clients this replaces.
const (
	quoteTimeout = 10 * time.Second
	batchTimeout = 15 * time.Second
)

// Provider resolves quotes from one upstream market data source.
// Implementations report every failure mode (network error, non-2xx
// status, malformed payload) through the returned error; the gateway
// treats them all the same way.
type Provider interface {
	// Name identifies the provider in quote source tags and logs.
	Name() string
	// Quote fetches a single quote. A nil error always carries a
	// non-nil quote.
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	// BatchQuotes fetches quotes for several symbols in one upstream
	// call. Symbols the upstream has no data for are absent from the
	// result map.
	BatchQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
}

// CompanyProvider additionally serves company profiles and news.
type CompanyProvider interface {
	Provider
	CompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)
	News(ctx context.Context, symbol string) ([]models.NewsArticle, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
