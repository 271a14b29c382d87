// Package gateway resolves market quotes through a cache and a fixed
// chain of fallback providers, and feeds the live-update hub.
package gateway

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portfolio-tracker/internal/cache"
	apperrors "portfolio-tracker/internal/errors"
	"portfolio-tracker/internal/logging"
	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/provider"
	"portfolio-tracker/internal/resilience"
	"portfolio-tracker/internal/stream"
)

// QuoteStore is the durable backing for the cache. All methods may
// fail without affecting request handling; store errors degrade to
// memory-only caching.
type QuoteStore interface {
	SaveQuote(ctx context.Context, quote *models.Quote) error
	SaveCompany(ctx context.Context, symbol string, overview *models.CompanyOverview) error
	GetCompany(ctx context.Context, symbol string, maxAge time.Duration) (*models.CompanyOverview, error)
	RecentQuotes(ctx context.Context, maxAge time.Duration) ([]*models.Quote, error)
	AddToWatchlist(ctx context.Context, symbol string) error
	Watchlist(ctx context.Context) ([]string, error)
}

// Config holds gateway tuning parameters.
type Config struct {
	QuoteTTL        time.Duration
	CompanyTTL      time.Duration
	BatchDelay      time.Duration
	RefreshInterval time.Duration
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		QuoteTTL:        300 * time.Second,
		CompanyTTL:      time.Hour,
		BatchDelay:      100 * time.Millisecond,
		RefreshInterval: 5 * time.Minute,
	}
}

// Gateway answers quote lookups cache-first, falling back across
// providers in order. Failures are silent degradations: a symbol no
// provider can serve resolves to nil, never an error the UI would see.
//
// Identical concurrent requests are not coalesced; both miss the cache
// and both hit upstream. Last write wins.
type Gateway struct {
	providers []provider.Provider
	company   provider.CompanyProvider
	breakers  map[string]*resilience.CircuitBreaker
	cache     *cache.Cache
	store     QuoteStore
	hub       *stream.Hub
	config    Config
	logger    zerolog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithStore attaches a durable store.
func WithStore(store QuoteStore) Option {
	return func(g *Gateway) { g.store = store }
}

// WithHub attaches the live-update hub.
func WithHub(hub *stream.Hub) Option {
	return func(g *Gateway) { g.hub = hub }
}

// WithCompanyProvider sets the provider used for company overviews and
// news.
func WithCompanyProvider(p provider.CompanyProvider) Option {
	return func(g *Gateway) { g.company = p }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// New creates a gateway. Providers are tried in the order given.
func New(providers []provider.Provider, c *cache.Cache, config Config, opts ...Option) *Gateway {
	g := &Gateway{
		providers: providers,
		breakers:  make(map[string]*resilience.CircuitBreaker, len(providers)),
		cache:     c,
		config:    config,
		logger:    zerolog.Nop(),
	}
	for _, p := range providers {
		g.breakers[p.Name()] = resilience.NewCircuitBreaker(p.Name(), resilience.DefaultCircuitBreakerConfig())
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func quoteKey(symbol string) string { return "quote:" + symbol }

func batchKey(symbols []string) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)
	return "batch:" + strings.Join(sorted, ",")
}

// Quote resolves a quote for one symbol: cache first, then each
// provider in order. Returns nil when every source fails.
func (g *Gateway) Quote(ctx context.Context, symbol string) *models.Quote {
	key := quoteKey(symbol)
	cached, ok := g.cache.Get(key)
	logging.LogCache(g.logger, key, ok)
	if ok {
		return cached.(*models.Quote)
	}

	quote := g.fetchQuote(ctx, symbol)
	if quote == nil {
		return nil
	}

	g.cache.SetTTL(key, quote, g.config.QuoteTTL)
	g.persistQuote(ctx, quote)
	return quote
}

// fetchQuote walks the provider chain. An open circuit breaker counts
// the same as a failed call: skip and try the next provider.
func (g *Gateway) fetchQuote(ctx context.Context, symbol string) *models.Quote {
	logger := logging.WithSymbol(g.logger, symbol)

	for _, p := range g.providers {
		breaker := g.breakers[p.Name()]
		if err := breaker.Allow(); err != nil {
			plog := logging.WithProvider(logger, p.Name())
			plog.Warn().Err(err).Msg("Circuit open, skipping provider")
			continue
		}

		start := time.Now()
		quote, err := p.Quote(ctx, symbol)
		logging.LogFetch(g.logger, p.Name(), symbol, time.Since(start), err)
		if err != nil {
			breaker.RecordFailure()
			plog := logging.WithProvider(logger, p.Name())
			plog.Warn().Err(err).Msg("Provider failed, trying next")
			continue
		}

		breaker.RecordSuccess()
		return quote
	}

	logger.Warn().Err(apperrors.ErrAllProvidersFailed).Msg("All providers failed")
	return nil
}

// BatchQuotes resolves quotes for several symbols. A cached batch is
// returned as-is; otherwise one multi-symbol call is attempted on the
// primary provider, and on failure the gateway degrades to sequential
// single-symbol resolution with a fixed delay between calls.
//
// The result map holds only the symbols that resolved; it is empty,
// never nil-panicking, when everything fails.
func (g *Gateway) BatchQuotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	if len(symbols) == 0 {
		return map[string]*models.Quote{}
	}

	key := batchKey(symbols)
	cached, ok := g.cache.Get(key)
	logging.LogCache(g.logger, key, ok)
	if ok {
		return cached.(map[string]*models.Quote)
	}

	quotes := g.fetchBatch(ctx, symbols)

	if len(quotes) > 0 {
		g.cache.SetTTL(key, quotes, g.config.QuoteTTL)
	}
	return quotes
}

func (g *Gateway) fetchBatch(ctx context.Context, symbols []string) map[string]*models.Quote {
	primary := g.providers[0]
	breaker := g.breakers[primary.Name()]

	if err := breaker.Allow(); err == nil {
		quotes, err := primary.BatchQuotes(ctx, symbols)
		if err != nil {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
		if err == nil && len(quotes) > 0 {
			return quotes
		}
		g.logger.Warn().Err(err).Int("symbols", len(symbols)).Msg("Batch fetch failed, trying individual calls")
	}

	// Degrade to one sequential call per symbol, spaced out to avoid
	// upstream rate limits.
	quotes := make(map[string]*models.Quote)
	for i, symbol := range symbols {
		if i > 0 && g.config.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return quotes
			case <-time.After(g.config.BatchDelay):
			}
		}
		if quote := g.Quote(ctx, symbol); quote != nil {
			quotes[symbol] = quote
		}
	}
	return quotes
}

// Company resolves a company overview, cached for the company TTL.
// Returns nil when no data is available.
func (g *Gateway) Company(ctx context.Context, symbol string) *models.CompanyOverview {
	if g.company == nil {
		return nil
	}

	key := "company:" + symbol
	if cached, ok := g.cache.Get(key); ok {
		return cached.(*models.CompanyOverview)
	}

	if g.store != nil {
		if stored, err := g.store.GetCompany(ctx, symbol, g.config.CompanyTTL); err == nil && stored != nil {
			g.cache.SetTTL(key, stored, g.config.CompanyTTL)
			return stored
		}
	}

	overview, err := g.company.CompanyOverview(ctx, symbol)
	if err != nil {
		g.logger.Warn().Err(err).Str("symbol", symbol).Msg("Company overview fetch failed")
		return nil
	}

	g.cache.SetTTL(key, overview, g.config.CompanyTTL)
	if g.store != nil {
		if err := g.store.SaveCompany(ctx, symbol, overview); err != nil {
			g.logger.Warn().Err(err).Str("symbol", symbol).Msg("Company store write failed")
		}
	}
	return overview
}

// News resolves recent news articles for a symbol. Returns an empty
// list on failure.
func (g *Gateway) News(ctx context.Context, symbol string) []models.NewsArticle {
	if g.company == nil {
		return nil
	}
	articles, err := g.company.News(ctx, symbol)
	if err != nil {
		g.logger.Warn().Err(err).Str("symbol", symbol).Msg("News fetch failed")
		return nil
	}
	return articles
}

// persistQuote writes a fetched quote through to the durable store and
// registers the symbol for the scheduled refresh. Store errors are
// logged and otherwise ignored.
func (g *Gateway) persistQuote(ctx context.Context, quote *models.Quote) {
	if g.store == nil {
		return
	}
	if err := g.store.SaveQuote(ctx, quote); err != nil {
		g.logger.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Quote store write failed")
	}
	if err := g.store.AddToWatchlist(ctx, quote.Symbol); err != nil {
		g.logger.Warn().Err(err).Str("symbol", quote.Symbol).Msg("Watchlist write failed")
	}
}

// WarmStart loads recent quotes from the durable store into the memory
// cache so a restart does not start cold.
func (g *Gateway) WarmStart(ctx context.Context) {
	if g.store == nil {
		return
	}
	quotes, err := g.store.RecentQuotes(ctx, g.config.QuoteTTL)
	if err != nil {
		g.logger.Warn().Err(err).Msg("Warm start failed")
		return
	}
	for _, quote := range quotes {
		remaining := g.config.QuoteTTL - time.Since(quote.Timestamp)
		if remaining <= 0 {
			continue
		}
		g.cache.SetTTL(quoteKey(quote.Symbol), quote, remaining)
	}
	g.logger.Info().Int("quotes", len(quotes)).Msg("Warm start complete")
}

// StartRefresh runs the scheduled refresh loop until ctx is cancelled.
// Each tick re-fetches every watched symbol in one batch and publishes
// the results to the hub.
func (g *Gateway) StartRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(g.config.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.refresh(ctx)
			}
		}
	}()
}

// refresh re-fetches all currently watched symbols, bypassing the
// cache read, and pushes the fresh quotes to subscribers.
func (g *Gateway) refresh(ctx context.Context) {
	symbols := g.watchedSymbols(ctx)
	if len(symbols) == 0 {
		return
	}

	g.logger.Info().Int("symbols", len(symbols)).Msg("Running scheduled refresh")

	quotes := g.fetchBatch(ctx, symbols)
	if len(quotes) == 0 {
		return
	}

	for symbol, quote := range quotes {
		g.cache.SetTTL(quoteKey(symbol), quote, g.config.QuoteTTL)
		g.persistQuote(ctx, quote)
	}
	g.cache.SetTTL(batchKey(symbols), quotes, g.config.QuoteTTL)

	if g.hub != nil {
		g.hub.Publish(quotes)
		logging.LogBroadcast(g.logger, len(quotes), g.hub.SubscriberCount())
	}
}

// watchedSymbols merges the cached quote keys with the durable
// watchlist.
func (g *Gateway) watchedSymbols(ctx context.Context) []string {
	set := make(map[string]bool)
	for _, key := range g.cache.Keys("quote:") {
		set[strings.TrimPrefix(key, "quote:")] = true
	}
	if g.store != nil {
		if watchlist, err := g.store.Watchlist(ctx); err == nil {
			for _, symbol := range watchlist {
				set[symbol] = true
			}
		}
	}

	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
