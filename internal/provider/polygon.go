package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "portfolio-tracker/internal/errors"
	"portfolio-tracker/internal/models"
)

const polygonBaseURL = "https://api.polygon.io"

// Polygon is the primary quote provider. It serves previous-day
// aggregates, which is all the dashboard needs.
type Polygon struct {
	baseURL string
	apiKey  string
	client  *http.Client
	batch   *http.Client
}

// NewPolygon creates a Polygon client.
func NewPolygon(apiKey string) *Polygon {
	return &Polygon{
		baseURL: polygonBaseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(quoteTimeout),
		batch:   newHTTPClient(batchTimeout),
	}
}

// NewPolygonWithBaseURL creates a client against a custom endpoint.
// Used by tests.
func NewPolygonWithBaseURL(apiKey, baseURL string) *Polygon {
	p := NewPolygon(apiKey)
	p.baseURL = baseURL
	return p
}

// Name implements Provider.
func (p *Polygon) Name() string { return "polygon" }

type polygonAgg struct {
	Ticker string  `json:"T"`
	Close  float64 `json:"c"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Volume float64 `json:"v"`
}

type polygonAggsResponse struct {
	Results []polygonAgg `json:"results"`
	Status  string       `json:"status"`
}

// Quote implements Provider using the previous-day aggregate endpoint.
func (p *Polygon) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/prev?apikey=%s", p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.apiKey))

	var resp polygonAggsResponse
	if err := p.getJSON(ctx, p.client, endpoint, &resp); err != nil {
		return nil, apperrors.NewProviderError(p.Name(), symbol, err)
	}
	if len(resp.Results) == 0 {
		return nil, apperrors.NewProviderError(p.Name(), symbol, apperrors.ErrNoData)
	}

	return p.toQuote(symbol, resp.Results[0]), nil
}

// BatchQuotes implements Provider using the grouped daily endpoint,
// filtered down to the requested symbols.
func (p *Polygon) BatchQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	endpoint := fmt.Sprintf("%s/v2/aggs/grouped/locale/us/market/stocks/prev?apikey=%s", p.baseURL, url.QueryEscape(p.apiKey))

	var resp polygonAggsResponse
	if err := p.getJSON(ctx, p.batch, endpoint, &resp); err != nil {
		return nil, apperrors.NewProviderError(p.Name(), "", err)
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}

	quotes := make(map[string]*models.Quote)
	for _, agg := range resp.Results {
		if !wanted[agg.Ticker] {
			continue
		}
		q := p.toQuote(agg.Ticker, agg)
		q.Source = "polygon_batch"
		quotes[agg.Ticker] = q
	}
	return quotes, nil
}

func (p *Polygon) toQuote(symbol string, agg polygonAgg) *models.Quote {
	change := agg.Close - agg.Open
	changePercent := 0.0
	if agg.Open != 0 {
		changePercent = change / agg.Open * 100
	}
	return &models.Quote{
		Symbol:        symbol,
		Price:         agg.Close,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        int64(agg.Volume),
		High:          agg.High,
		Low:           agg.Low,
		Open:          agg.Open,
		PreviousClose: agg.Open,
		Timestamp:     time.Now().UTC(),
		Source:        "polygon",
	}
}

func (p *Polygon) getJSON(ctx context.Context, client *http.Client, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
