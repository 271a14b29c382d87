package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "portfolio-tracker/internal/errors"
	"portfolio-tracker/internal/models"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage is the fallback quote provider and the only source for
// company overviews and news sentiment.
type AlphaVantage struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAlphaVantage creates an Alpha Vantage client.
func NewAlphaVantage(apiKey string) *AlphaVantage {
	return &AlphaVantage{
		baseURL: alphaVantageBaseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(quoteTimeout),
	}
}

// NewAlphaVantageWithBaseURL creates a client against a custom
// endpoint. Used by tests.
func NewAlphaVantageWithBaseURL(apiKey, baseURL string) *AlphaVantage {
	a := NewAlphaVantage(apiKey)
	a.baseURL = baseURL
	return a
}

// Name implements Provider.
func (a *AlphaVantage) Name() string { return "alpha_vantage" }

type globalQuoteResponse struct {
	GlobalQuote map[string]string `json:"Global Quote"`
}

// Quote implements Provider using the GLOBAL_QUOTE function. Alpha
// Vantage responses are string-keyed by ordinal field names.
func (a *AlphaVantage) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	endpoint := a.endpoint("GLOBAL_QUOTE", "symbol", symbol)

	var resp globalQuoteResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, apperrors.NewProviderError(a.Name(), symbol, err)
	}
	if len(resp.GlobalQuote) == 0 {
		return nil, apperrors.NewProviderError(a.Name(), symbol, apperrors.ErrNoData)
	}

	q := resp.GlobalQuote
	quote := &models.Quote{
		Symbol:        q["01. symbol"],
		Price:         parseFloat(q["05. price"]),
		Change:        parseFloat(q["09. change"]),
		ChangePercent: parseFloat(strings.TrimSuffix(q["10. change percent"], "%")),
		Volume:        parseInt(q["06. volume"]),
		High:          parseFloat(q["03. high"]),
		Low:           parseFloat(q["04. low"]),
		Open:          parseFloat(q["02. open"]),
		PreviousClose: parseFloat(q["08. previous close"]),
		Timestamp:     time.Now().UTC(),
		Source:        "alpha_vantage",
	}
	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}

// BatchQuotes implements Provider. Alpha Vantage has no batch endpoint,
// so symbols are fetched one at a time.
func (a *AlphaVantage) BatchQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	quotes := make(map[string]*models.Quote, len(symbols))
	for _, symbol := range symbols {
		q, err := a.Quote(ctx, symbol)
		if err != nil {
			continue
		}
		quotes[symbol] = q
	}
	if len(quotes) == 0 {
		return nil, apperrors.NewProviderError(a.Name(), "", apperrors.ErrNoData)
	}
	return quotes, nil
}

type overviewResponse struct {
	Symbol             string `json:"Symbol"`
	Name               string `json:"Name"`
	Description        string `json:"Description"`
	Sector             string `json:"Sector"`
	Industry           string `json:"Industry"`
	MarketCap          string `json:"MarketCapitalization"`
	PERatio            string `json:"PERatio"`
	EPS                string `json:"EPS"`
	Beta               string `json:"Beta"`
	DividendYield      string `json:"DividendYield"`
	Week52High         string `json:"52WeekHigh"`
	Week52Low          string `json:"52WeekLow"`
	AnalystTargetPrice string `json:"AnalystTargetPrice"`
}

// CompanyOverview implements CompanyProvider using the OVERVIEW function.
func (a *AlphaVantage) CompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	endpoint := a.endpoint("OVERVIEW", "symbol", symbol)

	var resp overviewResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, apperrors.NewProviderError(a.Name(), symbol, err)
	}
	if resp.Symbol == "" && resp.Name == "" {
		return nil, apperrors.NewProviderError(a.Name(), symbol, apperrors.ErrNoData)
	}

	return &models.CompanyOverview{
		Symbol:             resp.Symbol,
		Name:               resp.Name,
		Description:        resp.Description,
		Sector:             resp.Sector,
		Industry:           resp.Industry,
		MarketCap:          resp.MarketCap,
		PERatio:            resp.PERatio,
		EPS:                resp.EPS,
		Beta:               resp.Beta,
		DividendYield:      resp.DividendYield,
		Week52High:         resp.Week52High,
		Week52Low:          resp.Week52Low,
		AnalystTargetPrice: resp.AnalystTargetPrice,
	}, nil
}

type newsResponse struct {
	Feed []struct {
		Title          string `json:"title"`
		Summary        string `json:"summary"`
		Source         string `json:"source"`
		TimePublished  string `json:"time_published"`
		URL            string `json:"url"`
		Sentiment      string `json:"overall_sentiment_label"`
		RelevanceScore string `json:"relevance_score"`
	} `json:"feed"`
}

// News implements CompanyProvider using the NEWS_SENTIMENT function.
func (a *AlphaVantage) News(ctx context.Context, symbol string) ([]models.NewsArticle, error) {
	endpoint := a.endpoint("NEWS_SENTIMENT", "tickers", symbol)

	var resp newsResponse
	if err := a.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, apperrors.NewProviderError(a.Name(), symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(resp.Feed))
	for _, item := range resp.Feed {
		published, _ := time.Parse("20060102T150405", item.TimePublished)
		articles = append(articles, models.NewsArticle{
			Title:          item.Title,
			Summary:        item.Summary,
			Source:         item.Source,
			PublishedAt:    published,
			URL:            item.URL,
			Sentiment:      item.Sentiment,
			RelevanceScore: parseFloat(item.RelevanceScore),
		})
	}
	return articles, nil
}

func (a *AlphaVantage) endpoint(function, symbolParam, symbol string) string {
	v := url.Values{}
	v.Set("function", function)
	v.Set(symbolParam, symbol)
	v.Set("apikey", a.apiKey)
	return fmt.Sprintf("%s/query?%s", a.baseURL, v.Encode())
}

func (a *AlphaVantage) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
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

// parseFloat tolerates the empty and "None" values Alpha Vantage emits
// for missing numeric fields.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
