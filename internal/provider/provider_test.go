package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "portfolio-tracker/internal/errors"
)

func TestPolygon_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/aggs/ticker/AAPL/prev" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"OK","results":[{"T":"AAPL","c":150,"o":148,"h":151,"l":147,"v":1000000}]}`))
	}))
	defer srv.Close()

	p := NewPolygonWithBaseURL("test-key", srv.URL)
	q, err := p.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Price != 150 {
		t.Errorf("price = %v, want 150", q.Price)
	}
	if q.Change != 2 {
		t.Errorf("change = %v, want 2", q.Change)
	}
	if q.Source != "polygon" {
		t.Errorf("source = %q, want polygon", q.Source)
	}
}

func TestPolygon_QuoteNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[]}`))
	}))
	defer srv.Close()

	p := NewPolygonWithBaseURL("test-key", srv.URL)
	_, err := p.Quote(context.Background(), "XXX")
	if err == nil {
		t.Fatal("expected error for empty results")
	}

	var provErr *apperrors.ProviderError
	if !apperrors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if !apperrors.Is(err, apperrors.ErrNoData) {
		t.Errorf("expected ErrNoData in chain, got %v", err)
	}
}

func TestPolygon_QuoteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewPolygonWithBaseURL("test-key", srv.URL)
	if _, err := p.Quote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestPolygon_QuoteMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	p := NewPolygonWithBaseURL("test-key", srv.URL)
	if _, err := p.Quote(context.Background(), "AAPL"); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestPolygon_BatchQuotesFiltersSymbols(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK","results":[
			{"T":"AAPL","c":150,"o":148,"h":151,"l":147,"v":100},
			{"T":"MSFT","c":420,"o":418,"h":421,"l":417,"v":200},
			{"T":"ZZZZ","c":1,"o":1,"h":1,"l":1,"v":1}
		]}`))
	}))
	defer srv.Close()

	p := NewPolygonWithBaseURL("test-key", srv.URL)
	quotes, err := p.BatchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(quotes))
	}
	if quotes["AAPL"].Source != "polygon_batch" {
		t.Errorf("source = %q, want polygon_batch", quotes["AAPL"].Source)
	}
	if _, ok := quotes["ZZZZ"]; ok {
		t.Error("unrequested symbol should be filtered out")
	}
}

func TestAlphaVantage_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", got)
		}
		w.Write([]byte(`{"Global Quote":{
			"01. symbol":"AAPL",
			"02. open":"148.00",
			"03. high":"151.00",
			"04. low":"147.00",
			"05. price":"150.00",
			"06. volume":"1000000",
			"08. previous close":"148.50",
			"09. change":"1.50",
			"10. change percent":"1.01%"
		}}`))
	}))
	defer srv.Close()

	a := NewAlphaVantageWithBaseURL("test-key", srv.URL)
	q, err := a.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Price != 150 {
		t.Errorf("price = %v, want 150", q.Price)
	}
	if q.ChangePercent != 1.01 {
		t.Errorf("changePercent = %v, want 1.01", q.ChangePercent)
	}
	if q.Volume != 1000000 {
		t.Errorf("volume = %v, want 1000000", q.Volume)
	}
}

func TestAlphaVantage_QuoteEmptyPayload(t *testing.T) {
	// Alpha Vantage returns 200 with an empty object on unknown
	// symbols and rate limiting.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a := NewAlphaVantageWithBaseURL("test-key", srv.URL)
	if _, err := a.Quote(context.Background(), "XXX"); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestAlphaVantage_CompanyOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Symbol":"AAPL","Name":"Apple Inc","Sector":"TECHNOLOGY","PERatio":"29.5","52WeekHigh":"260.10"}`))
	}))
	defer srv.Close()

	a := NewAlphaVantageWithBaseURL("test-key", srv.URL)
	overview, err := a.CompanyOverview(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if overview.Name != "Apple Inc" {
		t.Errorf("name = %q", overview.Name)
	}
	if overview.Week52High != "260.10" {
		t.Errorf("week52High = %q", overview.Week52High)
	}
}

func TestAlphaVantage_News(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"feed":[{
			"title":"Apple hits new high",
			"summary":"Shares rallied.",
			"source":"Newswire",
			"time_published":"20260827T143000",
			"url":"https://example.com/a",
			"overall_sentiment_label":"Bullish",
			"relevance_score":"0.9"
		}]}`))
	}))
	defer srv.Close()

	a := NewAlphaVantageWithBaseURL("test-key", srv.URL)
	articles, err := a.News(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
	if articles[0].Sentiment != "Bullish" {
		t.Errorf("sentiment = %q", articles[0].Sentiment)
	}
	if articles[0].RelevanceScore != 0.9 {
		t.Errorf("relevanceScore = %v", articles[0].RelevanceScore)
	}
}
