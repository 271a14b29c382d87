// Package models provides domain models for the portfolio tracker.
package models

import (
	"time"
)

// Quote represents a point-in-time market quote for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Volume        int64     `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	PreviousClose float64   `json:"previousClose"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source"`
}

// Holding represents a user-owned position. Holdings are owned by the
// client; the server only ever receives them as request payloads and
// never persists them.
//
// All fields are optional on input. Zero values are filled in by
// allocation.Normalize before any aggregation runs.
type Holding struct {
	ID            string    `json:"id,omitempty"`
	Ticker        string    `json:"ticker"`
	Name          string    `json:"name,omitempty"`
	AssetType     AssetType `json:"assetType,omitempty"`
	Sector        Sector    `json:"sector,omitempty"`
	Quantity      float64   `json:"quantity"`
	CurrentPrice  float64   `json:"currentPrice,omitempty"`
	PurchasePrice float64   `json:"purchasePrice,omitempty"`
	DailyChange   float64   `json:"dailyChange,omitempty"`
	ChangePct     float64   `json:"changePct,omitempty"`
	Value         float64   `json:"value,omitempty"`
}

// AllocationSlice is one category's aggregated share of total portfolio
// value, sized for direct chart rendering.
type AllocationSlice struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// PortfolioSummary holds the per-snapshot totals computed alongside the
// allocation views.
type PortfolioSummary struct {
	TotalValue         float64 `json:"totalValue"`
	TotalDailyChange   float64 `json:"totalDailyChange"`
	DailyChangePercent float64 `json:"dailyChangePercent"`
}

// CompanyOverview is the company profile payload served from the
// long-lived cache.
type CompanyOverview struct {
	Symbol             string `json:"symbol"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	Sector             string `json:"sector"`
	Industry           string `json:"industry"`
	MarketCap          string `json:"marketCap"`
	PERatio            string `json:"peRatio"`
	EPS                string `json:"eps"`
	Beta               string `json:"beta"`
	DividendYield      string `json:"dividendYield"`
	Week52High         string `json:"week52High"`
	Week52Low          string `json:"week52Low"`
	AnalystTargetPrice string `json:"analystTargetPrice"`
}

// NewsArticle is a single news item for a symbol.
type NewsArticle struct {
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Source         string    `json:"source"`
	PublishedAt    time.Time `json:"publishedAt"`
	URL            string    `json:"url"`
	Sentiment      string    `json:"sentiment"`
	RelevanceScore float64   `json:"relevanceScore"`
}
