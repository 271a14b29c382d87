// Package server exposes the HTTP JSON API and the WebSocket stream.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"portfolio-tracker/internal/allocation"
	apperrors "portfolio-tracker/internal/errors"
	"portfolio-tracker/internal/gateway"
	"portfolio-tracker/internal/insights"
	"portfolio-tracker/internal/logging"
	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/stream"
)

// Config holds the server listen addresses and rate-limit settings.
type Config struct {
	Host            string
	Port            int
	WSPort          int
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Server serves the REST API on one port and the WebSocket stream on
// another, mirroring the split-port layout the frontend expects.
type Server struct {
	gateway  *gateway.Gateway
	hub      *stream.Hub
	insights insights.Generator
	config   Config
	logger   zerolog.Logger
	limiter  *rateLimiter

	httpServer *http.Server
	wsServer   *http.Server
}

// New creates a server. The insights generator may be nil, in which
// case the canned generator is used.
func New(g *gateway.Gateway, hub *stream.Hub, gen insights.Generator, config Config, logger zerolog.Logger) *Server {
	if gen == nil {
		gen = insights.NewCannedGenerator()
	}
	return &Server{
		gateway:  g,
		hub:      hub,
		insights: gen,
		config:   config,
		logger:   logger,
		limiter:  newRateLimiter(config.RateLimitWindow, config.RateLimitMax),
	}
}

// Router builds the API handler with the full middleware chain.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/quote/{symbol}", s.handleQuote)
	mux.HandleFunc("POST /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/company/{symbol}", s.handleCompany)
	mux.HandleFunc("GET /api/news/{symbol}", s.handleNews)
	mux.HandleFunc("GET /api/assets/popular", s.handlePopularAssets)
	mux.HandleFunc("POST /api/allocations", s.handleAllocations)
	mux.HandleFunc("POST /api/insights", s.handleInsights)

	var handler http.Handler = mux
	handler = s.rateLimit(handler)
	handler = corsMiddleware(handler)
	handler = s.requestLogging(handler)
	handler = s.recovery(handler)
	return handler
}

// Start begins serving both listeners. It returns once both are
// listening; serve errors after that are logged.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	s.wsServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.WSPort),
		Handler: s.wsHandler(),
	}

	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server stopped")
		}
	}()
	go func() {
		s.logger.Info().Str("addr", s.wsServer.Addr).Msg("WebSocket server listening")
		if err := s.wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("WebSocket server stopped")
		}
	}()
	return nil
}

// Shutdown stops both listeners gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.wsServer != nil {
		if err := s.wsServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"cache":     "ready",
		"websocket": s.hub.SubscriberCount(),
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	quote := s.gateway.Quote(r.Context(), symbol)
	if quote == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no data available for %s", symbol))
		return
	}
	writeData(w, quote)
}

type portfolioRequest struct {
	Symbols []string `json:"symbols"`
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	var req portfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Symbols) == 0 {
		writeError(w, http.StatusBadRequest, apperrors.NewValidationError("symbols", "symbols array is required").Error())
		return
	}
	symbols := make([]string, len(req.Symbols))
	for i, sym := range req.Symbols {
		symbols[i] = strings.ToUpper(sym)
	}
	quotes := s.gateway.BatchQuotes(r.Context(), symbols)
	writeData(w, quotes)
}

func (s *Server) handleCompany(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	overview := s.gateway.Company(r.Context(), symbol)
	if overview == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no company data for %s", symbol))
		return
	}
	writeData(w, overview)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	articles := s.gateway.News(r.Context(), symbol)
	if articles == nil {
		articles = []models.NewsArticle{}
	}
	writeData(w, articles)
}

func (s *Server) handlePopularAssets(w http.ResponseWriter, _ *http.Request) {
	writeData(w, models.PopularAssets)
}

type allocationsResponse struct {
	Industries   []models.AllocationSlice `json:"industries"`
	AssetClasses []models.AllocationSlice `json:"assetClasses"`
	Summary      models.PortfolioSummary  `json:"summary"`
}

func (s *Server) handleAllocations(w http.ResponseWriter, r *http.Request) {
	var holdings []models.Holding
	if err := json.NewDecoder(r.Body).Decode(&holdings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid holdings payload")
		return
	}
	holdings = allocation.NormalizeAll(holdings)
	writeData(w, allocationsResponse{
		Industries:   allocation.IndustryAllocation(holdings),
		AssetClasses: allocation.AssetClassAllocation(holdings),
		Summary:      allocation.Summarize(holdings),
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var holdings []models.Holding
	if err := json.NewDecoder(r.Body).Decode(&holdings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid holdings payload")
		return
	}
	text, err := s.insights.Generate(r.Context(), holdings)
	if err != nil {
		rlog := logging.FromContext(r.Context())
		rlog.Error().Err(err).Msg("Insight generation failed")
		writeError(w, http.StatusInternalServerError, "insight generation failed")
		return
	}
	writeData(w, map[string]string{"insights": text})
}

// writeData wraps a payload in the success envelope the frontend
// expects.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
