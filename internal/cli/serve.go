package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"portfolio-tracker/internal/cache"
	"portfolio-tracker/internal/gateway"
	"portfolio-tracker/internal/provider"
	"portfolio-tracker/internal/server"
	"portfolio-tracker/internal/store"
	"portfolio-tracker/internal/stream"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API and WebSocket servers",
		Long: `Start the HTTP JSON API and the WebSocket quote stream.

The API serves quotes with provider fallback (Polygon, then Alpha
Vantage), portfolio allocation breakdowns, company profiles, and news.
A scheduled refresh re-fetches every watched symbol and pushes updates
to WebSocket subscribers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), app)
		},
	}
	return cmd
}

func runServe(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	if cfg.Credentials.Polygon.APIKey == "" && cfg.Credentials.AlphaVantage.APIKey == "" {
		logger.Warn().Msg("No provider API keys configured, quote lookups will fail")
	}

	quoteCache := cache.New(cfg.Cache.QuoteTTL, cfg.Cache.Sweep)
	defer quoteCache.Close()

	hub := stream.NewHub()

	alphaVantage := provider.NewAlphaVantage(cfg.Credentials.AlphaVantage.APIKey)
	providers := []provider.Provider{
		provider.NewPolygon(cfg.Credentials.Polygon.APIKey),
		alphaVantage,
	}

	opts := []gateway.Option{
		gateway.WithHub(hub),
		gateway.WithCompanyProvider(alphaVantage),
		gateway.WithLogger(logger),
	}

	dataStore, err := store.NewSQLiteStore(cfg.Server.DBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Store unavailable, running without persistence")
	} else {
		defer dataStore.Close()
		opts = append(opts, gateway.WithStore(dataStore))
	}

	g := gateway.New(providers, quoteCache, gateway.Config{
		QuoteTTL:        cfg.Cache.QuoteTTL,
		CompanyTTL:      cfg.Cache.CompanyTTL,
		BatchDelay:      cfg.Refresh.BatchDelay,
		RefreshInterval: cfg.Refresh.Interval,
	}, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub.Start(runCtx)
	defer hub.Stop()

	g.WarmStart(runCtx)
	g.StartRefresh(runCtx)

	srv := server.New(g, hub, app.Insights, server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		WSPort:          cfg.Server.WSPort,
		RateLimitWindow: cfg.RateLimit.Window,
		RateLimitMax:    cfg.RateLimit.Max,
	}, logger)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info().
		Int("port", cfg.Server.Port).
		Int("ws_port", cfg.Server.WSPort).
		Dur("refresh", cfg.Refresh.Interval).
		Msg("Portfolio tracker running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case <-runCtx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
