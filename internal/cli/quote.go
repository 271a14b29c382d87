package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portfolio-tracker/internal/cache"
	"portfolio-tracker/internal/gateway"
	"portfolio-tracker/internal/provider"
)

func newQuoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote <symbol> [symbol...]",
		Short: "Fetch current quotes for one or more symbols",
		Long: `Fetch current quotes through the same provider chain the server
uses: Polygon first, Alpha Vantage as fallback. Multiple symbols are
fetched as one batch.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, app, args)
		},
	}
	return cmd
}

// newCLIGateway builds a short-lived gateway for one-shot commands. No
// store, no hub; just the provider chain and a throwaway cache.
func newCLIGateway(app *App) (*gateway.Gateway, func()) {
	cfg := app.Config
	c := cache.New(cfg.Cache.QuoteTTL, cfg.Cache.Sweep)

	alphaVantage := provider.NewAlphaVantage(cfg.Credentials.AlphaVantage.APIKey)
	g := gateway.New([]provider.Provider{
		provider.NewPolygon(cfg.Credentials.Polygon.APIKey),
		alphaVantage,
	}, c, gateway.Config{
		QuoteTTL:   cfg.Cache.QuoteTTL,
		CompanyTTL: cfg.Cache.CompanyTTL,
		BatchDelay: cfg.Refresh.BatchDelay,
	}, gateway.WithCompanyProvider(alphaVantage), gateway.WithLogger(app.Logger))

	return g, c.Close
}

func runQuote(cmd *cobra.Command, app *App, symbols []string) error {
	output := NewOutput(cmd)

	for i, symbol := range symbols {
		symbols[i] = strings.ToUpper(symbol)
	}

	g, closeCache := newCLIGateway(app)
	defer closeCache()

	quotes := g.BatchQuotes(cmd.Context(), symbols)
	if len(quotes) == 0 {
		return fmt.Errorf("no data available for %s", strings.Join(symbols, ", "))
	}

	if output.IsJSON() {
		return output.JSON(quotes)
	}

	fmt.Println()
	color.Cyan("Quotes")
	fmt.Println(strings.Repeat("─", 72))
	fmt.Printf("%-8s %12s %18s %12s %10s\n", "Symbol", "Price", "Change", "Volume", "Source")
	fmt.Println(strings.Repeat("─", 72))

	for _, symbol := range symbols {
		quote, ok := quotes[symbol]
		if !ok {
			output.Dim("%-8s no data", symbol)
			continue
		}
		fmt.Printf("%-8s %12.2f %18s %12d %10s\n",
			quote.Symbol,
			quote.Price,
			output.FormatChange(quote.Change, quote.ChangePercent),
			quote.Volume,
			quote.Source,
		)
	}
	fmt.Println()
	output.Dim("As of %s", time.Now().Format(time.RFC1123))
	return nil
}
