package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portfolio-tracker/internal/allocation"
	"portfolio-tracker/internal/models"
)

func newAllocationsCmd(app *App) *cobra.Command {
	var withInsights bool

	cmd := &cobra.Command{
		Use:   "allocations <holdings.json>",
		Short: "Compute allocation breakdowns from a holdings file",
		Long: `Compute sector and asset-class allocation breakdowns from a JSON
file of holdings. Pass "-" to read holdings from stdin.

Each holding needs at most a ticker and quantity; missing prices,
sectors, and asset types are filled with the same defaults the API
applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAllocations(cmd, app, args[0], withInsights)
		},
	}

	cmd.Flags().BoolVar(&withInsights, "insights", false, "include narrative insights")
	return cmd
}

func readHoldings(path string) ([]models.Holding, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading holdings: %w", err)
	}

	var holdings []models.Holding
	if err := json.Unmarshal(data, &holdings); err != nil {
		return nil, fmt.Errorf("parsing holdings: %w", err)
	}
	return holdings, nil
}

func runAllocations(cmd *cobra.Command, app *App, path string, withInsights bool) error {
	output := NewOutput(cmd)

	holdings, err := readHoldings(path)
	if err != nil {
		return err
	}

	holdings = allocation.NormalizeAll(holdings)
	industries := allocation.IndustryAllocation(holdings)
	assetClasses := allocation.AssetClassAllocation(holdings)
	summary := allocation.Summarize(holdings)

	if output.IsJSON() {
		result := map[string]any{
			"industries":   industries,
			"assetClasses": assetClasses,
			"summary":      summary,
		}
		if withInsights {
			text, err := app.Insights.Generate(cmd.Context(), holdings)
			if err != nil {
				return err
			}
			result["insights"] = text
		}
		return output.JSON(result)
	}

	printSlices("Sector Allocation", industries)
	printSlices("Asset Class Allocation", assetClasses)

	fmt.Println()
	color.Cyan("Summary")
	fmt.Println(strings.Repeat("─", 48))
	fmt.Printf("Total value:   $%.2f\n", summary.TotalValue)
	fmt.Printf("Daily change:  %s\n", output.FormatChange(summary.TotalDailyChange, summary.DailyChangePercent))

	if withInsights {
		text, err := app.Insights.Generate(cmd.Context(), holdings)
		if err != nil {
			return err
		}
		fmt.Println()
		color.Cyan("Insights")
		fmt.Println(strings.Repeat("─", 48))
		fmt.Println(text)
	}
	return nil
}

func printSlices(title string, slices []models.AllocationSlice) {
	fmt.Println()
	color.Cyan(title)
	fmt.Println(strings.Repeat("─", 48))
	for _, slice := range slices {
		fmt.Printf("%-26s %10.2f  %6.2f%%\n", slice.Name, slice.Value, slice.Percentage)
	}
}
