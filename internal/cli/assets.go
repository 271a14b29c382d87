package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"portfolio-tracker/internal/models"
)

func newAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List the popular assets catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(models.PopularAssets)
			}

			fmt.Println()
			color.Cyan("Popular Assets")
			fmt.Println(strings.Repeat("─", 72))
			fmt.Printf("%-8s %-36s %-8s %s\n", "Symbol", "Name", "Type", "Sector")
			fmt.Println(strings.Repeat("─", 72))
			for _, asset := range models.PopularAssets {
				fmt.Printf("%-8s %-36s %-8s %s\n", asset.Symbol, asset.Name, asset.AssetType, asset.Sector)
			}
			return nil
		},
	}
	return cmd
}
