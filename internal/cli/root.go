package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"portfolio-tracker/internal/config"
	"portfolio-tracker/internal/insights"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Insights insights.Generator
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Credentials.OpenAI.APIKey != "" {
		app.Insights = insights.NewOpenAIGenerator(cfg.Credentials.OpenAI.APIKey, cfg.Credentials.OpenAI.Model, logger)
		logger.Debug().Str("model", cfg.Credentials.OpenAI.Model).Msg("OpenAI insights generator initialized")
	} else {
		app.Insights = insights.NewCannedGenerator()
	}

	rootCmd := &cobra.Command{
		Use:   "portfolio-tracker",
		Short: "Portfolio Tracker - market data and allocation backend",
		Long: `Portfolio Tracker serves live market quotes with provider fallback,
portfolio allocation breakdowns, and a WebSocket stream of scheduled
quote refreshes.

Use 'portfolio-tracker serve' to start the API and WebSocket servers.
Use 'portfolio-tracker help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/portfolio-tracker)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newQuoteCmd(app))
	rootCmd.AddCommand(newAllocationsCmd(app))
	rootCmd.AddCommand(newAssetsCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Portfolio Tracker v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}

			data, err := json.MarshalIndent(app.Config, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			output.Info("Current configuration:")
			output.Println(string(data))
			output.Dim("Config directory: %s", config.DefaultConfigDir())
			return nil
		},
	})

	return cmd
}
