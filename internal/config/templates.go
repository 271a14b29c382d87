package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Portfolio Tracker Configuration

[server]
# Address to bind
host = "0.0.0.0"
# HTTP API port
port = 3001
# WebSocket live-update port
ws_port = 3002
# Path to the durable cache database (empty = default location)
db_path = ""

[cache]
# Quote cache time-to-live
quote_ttl = "300s"
# Company overview cache time-to-live
company_ttl = "1h"
# Expired-entry sweep interval
sweep = "1m"

[refresh]
# Scheduled refresh interval for all watched symbols
interval = "5m"
# Delay between individual calls when a batch fetch degrades
batch_delay = "100ms"

[rate_limit]
# Fixed rate limit window
window = "15m"
# Maximum requests per client per window
max = 100

[log]
# Log level: debug, info, warn, error
level = "info"
# Log to the console
console = true
# Log to a rotated file
file = true
`

const credentialsTemplate = `# Portfolio Tracker API Credentials
# Keep this file secure. Environment variables POLYGON_API_KEY,
# ALPHA_VANTAGE_KEY, and OPENAI_API_KEY override these values.

[polygon]
api_key = ""

[alphavantage]
api_key = ""

[openai]
api_key = ""
model = "gpt-3.5-turbo"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are restricted to the owner.
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
