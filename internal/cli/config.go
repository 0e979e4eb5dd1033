package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "cdlmatch")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configDir, "config.toml")

	// Check if config already exists
	if _, err := os.Stat(configFile); err == nil {
		fmt.Printf("Config file already exists at %s\n", configFile)
		fmt.Println("Use 'cdlmatch config show' to view current configuration")
		return nil
	}

	// Write default config
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Create the data directory the written config points at
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load written config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Start the similarity service, or set semantic.enabled = false")
	fmt.Println("  2. Run 'cdlmatch worker' to start processing recomputes")
	fmt.Println("  3. Run 'cdlmatch rollout show' to review visibility gating")

	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No config file found. Run 'cdlmatch config init' to create one.")
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	fmt.Printf("# Config file: %s\n\n", configPath)
	fmt.Println(string(data))
	return nil
}

const defaultConfig = `# cdlmatch configuration

[database]
path = "~/.local/share/cdlmatch/cdlmatch.db"

[semantic]
enabled = true
host = "http://localhost"
port = 8731
timeout_seconds = 30

[scoring]
max_reasons = 4
max_cautions = 2

[scoring.rules]
driver_type = 25
route_type = 20
location = 20
experience = 20
team_driving = 15

[scoring.fusion]
rules_weight = 0.5
semantic_weight = 0.3
behavior_weight = 0.2
high_rules_threshold = 75
disagreement_band = 40

[scoring.behavior]
bound = 15

[worker]
poll_interval_seconds = 5
max_fetch_retries = 3
pair_concurrency = 5
candidate_limit = 500

[rollout]
cache_ttl_seconds = 30

[log]
json = false
debug = false
`
