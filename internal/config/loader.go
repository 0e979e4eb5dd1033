package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand path
	expandedPath, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	// Read file
	data, err := os.ReadFile(expandedPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s (run 'cdlmatch config init' to create)", expandedPath)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Parse TOML
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths in config
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// expandPaths expands ~ in all path fields
func (c *Config) expandPaths() error {
	var err error

	c.Database.Path, err = expandPath(c.Database.Path)
	if err != nil {
		return err
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	// Semantic validation
	if c.Semantic.Enabled {
		if c.Semantic.Host == "" {
			errs = append(errs, errors.New("semantic.host is required when semantic.enabled is true"))
		}
		if c.Semantic.Port < 1 || c.Semantic.Port > 65535 {
			errs = append(errs, errors.New("semantic.port must be between 1 and 65535"))
		}
	}
	if c.Semantic.TimeoutSeconds < 1 {
		errs = append(errs, errors.New("semantic.timeout_seconds must be at least 1"))
	}

	// Rule weight validation
	if c.Scoring.Rules.Total() <= 0 {
		errs = append(errs, errors.New("scoring.rules weights must sum to a positive value"))
	}
	for _, w := range []struct {
		name  string
		value int
	}{
		{"driver_type", c.Scoring.Rules.DriverType},
		{"route_type", c.Scoring.Rules.RouteType},
		{"location", c.Scoring.Rules.Location},
		{"experience", c.Scoring.Rules.Experience},
		{"team_driving", c.Scoring.Rules.TeamDriving},
	} {
		if w.value < 0 {
			errs = append(errs, fmt.Errorf("scoring.rules.%s must not be negative", w.name))
		}
	}

	// Fusion validation
	f := c.Scoring.Fusion
	if f.RulesWeight <= 0 {
		errs = append(errs, errors.New("scoring.fusion.rules_weight must be positive"))
	}
	if f.SemanticWeight < 0 || f.BehaviorWeight < 0 {
		errs = append(errs, errors.New("scoring.fusion weights must not be negative"))
	}
	if f.HighRulesThreshold < 0 || f.HighRulesThreshold > 100 {
		errs = append(errs, errors.New("scoring.fusion.high_rules_threshold must be between 0 and 100"))
	}
	if f.DisagreementBand < 0 || f.DisagreementBand > 100 {
		errs = append(errs, errors.New("scoring.fusion.disagreement_band must be between 0 and 100"))
	}

	// Behavior validation
	if c.Scoring.Behavior.Bound < 0 || c.Scoring.Behavior.Bound > 50 {
		errs = append(errs, errors.New("scoring.behavior.bound must be between 0 and 50"))
	}

	// Explanation caps
	if c.Scoring.MaxReasons < 1 {
		errs = append(errs, errors.New("scoring.max_reasons must be at least 1"))
	}
	if c.Scoring.MaxCautions < 0 {
		errs = append(errs, errors.New("scoring.max_cautions must not be negative"))
	}

	// Worker validation
	if c.Worker.PollIntervalSeconds < 1 {
		errs = append(errs, errors.New("worker.poll_interval_seconds must be at least 1"))
	}
	if c.Worker.MaxFetchRetries < 1 {
		errs = append(errs, errors.New("worker.max_fetch_retries must be at least 1"))
	}
	if c.Worker.PairConcurrency < 1 {
		errs = append(errs, errors.New("worker.pair_concurrency must be at least 1"))
	}
	if c.Worker.CandidateLimit < 1 {
		errs = append(errs, errors.New("worker.candidate_limit must be at least 1"))
	}

	// Rollout validation
	if c.Rollout.CacheTTLSeconds < 1 {
		errs = append(errs, errors.New("rollout.cache_ttl_seconds must be at least 1"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// SemanticURL returns the full URL for the similarity service
func (c *Config) SemanticURL() string {
	return fmt.Sprintf("%s:%d", c.Semantic.Host, c.Semantic.Port)
}

// EnsureDirectories creates necessary directories for the database
func (c *Config) EnsureDirectories() error {
	dir := filepath.Dir(c.Database.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
