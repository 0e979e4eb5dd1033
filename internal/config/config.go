package config

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Semantic SemanticConfig `toml:"semantic"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Worker   WorkerConfig   `toml:"worker"`
	Rollout  RolloutConfig  `toml:"rollout"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// SemanticConfig contains settings for the external similarity service
type SemanticConfig struct {
	Enabled        bool   `toml:"enabled"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the hard ceiling for a single similarity call
func (s SemanticConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ScoringConfig contains all tunable weights and thresholds for the
// matching pipeline. Rule weights are per-category maximum points; their
// sum is the rules scorer's maximum score.
type ScoringConfig struct {
	Rules       RuleWeights    `toml:"rules"`
	Fusion      FusionConfig   `toml:"fusion"`
	Behavior    BehaviorConfig `toml:"behavior"`
	MaxReasons  int            `toml:"max_reasons"`
	MaxCautions int            `toml:"max_cautions"`
}

// RuleWeights contains the maximum points per rule category
type RuleWeights struct {
	DriverType  int `toml:"driver_type"`
	RouteType   int `toml:"route_type"`
	Location    int `toml:"location"`
	Experience  int `toml:"experience"`
	TeamDriving int `toml:"team_driving"`
}

// Total returns the rules scorer's maximum score
func (r RuleWeights) Total() int {
	return r.DriverType + r.RouteType + r.Location + r.Experience + r.TeamDriving
}

// FusionConfig contains signal weights and confidence thresholds
type FusionConfig struct {
	RulesWeight        float64 `toml:"rules_weight"`
	SemanticWeight     float64 `toml:"semantic_weight"`
	BehaviorWeight     float64 `toml:"behavior_weight"`
	HighRulesThreshold int     `toml:"high_rules_threshold"`
	DisagreementBand   int     `toml:"disagreement_band"`
}

// BehaviorConfig bounds the behavior signal's contribution
type BehaviorConfig struct {
	// Bound is the maximum nudge (in points on the 0-100 scale) the
	// behavior scorer may apply in either direction around neutral.
	Bound int `toml:"bound"`
}

// WorkerConfig contains recompute worker settings
type WorkerConfig struct {
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	MaxFetchRetries     int `toml:"max_fetch_retries"`
	PairConcurrency     int `toml:"pair_concurrency"`
	CandidateLimit      int `toml:"candidate_limit"`
}

// PollInterval returns how often the worker checks for pending entries
func (w WorkerConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSeconds) * time.Second
}

// RolloutConfig contains rollout controller settings
type RolloutConfig struct {
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// CacheTTL returns how long a rollout snapshot is served before refresh
func (r RolloutConfig) CacheTTL() time.Duration {
	return time.Duration(r.CacheTTLSeconds) * time.Second
}

// LogConfig contains logging settings
type LogConfig struct {
	JSON  bool `toml:"json"`
	Debug bool `toml:"debug"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "~/.local/share/cdlmatch/cdlmatch.db",
		},
		Semantic: SemanticConfig{
			Enabled:        true,
			Host:           "http://localhost",
			Port:           8731,
			TimeoutSeconds: 30,
		},
		Scoring: ScoringConfig{
			Rules: RuleWeights{
				DriverType:  25,
				RouteType:   20,
				Location:    20,
				Experience:  20,
				TeamDriving: 15,
			},
			Fusion: FusionConfig{
				RulesWeight:        0.5,
				SemanticWeight:     0.3,
				BehaviorWeight:     0.2,
				HighRulesThreshold: 75,
				DisagreementBand:   40,
			},
			Behavior: BehaviorConfig{
				Bound: 15,
			},
			MaxReasons:  4,
			MaxCautions: 2,
		},
		Worker: WorkerConfig{
			PollIntervalSeconds: 5,
			MaxFetchRetries:     3,
			PairConcurrency:     5,
			CandidateLimit:      500,
		},
		Rollout: RolloutConfig{
			CacheTTLSeconds: 30,
		},
		Log: LogConfig{
			JSON:  false,
			Debug: false,
		},
	}
}
