// Package config loads the engine's resource limits and the surrounding
// revocation/observability settings from a YAML file, the way the rest
// of this codebase's config is loaded: file first, environment variable
// overrides second, validation last.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/biscuit-auth/biscuit/datalog"
)

// Config is the top-level on-disk configuration for a verifier process.
type Config struct {
	Limits     LimitsConfig     `yaml:"limits"`
	Revocation RevocationConfig `yaml:"revocation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// LimitsConfig mirrors datalog.Limits in YAML-friendly form (MaxTime is a
// duration string like "1ms" rather than a raw microsecond count).
type LimitsConfig struct {
	MaxFacts        int    `yaml:"max_facts"`
	MaxIterations   int    `yaml:"max_iterations"`
	MaxTime         string `yaml:"max_time"`
	AllowRegexes    *bool  `yaml:"allow_regexes"`
	AllowBlockFacts *bool  `yaml:"allow_block_facts"`
}

// RevocationConfig selects and configures a revocation backend and,
// optionally, a sync strategy to keep it fresh.
type RevocationConfig struct {
	// Backend is "memory" or "sqlite". Default: "memory".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path, required when Backend is "sqlite".
	SQLitePath string `yaml:"sqlite_path"`

	Watch   *WatchConfig   `yaml:"watch"`
	GitSync *GitSyncConfig `yaml:"git_sync"`
}

// WatchConfig configures a file-based revocation list watch.
type WatchConfig struct {
	Path             string `yaml:"path"`
	DebounceInterval string `yaml:"debounce_interval"`
}

// GitSyncConfig configures a git-based revocation list sync.
type GitSyncConfig struct {
	Repository   string `yaml:"repository"`
	Branch       string `yaml:"branch"`
	FilePath     string `yaml:"file_path"`
	LocalPath    string `yaml:"local_path"`
	PollInterval string `yaml:"poll_interval"`
	CronSchedule string `yaml:"cron_schedule"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a YAML configuration file at path, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

func boolPtr(v bool) *bool { return &v }

func applyDefaults(cfg *Config) {
	def := datalog.DefaultLimits()

	if cfg.Limits.MaxFacts == 0 {
		cfg.Limits.MaxFacts = def.MaxFacts
	}
	if cfg.Limits.MaxIterations == 0 {
		cfg.Limits.MaxIterations = def.MaxIterations
	}
	if cfg.Limits.MaxTime == "" {
		cfg.Limits.MaxTime = def.MaxTime.String()
	}
	if cfg.Limits.AllowRegexes == nil {
		cfg.Limits.AllowRegexes = boolPtr(def.AllowRegexes)
	}
	if cfg.Limits.AllowBlockFacts == nil {
		cfg.Limits.AllowBlockFacts = boolPtr(def.AllowBlockFacts)
	}

	if cfg.Revocation.Backend == "" {
		cfg.Revocation.Backend = "memory"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
}

// applyEnvOverrides applies BISCUIT_SECTION_FIELD environment overrides,
// which always take precedence over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BISCUIT_LIMITS_MAX_FACTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxFacts = i
		}
	}
	if v := os.Getenv("BISCUIT_LIMITS_MAX_ITERATIONS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Limits.MaxIterations = i
		}
	}
	if v := os.Getenv("BISCUIT_LIMITS_MAX_TIME"); v != "" {
		cfg.Limits.MaxTime = v
	}
	if v := os.Getenv("BISCUIT_LIMITS_ALLOW_REGEXES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Limits.AllowRegexes = &b
		}
	}
	if v := os.Getenv("BISCUIT_LIMITS_ALLOW_BLOCK_FACTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Limits.AllowBlockFacts = &b
		}
	}
	if v := os.Getenv("BISCUIT_REVOCATION_BACKEND"); v != "" {
		cfg.Revocation.Backend = v
	}
	if v := os.Getenv("BISCUIT_REVOCATION_SQLITE_PATH"); v != "" {
		cfg.Revocation.SQLitePath = v
	}
	if v := os.Getenv("BISCUIT_TELEMETRY_LOGGING_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
	if v := os.Getenv("BISCUIT_TELEMETRY_LOGGING_FORMAT"); v != "" {
		cfg.Telemetry.Logging.Format = v
	}
	if v := os.Getenv("BISCUIT_TELEMETRY_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Revocation.Backend != "memory" && cfg.Revocation.Backend != "sqlite" {
		return fmt.Errorf("revocation.backend must be \"memory\" or \"sqlite\", got %q", cfg.Revocation.Backend)
	}
	if cfg.Revocation.Backend == "sqlite" && cfg.Revocation.SQLitePath == "" {
		return fmt.Errorf("revocation.sqlite_path is required when revocation.backend is \"sqlite\"")
	}
	if _, err := cfg.Limits.toDatalogLimits(); err != nil {
		return err
	}
	return nil
}

// toDatalogLimits converts the YAML-friendly LimitsConfig into a
// datalog.Limits, without the CheckRevocationID hook (the caller wires
// that in separately once a revocation.Store is constructed).
func (l LimitsConfig) toDatalogLimits() (datalog.Limits, error) {
	maxTime, err := time.ParseDuration(l.MaxTime)
	if err != nil {
		return datalog.Limits{}, fmt.Errorf("limits.max_time: %w", err)
	}

	limits := datalog.Limits{
		MaxFacts:      l.MaxFacts,
		MaxIterations: l.MaxIterations,
		MaxTime:       maxTime,
	}
	if l.AllowRegexes != nil {
		limits.AllowRegexes = *l.AllowRegexes
	}
	if l.AllowBlockFacts != nil {
		limits.AllowBlockFacts = *l.AllowBlockFacts
	}

	if err := limits.Validate(); err != nil {
		return datalog.Limits{}, err
	}
	return limits, nil
}

// DatalogLimits returns the datalog.Limits described by cfg.
func (c *Config) DatalogLimits() (datalog.Limits, error) {
	return c.Limits.toDatalogLimits()
}
