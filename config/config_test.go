package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfig(t, `
limits:
  max_facts: 500
  max_iterations: 50
  max_time: "5ms"
revocation:
  backend: "sqlite"
  sqlite_path: "/tmp/revoked.db"
telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Limits.MaxFacts != 500 {
		t.Errorf("MaxFacts = %d, want 500", cfg.Limits.MaxFacts)
	}
	if cfg.Limits.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d, want 50", cfg.Limits.MaxIterations)
	}
	if cfg.Revocation.Backend != "sqlite" {
		t.Errorf("Revocation.Backend = %q, want sqlite", cfg.Revocation.Backend)
	}
	if cfg.Revocation.SQLitePath != "/tmp/revoked.db" {
		t.Errorf("Revocation.SQLitePath = %q, want /tmp/revoked.db", cfg.Revocation.SQLitePath)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Telemetry.Logging.Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}

	limits, err := cfg.DatalogLimits()
	if err != nil {
		t.Fatalf("DatalogLimits: %v", err)
	}
	if limits.MaxTime != 5*time.Millisecond {
		t.Errorf("MaxTime = %v, want 5ms", limits.MaxTime)
	}
	if !limits.AllowRegexes {
		t.Error("AllowRegexes should default to true when unset")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected an error for a nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "limits: [this is not a mapping")
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Revocation.Backend != "memory" {
		t.Errorf("Revocation.Backend = %q, want memory default", cfg.Revocation.Backend)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("Telemetry.Logging.Level = %q, want info default", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("Telemetry.Logging.Format = %q, want json default", cfg.Telemetry.Logging.Format)
	}

	limits, err := cfg.DatalogLimits()
	if err != nil {
		t.Fatalf("DatalogLimits: %v", err)
	}
	if limits.MaxFacts != 1000 || limits.MaxIterations != 100 {
		t.Errorf("limits = %+v, want the datalog defaults", limits)
	}
}

func TestLoad_SQLiteBackendRequiresPath(t *testing.T) {
	path := writeConfig(t, `
revocation:
  backend: "sqlite"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error when backend is sqlite with no sqlite_path")
	}
}

func TestLoad_UnknownBackendIsAnError(t *testing.T) {
	path := writeConfig(t, `
revocation:
  backend: "redis"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unknown revocation backend")
	}
}

func TestLoad_InvalidMaxTimeIsAnError(t *testing.T) {
	path := writeConfig(t, `
limits:
  max_time: "not a duration"
`)
	if _, err := Load(path); err == nil {
		t.Error("expected an error for an unparsable max_time")
	}
}

func TestApplyEnvOverrides_TakesPrecedenceOverFile(t *testing.T) {
	path := writeConfig(t, `
limits:
  max_facts: 500
revocation:
  backend: "memory"
`)

	t.Setenv("BISCUIT_LIMITS_MAX_FACTS", "42")
	t.Setenv("BISCUIT_REVOCATION_BACKEND", "sqlite")
	t.Setenv("BISCUIT_REVOCATION_SQLITE_PATH", "/tmp/env-revoked.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.MaxFacts != 42 {
		t.Errorf("MaxFacts = %d, want 42 from env override", cfg.Limits.MaxFacts)
	}
	if cfg.Revocation.Backend != "sqlite" {
		t.Errorf("Revocation.Backend = %q, want sqlite from env override", cfg.Revocation.Backend)
	}
	if cfg.Revocation.SQLitePath != "/tmp/env-revoked.db" {
		t.Errorf("Revocation.SQLitePath = %q, want /tmp/env-revoked.db from env override", cfg.Revocation.SQLitePath)
	}
}

func TestLimitsConfig_ToDatalogLimitsRejectsInvalidValues(t *testing.T) {
	l := LimitsConfig{MaxFacts: 0, MaxIterations: 10, MaxTime: "1ms"}
	if _, err := l.toDatalogLimits(); err == nil {
		t.Error("expected an error for a non-positive max_facts")
	}
}
