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
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Policy.Mode != "file" || cfg.Policy.Path != "./policies" {
		t.Errorf("Unexpected policy defaults: %+v", cfg.Policy)
	}
	if cfg.EventLog.Backend != "sqlite" || cfg.EventLog.Buffer != 1000 {
		t.Errorf("Unexpected event log defaults: %+v", cfg.EventLog)
	}
	if cfg.EventLog.WriteTimeout != 5*time.Second {
		t.Errorf("Unexpected write timeout: %v", cfg.EventLog.WriteTimeout)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Unexpected store default: %+v", cfg.Store)
	}
	if cfg.Telemetry.Metrics.Namespace != "tripwire" {
		t.Errorf("Unexpected metrics defaults: %+v", cfg.Telemetry.Metrics)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 1.0 {
		t.Errorf("Unexpected tracing defaults: %+v", cfg.Telemetry.Tracing)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("Default configuration should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
policy:
  mode: file
  path: ./my-policies
  watch: true

event_log:
  backend: memory
  retention_days: 30
  max_events: 100000
  prune_schedule: "0 3 * * *"

telemetry:
  tracing:
    enabled: true
    sample_ratio: 0.25
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Policy.Path != "./my-policies" || !cfg.Policy.Watch {
		t.Errorf("Unexpected policy config: %+v", cfg.Policy)
	}
	if cfg.EventLog.Backend != "memory" || cfg.EventLog.RetentionDays != 30 {
		t.Errorf("Unexpected event log config: %+v", cfg.EventLog)
	}
	// Unset fields still pick up defaults.
	if cfg.EventLog.Buffer != 1000 {
		t.Errorf("Expected defaulted buffer, got %d", cfg.EventLog.Buffer)
	}
	if cfg.Telemetry.Tracing.SampleRatio != 0.25 {
		t.Errorf("Unexpected sample ratio: %v", cfg.Telemetry.Tracing.SampleRatio)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}

	if _, err := Load(writeConfig(t, "policy: [")); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad policy mode", func(c *Config) { c.Policy.Mode = "http" }},
		{"git mode without url", func(c *Config) { c.Policy.Mode = "git" }},
		{"bad event log backend", func(c *Config) { c.EventLog.Backend = "postgres" }},
		{"zero buffer", func(c *Config) { c.EventLog.Buffer = -1 }},
		{"negative retention", func(c *Config) { c.EventLog.RetentionDays = -1 }},
		{"negative max events", func(c *Config) { c.EventLog.MaxEvents = -1 }},
		{"bad cron", func(c *Config) { c.EventLog.PruneSchedule = "whenever" }},
		{"bad store backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"sample ratio above one", func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidate_GitMode(t *testing.T) {
	cfg := Default()
	cfg.Policy.Mode = "git"
	cfg.Policy.GitURL = "https://example.com/policies.git"
	if err := Validate(cfg); err != nil {
		t.Errorf("Git mode with url should validate: %v", err)
	}
}
