package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for inconsistent values.
func Validate(cfg *Config) error {
	switch cfg.Policy.Mode {
	case "file":
	case "git":
		if cfg.Policy.GitURL == "" {
			return fmt.Errorf("policy.git_url is required in git mode")
		}
	default:
		return fmt.Errorf("policy.mode must be \"file\" or \"git\", got %q", cfg.Policy.Mode)
	}

	switch cfg.EventLog.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("event_log.backend must be \"memory\" or \"sqlite\", got %q", cfg.EventLog.Backend)
	}
	if cfg.EventLog.Buffer < 1 {
		return fmt.Errorf("event_log.buffer must be positive, got %d", cfg.EventLog.Buffer)
	}
	if cfg.EventLog.RetentionDays < 0 {
		return fmt.Errorf("event_log.retention_days cannot be negative, got %d", cfg.EventLog.RetentionDays)
	}
	if cfg.EventLog.MaxEvents < 0 {
		return fmt.Errorf("event_log.max_events cannot be negative, got %d", cfg.EventLog.MaxEvents)
	}
	if cfg.EventLog.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.EventLog.PruneSchedule); err != nil {
			return fmt.Errorf("event_log.prune_schedule is not a valid cron expression: %w", err)
		}
	}

	switch cfg.Store.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("store.backend must be \"memory\" or \"sqlite\", got %q", cfg.Store.Backend)
	}

	if r := cfg.Telemetry.Tracing.SampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("telemetry.tracing.sample_ratio must be in [0, 1], got %v", r)
	}

	return nil
}
