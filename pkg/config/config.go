package config

import "time"

// Config is the root configuration structure for tripwire. It covers the
// policy source, the event log, the reference row store, and telemetry.
type Config struct {
	// Policy contains configuration for declarative policy loading: file or
	// git source, and watch mode.
	Policy PolicyConfig `yaml:"policy"`

	// EventLog contains configuration for audit event storage, the async
	// recorder, and retention.
	EventLog EventLogConfig `yaml:"event_log"`

	// Store contains configuration for the reference guarded row store.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains configuration for metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig selects where declarative policies come from.
type PolicyConfig struct {
	// Mode is "file" or "git".
	// Default: "file"
	Mode string `yaml:"mode"`

	// Path is the policy file or directory (file mode).
	// Default: "./policies"
	Path string `yaml:"path"`

	// Watch reloads policies when files change (file mode).
	// Default: false
	Watch bool `yaml:"watch"`

	// GitURL is the repository URL (git mode).
	GitURL string `yaml:"git_url"`

	// GitRef is the branch or tag to track (git mode).
	// Default: "main"
	GitRef string `yaml:"git_ref"`

	// GitPath is the directory of policy files inside the repository.
	// Default: "policies"
	GitPath string `yaml:"git_path"`
}

// EventLogConfig configures audit event storage.
type EventLogConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the sqlite database file.
	// Default: "data/events.db"
	Path string `yaml:"path"`

	// Buffer is the async recorder channel size.
	// Default: 1000
	Buffer int `yaml:"buffer"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays prunes events older than this. Zero keeps forever.
	RetentionDays int `yaml:"retention_days"`

	// MaxEvents caps total stored events. Zero means unlimited.
	MaxEvents int `yaml:"max_events"`

	// PruneSchedule is a cron expression for scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// StoreConfig configures the reference guarded row store.
type StoreConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the sqlite database file.
	// Default: "data/rows.db"
	Path string `yaml:"path"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "tripwire"
	Namespace string `yaml:"namespace"`

	// Subsystem is the secondary metric name prefix.
	Subsystem string `yaml:"subsystem"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns span emission on. When disabled a noop tracer is used.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	// Default: "tripwire"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS on the exporter connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of mutations traced, 0..1.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
