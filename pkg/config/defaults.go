package config

import "time"

// Default values for configuration fields.
const (
	DefaultPolicyMode = "file"
	DefaultPolicyPath = "./policies"
	DefaultGitRef     = "main"
	DefaultGitPath    = "policies"

	DefaultEventLogBackend      = "sqlite"
	DefaultEventLogPath         = "data/events.db"
	DefaultEventLogBuffer       = 1000
	DefaultEventLogWriteTimeout = 5 * time.Second

	DefaultStoreBackend = "memory"
	DefaultStorePath    = "data/rows.db"

	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "tripwire"

	DefaultTracingServiceName = "tripwire"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingInsecure    = true
	DefaultTracingSampleRatio = 1.0
)

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = DefaultPolicyMode
	}
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = DefaultPolicyPath
	}
	if cfg.Policy.GitRef == "" {
		cfg.Policy.GitRef = DefaultGitRef
	}
	if cfg.Policy.GitPath == "" {
		cfg.Policy.GitPath = DefaultGitPath
	}

	if cfg.EventLog.Backend == "" {
		cfg.EventLog.Backend = DefaultEventLogBackend
	}
	if cfg.EventLog.Path == "" {
		cfg.EventLog.Path = DefaultEventLogPath
	}
	if cfg.EventLog.Buffer == 0 {
		cfg.EventLog.Buffer = DefaultEventLogBuffer
	}
	if cfg.EventLog.WriteTimeout == 0 {
		cfg.EventLog.WriteTimeout = DefaultEventLogWriteTimeout
	}

	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
