// Package config defines the YAML configuration for embedding tripwire:
// policy sources, event log backend and retention, and telemetry. Loading
// applies defaults and validates before returning.
package config
