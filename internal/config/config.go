// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config loads and defaults arc0d's persistent configuration
// (spec §6 config.json, SPEC_FULL §4.15).
package config

// Config is the daemon's persistent configuration, a superset of the
// external config.json shape.
type Config struct {
	Version          int              `json:"version"`
	WorkstationID    string           `json:"workstationId"`
	EnabledProviders EnabledProviders `json:"enabledProviders"`
	WatchPaths       []string         `json:"watchPaths"`
	Tunnel           *TunnelConfig    `json:"tunnel,omitempty"`
	PortPreferences  *PortPrefs       `json:"portPreferences,omitempty"`
	Pairing          PairingConfig    `json:"pairing,omitempty"`
	Logging          LoggingConfig    `json:"logging,omitempty"`
}

// EnabledProviders toggles which coding-agent CLIs the daemon will open
// sessions for.
type EnabledProviders struct {
	Claude bool `json:"claude"`
	Codex  bool `json:"codex"`
	Gemini bool `json:"gemini"`
}

// TunnelConfig selects the optional tunnel supervisor's mode.
type TunnelConfig struct {
	Mode      string `json:"mode"`
	Subdomain string `json:"subdomain,omitempty"`
}

// PortPrefs mirrors lifecycle.PortPreferences for round-tripping through
// config.json; the lifecycle manager is the source of truth once the
// daemon has bound its listeners at least once.
type PortPrefs struct {
	ControlPort int `json:"controlPort,omitempty"`
	DataPort    int `json:"dataPort,omitempty"`
}

// PairingConfig overrides the Pairing coordinator's defaults.
type PairingConfig struct {
	CodeTTLSeconds int `json:"codeTTLSeconds,omitempty"`
}

// LoggingConfig holds ambient logging knobs, teacher-style.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
}

const (
	defaultVersion        = 1
	defaultCodeTTLSeconds = 120
	defaultLoggingLevel   = "info"
	defaultLoggingFormat  = "text"
)

// applyDefaults sets default values for missing config fields, following
// the teacher's applyDefaults convention of only filling zero values.
func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = defaultVersion
	}
	if cfg.Pairing.CodeTTLSeconds == 0 {
		cfg.Pairing.CodeTTLSeconds = defaultCodeTTLSeconds
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLoggingFormat
	}
}
