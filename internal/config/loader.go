// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hjson/hjson-go/v4"
)

// Loader reads and defaults config.json, tolerating HJSON.
type Loader struct{}

// NewLoader creates a config Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the configuration at path. HJSON is a superset of
// JSON, so the daemon's own canonically-written config.json round-trips
// unchanged through the same parser.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := hjson.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse hjson: %w", err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config: convert to json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.WorkstationID == "" {
		return nil, fmt.Errorf("config: workstationId is required")
	}

	return &cfg, nil
}

// LoadWithDefaults loads config and fills in zero-valued fields.
func (l *Loader) LoadWithDefaults(ctx context.Context, path string) (*Config, error) {
	cfg, err := l.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// FindConfig looks for config.hjson then config.json under dir.
func (l *Loader) FindConfig(dir string) (string, error) {
	candidates := []string{"config.hjson", "config.json"}

	for _, name := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			abs, err := filepath.Abs(path)
			if err != nil {
				return path, nil
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("config: no config file found in %s (looked for config.hjson, config.json)", dir)
}
