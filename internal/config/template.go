// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"fmt"
	"text/template"
)

// TemplateContext supplies the variables available to watchPaths templates.
type TemplateContext struct {
	Home string
}

// TemplateExpander expands Go text/template variables in config values,
// following the teacher's TemplateExpander idiom but scoped to the single
// variable arc0d's config actually needs.
type TemplateExpander struct{}

// NewTemplateExpander creates a template expander.
func NewTemplateExpander() *TemplateExpander {
	return &TemplateExpander{}
}

// Expand resolves {{.Home}}-style references in value. Values with no
// template action are returned unchanged.
func (e *TemplateExpander) Expand(value string, ctx *TemplateContext) (string, error) {
	if !bytes.Contains([]byte(value), []byte("{{")) {
		return value, nil
	}

	tmpl, err := template.New("watchPath").Option("missingkey=error").Parse(value)
	if err != nil {
		return "", fmt.Errorf("config: parse template %q: %w", value, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("config: expand template %q: %w", value, err)
	}
	return buf.String(), nil
}

// ExpandWatchPaths expands every entry of cfg.WatchPaths in place.
func (e *TemplateExpander) ExpandWatchPaths(cfg *Config, ctx *TemplateContext) error {
	for i, p := range cfg.WatchPaths {
		expanded, err := e.Expand(p, ctx)
		if err != nil {
			return err
		}
		cfg.WatchPaths[i] = expanded
	}
	return nil
}
