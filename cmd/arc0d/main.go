// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// arc0d is a workstation-resident daemon that bridges interactive
// coding-agent CLIs (Claude Code, Codex, Gemini) to a paired mobile or web
// client over an end-to-end encrypted channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/shaneholloman/arc0d/internal/daemon"
)

var version = "0.1.0"

func main() {
	var (
		configPath  string
		mode        string
		host        string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config.json (default: ~/.arc0/config.json)")
	flag.StringVar(&configPath, "c", "", "Path to config.json (short)")
	flag.StringVar(&mode, "mode", "", "Runtime directory suffix, e.g. -mode dev uses ~/.arc0-dev")
	flag.StringVar(&host, "host", "", "Bind host for Control and Data listeners (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.Parse()

	if showVersion {
		fmt.Printf("arc0d %s\n", version)
		os.Exit(0)
	}

	app, err := daemon.New(daemon.Options{
		ConfigPath: configPath,
		Mode:       mode,
		Host:       host,
		Version:    version,
	})
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	ctx := context.Background()
	if err := app.Run(ctx); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}
