// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package daemon is the composition root: it wires every subsystem
// together and drives the startup/shutdown sequence (spec §4.12).
package daemon

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/shaneholloman/arc0d/internal/bus"
	"github.com/shaneholloman/arc0d/internal/clients"
	"github.com/shaneholloman/arc0d/internal/config"
	"github.com/shaneholloman/arc0d/internal/control"
	"github.com/shaneholloman/arc0d/internal/dispatch"
	"github.com/shaneholloman/arc0d/internal/eventlog"
	"github.com/shaneholloman/arc0d/internal/lifecycle"
	"github.com/shaneholloman/arc0d/internal/pairing"
	"github.com/shaneholloman/arc0d/internal/provider/claude"
	"github.com/shaneholloman/arc0d/internal/provider/codex"
	"github.com/shaneholloman/arc0d/internal/provider/gemini"
	"github.com/shaneholloman/arc0d/internal/session"
	"github.com/shaneholloman/arc0d/internal/terminal"
	"github.com/shaneholloman/arc0d/internal/transport"
	"github.com/shaneholloman/arc0d/internal/tunnel"
	"github.com/shaneholloman/arc0d/internal/watcher"
)

// Options holds the composition root's construction-time overrides.
type Options struct {
	ConfigPath string // explicit config.json path; empty means Paths.ConfigFile()
	Mode       string // selects ~/.arc0-<mode> instead of ~/.arc0
	Host       string // overrides the bind host for both listeners
	Version    string
}

// App is the daemon's top-level container, mirroring the shape of a
// single-process service composed from many small, independently testable
// packages rather than one monolith.
type App struct {
	mu sync.RWMutex

	opts    Options
	paths   config.Paths
	config  *config.Config
	version string

	lock *lifecycle.Lock

	bus         bus.Bus
	clients     *clients.Registry
	sessions    *session.Registry
	watcher     *watcher.FileWatcher
	eventLog    *eventlog.Store
	dispatcher  *dispatch.Dispatcher
	pairing     *pairing.Coordinator
	transport   *transport.Server
	control     *control.Server
	tunnel      *tunnel.Supervisor
	busSubs     []bus.SubscriptionID
	terminal    terminal.Adapter

	controlLn net.Listener
	dataLn    net.Listener
	dataSrv   *http.Server

	done     chan struct{}
	stopOnce sync.Once
}

// New loads configuration and builds an App. It does not bind any
// listeners or start any subsystem; call Initialize then Start (or Run).
func New(opts Options) (*App, error) {
	paths, err := config.NewPaths(opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("daemon: resolve paths: %w", err)
	}
	if err := paths.EnsureBase(); err != nil {
		return nil, fmt.Errorf("daemon: ensure base dir: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = paths.ConfigFile()
	}

	cfg, err := config.NewLoader().LoadWithDefaults(context.Background(), configPath)
	if err != nil {
		return nil, fmt.Errorf("daemon: load config: %w", err)
	}

	app := &App{
		opts:    opts,
		paths:   paths,
		config:  cfg,
		version: opts.Version,
		done:    make(chan struct{}),
	}
	return app, nil
}

// Initialize wires every subsystem together (spec §4.12 steps 1-2 having
// already run in New; this covers the rest up to, but not including,
// binding listeners, which Start does).
func (app *App) Initialize(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	cfg := app.config

	if _, err := lifecycle.EnsureSecrets(app.paths.CredentialsFile()); err != nil {
		return fmt.Errorf("daemon: ensure secrets: %w", err)
	}

	lock, err := lifecycle.AcquireLock(app.paths.LockFile(), app.paths.StateFile())
	if err != nil {
		return fmt.Errorf("daemon: acquire lock: %w", err)
	}
	app.lock = lock

	app.bus = bus.NewMemoryBus()

	clientsReg, err := clients.Load(app.paths.ClientsFile())
	if err != nil {
		return fmt.Errorf("daemon: load clients: %w", err)
	}
	app.clients = clientsReg

	strategies := app.buildStrategies()
	app.sessions = session.NewRegistry(app.bus, strategies)

	fw, err := watcher.NewFileWatcher(app.bus)
	if err != nil {
		return fmt.Errorf("daemon: start file watcher: %w", err)
	}
	app.watcher = fw

	app.eventLog = eventlog.NewStore(app.paths.SessionsDir())

	executor := terminal.NewRealExecutor()
	app.terminal = terminal.NewTmuxAdapter(executor)
	app.dispatcher = dispatch.New(app.terminal, app.sessions)

	ttl := time.Duration(cfg.Pairing.CodeTTLSeconds) * time.Second
	workstationName, err := os.Hostname()
	if err != nil || workstationName == "" {
		workstationName = cfg.WorkstationID
	}
	app.pairing = pairing.New(app.clients, cfg.WorkstationID, workstationName, ttl)

	app.busSubs = append(app.busSubs,
		app.bus.On(bus.KindSessionStart, app.onSessionStart),
		app.bus.On(bus.KindSessionEnd, app.onSessionEnd),
	)

	app.transport = transport.NewServer(transport.Dependencies{
		Bus:             app.bus,
		Clients:         app.clients,
		Sessions:        app.sessions,
		Watcher:         app.watcher,
		EventLog:        app.eventLog,
		Pairing:         app.pairing,
		Dispatcher:      app.dispatcher,
		Config:          cfg,
		WorkstationID:   cfg.WorkstationID,
		WorkstationName: workstationName,
	})

	app.control = control.NewServer(control.Dependencies{
		StartedAt:        time.Now(),
		Sessions:         app.sessions,
		Clients:          app.clients,
		Pairing:          app.pairing,
		ConnectedSockets: app.connectedSockets,
		StopTunnel:       app.stopTunnel,
	})

	return nil
}

// tunnelEnabled reports whether the config requests a tunnel supervisor.
func (app *App) tunnelEnabled() bool {
	t := app.config.Tunnel
	return t != nil && t.Mode != "" && t.Mode != "off"
}

// buildStrategies constructs one provider strategy per enabled provider,
// zipping configured watch paths to providers in the same fixed
// declaration order the Data transport uses to build its projects
// snapshot (Claude, Codex, Gemini), falling back to the last configured
// path when there are fewer paths than enabled providers.
func (app *App) buildStrategies() []session.Strategy {
	cfg := app.config
	type entry struct {
		on      bool
		newFunc func(root string) session.Strategy
	}
	entries := []entry{
		{cfg.EnabledProviders.Claude, func(root string) session.Strategy { return claude.New(root) }},
		{cfg.EnabledProviders.Codex, func(root string) session.Strategy { return codex.New(root) }},
		{cfg.EnabledProviders.Gemini, func(root string) session.Strategy { return gemini.New(root) }},
	}

	var strategies []session.Strategy
	next := 0
	for _, e := range entries {
		if !e.on {
			continue
		}
		root := ""
		switch {
		case next < len(cfg.WatchPaths):
			root = cfg.WatchPaths[next]
			next++
		case len(cfg.WatchPaths) > 0:
			root = cfg.WatchPaths[len(cfg.WatchPaths)-1]
		}
		strategies = append(strategies, e.newFunc(root))
	}
	return strategies
}

func buildTunnelConfig(cfg *config.TunnelConfig) tunnel.Config {
	args := []string{"frpc", "http", "--local-port", "%d"}
	if cfg.Subdomain != "" {
		args = append(args, "--sd", cfg.Subdomain)
	}
	return tunnel.Config{Command: args}
}

func (app *App) onSessionStart(_ context.Context, ev bus.Event) {
	payload, ok := ev.Payload.(bus.SessionStartPayload)
	if !ok {
		return
	}
	if err := app.watcher.WatchSession(payload.Session.SessionID, payload.Session.TranscriptPath); err != nil {
		log.Printf("[daemon] watch session %s: %v", payload.Session.SessionID, err)
	}
}

func (app *App) onSessionEnd(_ context.Context, ev bus.Event) {
	payload, ok := ev.Payload.(bus.SessionEndPayload)
	if !ok {
		return
	}
	app.watcher.UnwatchSession(payload.SessionID)
}

// connectedSockets adapts transport.SocketSnapshot to control.SocketSnapshot
// field-by-field; the two types are deliberately distinct so neither
// package imports the other.
func (app *App) connectedSockets() []control.SocketSnapshot {
	app.mu.RLock()
	t := app.transport
	app.mu.RUnlock()
	if t == nil {
		return nil
	}
	snaps := t.ConnectedSockets()
	out := make([]control.SocketSnapshot, len(snaps))
	for i, s := range snaps {
		out[i] = control.SocketSnapshot{
			SocketID:    s.SocketID,
			DeviceID:    s.DeviceID,
			ConnectedAt: s.ConnectedAt,
			LastAckAt:   s.LastAckAt,
		}
	}
	return out
}

func (app *App) stopTunnel() error {
	app.mu.RLock()
	t := app.tunnel
	app.mu.RUnlock()
	if t == nil {
		return nil
	}
	return t.Stop()
}
