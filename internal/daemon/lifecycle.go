// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/shaneholloman/arc0d/internal/lifecycle"
	"github.com/shaneholloman/arc0d/internal/tunnel"
)

// Start binds the Control and Data listeners, preferring the last
// persisted ports and falling back to OS-assigned ones on conflict,
// writes the state file, persists the new port preferences, and starts
// every background subsystem (spec §4.12 steps 3-7).
func (app *App) Start(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	cfg := app.config
	host := app.opts.Host
	if host == "" {
		host = "127.0.0.1"
	}

	portPrefsFile := filepath.Join(app.paths.Base, "ports.json")
	prefs, err := lifecycle.LoadPortPreferences(portPrefsFile)
	if err != nil {
		log.Printf("[daemon] load port preferences: %v", err)
	}
	if cfg.PortPreferences != nil {
		if cfg.PortPreferences.ControlPort > 0 {
			prefs.ControlPort = cfg.PortPreferences.ControlPort
		}
		if cfg.PortPreferences.DataPort > 0 {
			prefs.DataPort = cfg.PortPreferences.DataPort
		}
	}

	controlLn, err := lifecycle.BindPreferred(host, prefs.ControlPort)
	if err != nil {
		return fmt.Errorf("daemon: bind control listener: %w", err)
	}
	app.controlLn = controlLn

	dataLn, err := lifecycle.BindPreferred(host, prefs.DataPort)
	if err != nil {
		return fmt.Errorf("daemon: bind data listener: %w", err)
	}
	app.dataLn = dataLn

	controlPort := lifecycle.Port(controlLn)
	dataPort := lifecycle.Port(dataLn)

	if err := lifecycle.SavePortPreferences(portPrefsFile, lifecycle.PortPreferences{
		ControlPort: controlPort,
		DataPort:    dataPort,
	}); err != nil {
		log.Printf("[daemon] save port preferences: %v", err)
	}

	state := lifecycle.NewState(controlPort, dataPort, time.Now())
	if err := lifecycle.WriteStateFile(app.paths.StateFile(), state); err != nil {
		return fmt.Errorf("daemon: write state file: %w", err)
	}

	if err := app.sessions.Start(ctx); err != nil {
		return fmt.Errorf("daemon: start session registry: %w", err)
	}

	go func() {
		log.Printf("[daemon] control plane listening on %s", controlLn.Addr())
		if err := app.control.Serve(controlLn); err != nil && err != http.ErrServerClosed {
			log.Printf("[daemon] control server error: %v", err)
		}
	}()

	app.dataSrv = &http.Server{Handler: app.transport}
	go func() {
		log.Printf("[daemon] data transport listening on %s", dataLn.Addr())
		if err := app.dataSrv.Serve(dataLn); err != nil && err != http.ErrServerClosed {
			log.Printf("[daemon] data transport error: %v", err)
		}
	}()

	if app.tunnelEnabled() {
		app.tunnel = tunnel.New(buildTunnelConfig(app.config.Tunnel), dataPort)
		if err := app.tunnel.Start(ctx); err != nil {
			log.Printf("[daemon] start tunnel: %v", err)
		}
	}

	return nil
}

// Run initializes, starts, and blocks until a shutdown signal, a
// cancelled context, or an explicit Stop() call, then shuts down
// gracefully.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Printf("[daemon] received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("[daemon] context cancelled, shutting down...")
	case <-app.done:
		log.Printf("[daemon] shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops every subsystem in the reverse order Start brought them
// up, then releases the single-instance lock (spec §4.12 shutdown
// sequence).
func (app *App) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	log.Println("[daemon] shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if app.tunnel != nil {
		if err := app.tunnel.Stop(); err != nil {
			log.Printf("[daemon] stop tunnel: %v", err)
		}
	}

	if app.sessions != nil {
		if err := app.sessions.Close(); err != nil {
			log.Printf("[daemon] stop session registry: %v", err)
		}
	}

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			log.Printf("[daemon] stop file watcher: %v", err)
		}
	}

	if app.transport != nil {
		if err := app.transport.Shutdown(shutdownCtx); err != nil {
			log.Printf("[daemon] stop data transport: %v", err)
		}
	}
	if app.dataSrv != nil {
		if err := app.dataSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[daemon] close data listener: %v", err)
		}
	}

	if app.control != nil {
		if err := app.control.Shutdown(shutdownCtx); err != nil {
			log.Printf("[daemon] stop control plane: %v", err)
		}
	}

	if app.eventLog != nil {
		if err := app.eventLog.Close(); err != nil {
			log.Printf("[daemon] close event log: %v", err)
		}
	}

	if app.bus != nil {
		for _, id := range app.busSubs {
			app.bus.Off(id)
		}
		if err := app.bus.Close(); err != nil {
			log.Printf("[daemon] close event bus: %v", err)
		}
	}

	if err := lifecycle.RemoveStateFile(app.paths.StateFile()); err != nil {
		log.Printf("[daemon] remove state file: %v", err)
	}

	if app.lock != nil {
		if err := app.lock.Release(); err != nil {
			log.Printf("[daemon] release lock: %v", err)
		}
	}

	log.Println("[daemon] shutdown complete")
	return nil
}

// Stop signals a blocked Run to shut down. Safe to call multiple times.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
