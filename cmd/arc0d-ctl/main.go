// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// arc0d-ctl is a command-line tool for inspecting and controlling a
// running arc0d daemon over its Control plane.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shaneholloman/arc0d/pkg/client"
)

var (
	version    = "0.1"
	apiURL     = "http://localhost:8787"
	jsonOutput bool

	apiClient *client.Client
)

func main() {
	if env := os.Getenv("ARC0D_API"); env != "" {
		apiURL = strings.TrimSuffix(env, "/")
	}

	var filteredArgs []string
	for _, arg := range os.Args[1:] {
		if arg == "-json" {
			jsonOutput = true
		} else {
			filteredArgs = append(filteredArgs, arg)
		}
	}

	apiClient = client.New(apiURL)

	if len(filteredArgs) < 1 {
		printUsage()
		os.Exit(1)
	}

	cmd := filteredArgs[0]
	args := filteredArgs[1:]

	var err error
	switch cmd {
	case "status":
		err = cmdStatus()
	case "clients":
		err = cmdClients()
	case "sessions":
		err = cmdSessions()
	case "pairing":
		err = cmdPairing(args)
	case "tunnel":
		err = cmdTunnel(args)
	case "version", "-v", "--version":
		fmt.Printf("arc0d-ctl %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`arc0d-ctl - Control a running arc0d daemon

Usage:
  arc0d-ctl [-json] <command> [arguments]

Global Flags:
  -json          Output in JSON format

Environment:
  ARC0D_API      Base URL of arc0d's Control plane (default: http://localhost:8787)

Commands:
  status                   Show daemon status
  clients                  List connected Data-transport sockets
  sessions                 List active coding-agent sessions
  pairing start            Generate a new pairing code
  pairing status           Show the in-progress pairing exchange
  pairing cancel           Cancel the in-progress pairing exchange
  tunnel stop              Stop the active tunnel

  version                  Show version
  help                     Show this help`)
}

func printJSON(v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}

func cmdStatus() error {
	status, err := apiClient.Status(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(status)
		return nil
	}
	fmt.Printf("running:       %v\n", status.Running)
	fmt.Printf("uptime:        %s\n", status.Uptime)
	fmt.Printf("clients:       %d\n", status.ClientCount)
	fmt.Printf("sessions:      %d\n", status.SessionCount)
	return nil
}

func cmdClients() error {
	sockets, err := apiClient.Clients(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(sockets)
		return nil
	}
	fmt.Printf("%-24s %-24s %-20s %s\n", "SOCKET", "DEVICE", "CONNECTED", "LAST ACK")
	for _, s := range sockets {
		lastAck := "-"
		if s.LastAckAt != nil {
			lastAck = s.LastAckAt.Format(time.RFC3339)
		}
		device := s.DeviceID
		if device == "" {
			device = "-"
		}
		fmt.Printf("%-24s %-24s %-20s %s\n", s.SocketID, device, s.ConnectedAt.Format(time.RFC3339), lastAck)
	}
	return nil
}

func cmdSessions() error {
	sessions, err := apiClient.Sessions.List(context.Background())
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(sessions)
		return nil
	}
	fmt.Printf("%-24s %-10s %-30s %s\n", "SESSION", "PROVIDER", "CWD", "STARTED")
	for _, s := range sessions {
		fmt.Printf("%-24s %-10s %-30s %s\n", s.SessionID, s.Provider, s.Cwd, s.StartedAt.Format(time.RFC3339))
	}
	return nil
}

func cmdPairing(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: arc0d-ctl pairing <start|status|cancel>")
	}
	ctx := context.Background()
	switch args[0] {
	case "start":
		start, err := apiClient.Pairing.Start(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(start)
			return nil
		}
		fmt.Printf("code:    %s\n", start.FormattedCode)
		fmt.Printf("expires: %ds\n", start.ExpiresIn)
		return nil
	case "status":
		status, err := apiClient.Pairing.Status(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(status)
			return nil
		}
		if !status.Active {
			fmt.Println("no pairing in progress")
			return nil
		}
		fmt.Printf("code:      %s\n", status.Code)
		fmt.Printf("remaining: %ds\n", status.RemainingMs/1000)
		if status.Completed {
			fmt.Printf("paired with %s (%s)\n", status.DeviceName, status.DeviceID)
		}
		return nil
	case "cancel":
		result, err := apiClient.Pairing.Cancel(ctx)
		if err != nil {
			return err
		}
		printResult(result)
		return nil
	default:
		return fmt.Errorf("unknown pairing subcommand: %s", args[0])
	}
}

func cmdTunnel(args []string) error {
	if len(args) < 1 || args[0] != "stop" {
		return fmt.Errorf("usage: arc0d-ctl tunnel stop")
	}
	result, err := apiClient.Tunnel.Stop(context.Background())
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func printResult(r *client.Result) {
	if jsonOutput {
		printJSON(r)
		return
	}
	fmt.Println(r.Status)
}
