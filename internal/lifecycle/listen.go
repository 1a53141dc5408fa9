// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"errors"
	"fmt"
	"net"
	"syscall"
)

// BindPreferred listens on host:preferredPort. If that port is already in
// use, it falls back to an OS-assigned port on the same host (spec §4.12
// step 5: "prefer ports from the persisted preferences file, falling back
// to an OS-assigned port on EADDRINUSE"). preferredPort <= 0 always goes
// straight to OS assignment.
func BindPreferred(host string, preferredPort int) (net.Listener, error) {
	if preferredPort > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, preferredPort))
		if err == nil {
			return ln, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("lifecycle: bind %s:%d: %w", host, preferredPort, err)
		}
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:0", host))
	if err != nil {
		return nil, fmt.Errorf("lifecycle: bind %s:0: %w", host, err)
	}
	return ln, nil
}

// Port extracts the bound TCP port from a listener.
func Port(ln net.Listener) int {
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}
