// transport_windows.go implements Discord IPC endpoint discovery for Windows.
// Endpoints are named pipes (\\.\pipe\discord-ipc-N), dialed with go-winio.

//go:build windows

package discord

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// dialEndpoint attempts to connect to named pipe slot i (0..9).
func dialEndpoint(i int) (net.Conn, error) {
	conn, err := winio.DialPipe(fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i), nil)
	if err != nil {
		return nil, ErrIPCNotAvailable
	}
	return conn, nil
}

// isWSL is always false on native Windows; the WSL relay case is handled on
// the Linux side (see transport_wsl.go).
func isWSL() bool { return false }

// wslSocketPaths has no meaning on native Windows.
func wslSocketPaths(int) []string { return nil }
