// transport_wsl.go adds WSL-specific Discord IPC socket discovery.
//
// When running inside WSL, Discord runs on the Windows host side. Its IPC
// endpoint is a Windows named pipe, not directly reachable from WSL2 as a
// Unix socket. WSL2 users typically bridge it with a relay:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// This file adds the Unix socket paths such a relay would create, so
// dialEndpoint finds them automatically when present.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// isWSL reports whether the current process is running inside WSL, detected
// by sniffing /proc/version for the Microsoft marker both WSL1 and WSL2
// kernels carry.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}

// wslSocketPaths returns additional socket paths to try for endpoint index i
// when running under WSL, covering the locations a socat/npiperelay bridge
// would typically populate.
func wslSocketPaths(i int) []string {
	if !isWSL() {
		return nil
	}

	paths := []string{fmt.Sprintf("/tmp/discord-ipc-%d", i)}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
	}
	return paths
}
