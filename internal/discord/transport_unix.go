// transport_unix.go implements Discord IPC socket discovery for Unix-like
// systems (Linux, macOS, FreeBSD). It probes XDG_RUNTIME_DIR, /tmp, Snap, and
// Flatpak socket paths for a given endpoint index.

//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// discordVariants are the socket name prefixes for the Stable, PTB, and
// Canary release channels. Any of them may own a given endpoint index.
var discordVariants = []string{"discord-ipc", "discordptb-ipc", "discordcanary-ipc"}

// candidatePaths returns every well-known Unix domain socket path that could
// back endpoint index i, in probe order.
func candidatePaths(i int) []string {
	var paths []string

	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		for _, v := range discordVariants {
			paths = append(paths, fmt.Sprintf("%s/%s-%d", dir, v, i))
		}
	}

	for _, v := range discordVariants {
		paths = append(paths, fmt.Sprintf("/tmp/%s-%d", v, i))
	}
	if tmp := os.Getenv("TMPDIR"); tmp != "" {
		for _, v := range discordVariants {
			paths = append(paths, fmt.Sprintf("%s/%s-%d", tmp, v, i))
		}
	}

	uid := strconv.Itoa(os.Getuid())
	snapDirs := []string{"snap.discord", "snap.discord-ptb", "snap.discord-canary"}
	for _, sd := range snapDirs {
		paths = append(paths, fmt.Sprintf("/run/user/%s/%s/discord-ipc-%d", uid, sd, i))
	}

	flatpakApps := []string{
		"com.discordapp.Discord",
		"com.discordapp.DiscordPTB",
		"com.discordapp.DiscordCanary",
	}
	for _, app := range flatpakApps {
		paths = append(paths, fmt.Sprintf("/run/user/%s/app/%s/discord-ipc-%d", uid, app, i))
	}

	paths = append(paths, wslSocketPaths(i)...)
	return paths
}

// dialEndpoint attempts to connect to endpoint index i (0..9) by trying every
// well-known path that could host it, in order, and returning the first
// successful dial.
func dialEndpoint(i int) (net.Conn, error) {
	for _, path := range candidatePaths(i) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
	}
	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a socat+npiperelay bridge may be required", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
