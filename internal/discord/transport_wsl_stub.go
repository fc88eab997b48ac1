// transport_wsl_stub.go is a no-op stub for Unix platforms where WSL
// detection is irrelevant (macOS, BSD).

//go:build !linux && !windows

package discord

func isWSL() bool                 { return false }
func wslSocketPaths(int) []string { return nil }
