//go:build !windows

package registrar

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// register writes a ~/.local/share/applications/discord-<appID>.desktop
// MIME-handler stub binding the x-scheme-handler/discord-<appID> MIME type
// to executable, then runs update-desktop-database best-effort so desktop
// environments pick up the new handler without a logout/login cycle.
func register(appID, steamAppID, executable string) (bool, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return false, fmt.Errorf("resolve home directory: %w", err)
	}

	appsDir := filepath.Join(home, ".local", "share", "applications")
	if err := os.MkdirAll(appsDir, 0o755); err != nil {
		return false, fmt.Errorf("create applications dir: %w", err)
	}

	scheme := "discord-" + appID
	execLine := executable + " %u"
	if steamAppID != "" {
		execLine = fmt.Sprintf("xdg-open steam://rungameid/%s", steamAppID)
	}

	contents := fmt.Sprintf(`[Desktop Entry]
Name=%s
Exec=%s
Type=Application
NoDisplay=true
MimeType=x-scheme-handler/%s;
`, scheme, execLine, scheme)

	desktopPath := filepath.Join(appsDir, scheme+".desktop")
	if err := os.WriteFile(desktopPath, []byte(contents), 0o644); err != nil {
		return false, fmt.Errorf("write desktop entry: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Best-effort: absence of update-desktop-database shouldn't fail registration.
	_ = exec.CommandContext(ctx, "update-desktop-database", appsDir).Run()

	return true, nil
}
