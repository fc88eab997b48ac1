//go:build windows

package registrar

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// register writes HKEY_CURRENT_USER\Software\Classes\discord-<appID> and its
// shell\open\command subkey so Windows associates the URI scheme with
// executable. steamAppID, when set, registers a steam://rungameid/<id>
// command instead so Steam handles the launch.
func register(appID, steamAppID, executable string) (bool, error) {
	scheme := "discord-" + appID

	key, _, err := registry.CreateKey(registry.CURRENT_USER, `Software\Classes\`+scheme, registry.ALL_ACCESS)
	if err != nil {
		return false, fmt.Errorf("create registry key: %w", err)
	}
	defer key.Close()

	if err := key.SetStringValue("", "URL:Run game "+appID); err != nil {
		return false, fmt.Errorf("set scheme description: %w", err)
	}
	if err := key.SetStringValue("URL Protocol", ""); err != nil {
		return false, fmt.Errorf("set URL Protocol flag: %w", err)
	}

	command := fmt.Sprintf(`"%s" "%%1"`, executable)
	if steamAppID != "" {
		command = fmt.Sprintf(`"%s" "steam://rungameid/%s"`, executable, steamAppID)
	}

	cmdKey, _, err := registry.CreateKey(registry.CURRENT_USER, `Software\Classes\`+scheme+`\shell\open\command`, registry.ALL_ACCESS)
	if err != nil {
		return false, fmt.Errorf("create command key: %w", err)
	}
	defer cmdKey.Close()

	if err := cmdKey.SetStringValue("", command); err != nil {
		return false, fmt.Errorf("set command value: %w", err)
	}

	return true, nil
}
