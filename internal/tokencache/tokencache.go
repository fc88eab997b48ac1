// Package tokencache persists an OAuth2 [oauth.Token] to disk as JSON,
// replacing the process-global OAuth singleton the protocol's reference
// implementation uses. Callers own the [oauth.Token] value; this package only
// knows how to load, save, and watch the file that holds it.
package tokencache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"tools.zach/dev/discordrpc/internal/atomicfile"
	"tools.zach/dev/discordrpc/internal/migrate"
	"tools.zach/dev/discordrpc/internal/oauth"
)

// ///////////////////////////////////////////////
// Cache file shape
// ///////////////////////////////////////////////

// cacheFile is the on-disk envelope around an [oauth.Token].
type cacheFile struct {
	Version int         `json:"version"`
	Token   oauth.Token `json:"token"`
}

// ///////////////////////////////////////////////
// Load / Save
// ///////////////////////////////////////////////

// Load reads and parses the token cache at path. If the file doesn't exist,
// returns (nil, nil) — an absent cache is not an error, just "no cached
// token yet." A corrupted file is backed up to path+".corrupted", and Load
// then returns a nil token together with an error describing the corruption.
func Load(path string) (*oauth.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token cache: %w", err)
	}

	version := migrate.TokenCache.CurrentVersion
	var peek struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &peek); err == nil && peek.Version != 0 {
		version = peek.Version
	}

	if version != migrate.TokenCache.CurrentVersion {
		var migrateErr error
		data, _, migrateErr = migrate.TokenCache.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate token cache: %w", migrateErr)
		}
	}

	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return recoverCorrupted(path, data, err)
	}

	return &cf.Token, nil
}

// recoverCorrupted backs up a corrupted token cache file and returns a nil
// token with an error wrapping parseErr. cmd/discordrpcd logs that error and
// starts without a cached token.
func recoverCorrupted(path string, data []byte, parseErr error) (*oauth.Token, error) {
	slog.Warn("corrupted token cache, backing up", "path", path, "error", parseErr)

	corruptedPath := path + ".corrupted"
	if err := os.WriteFile(corruptedPath, data, 0o600); err != nil {
		slog.Warn("failed to write token cache backup", "path", corruptedPath, "error", err)
	}

	return nil, fmt.Errorf("corrupted token cache (backed up to %s): %w", corruptedPath, parseErr)
}

// Save writes token to path as JSON using an atomic temp-file-and-rename.
func Save(path string, token *oauth.Token) error {
	cf := cacheFile{
		Version: migrate.TokenCache.CurrentVersion,
		Token:   *token,
	}
	data, err := json.MarshalIndent(cf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal token cache: %w", err)
	}
	return atomicfile.Write(path, data, 0o600)
}
