package tokencache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tools.zach/dev/discordrpc/internal/oauth"
)

func TestLoadAbsentFileReturnsNilNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth-token.json")
	tok, err := Load(path)
	if err != nil || tok != nil {
		t.Errorf("Load(absent) = (%v,%v), want (nil,nil)", tok, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth-token.json")
	want := &oauth.Token{
		AccessToken: "abc", RefreshToken: "def", TokenType: "Bearer",
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second),
		Scopes:    []string{"identify", "rpc"},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.ExpiresAt.Equal(want.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.ExpiresAt)
	}
}

func TestLoadCorruptedFileIsBackedUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth-token.json")
	if err := os.WriteFile(path, []byte("not json {{{"), 0o600); err != nil {
		t.Fatalf("write corrupted file: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error loading a corrupted cache")
	}

	backup := path + ".corrupted"
	if _, statErr := os.Stat(backup); statErr != nil {
		t.Errorf("corrupted cache was not backed up to %q: %v", backup, statErr)
	}
}

func TestSavePermissionsAreOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauth-token.json")
	if err := Save(path, &oauth.Token{AccessToken: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("permissions = %v, want 0600", info.Mode().Perm())
	}
}
