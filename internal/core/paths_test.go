package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigDir_Linux(t *testing.T) {
	if testing.Short() {
		t.Skip("platform-specific")
	}
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir available")
	}
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir: %v", err)
	}
	if filepath.Base(dir) != "reverse-ssh-interface" {
		t.Errorf("ConfigDir() = %q, want a path ending in reverse-ssh-interface", dir)
	}
	_ = home
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	configDir := filepath.Join(dir, "cfg")
	if err := EnsureDirs(configDir); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if info, err := os.Stat(ProfilesDir(configDir)); err != nil || !info.IsDir() {
		t.Fatalf("profiles dir not created: %v", err)
	}
}

func TestSocketAndPIDPaths(t *testing.T) {
	dir := "/tmp/example"
	if got, want := SocketPath(dir), filepath.Join(dir, "daemon.sock"); got != want {
		t.Errorf("SocketPath = %q, want %q", got, want)
	}
	if got, want := PIDFilePath(dir), filepath.Join(dir, "daemon.pid"); got != want {
		t.Errorf("PIDFilePath = %q, want %q", got, want)
	}
	if got, want := KnownHostsPath(dir), filepath.Join(dir, "known_hosts"); got != want {
		t.Errorf("KnownHostsPath = %q, want %q", got, want)
	}
}
