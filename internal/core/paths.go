// Package core holds configuration and path resolution shared across the
// daemon and its CLI client.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	// ProfilesDirName is the subdirectory of the config directory holding
	// one file per profile.
	ProfilesDirName = "profiles"

	// ConfigFileName is the application config file, without extension.
	ConfigFileName = "config"

	// ConfigFileExt is the on-disk syntax used for config and profile files.
	ConfigFileExt = "hcl"

	// KnownHostsFileName is the app-managed known_hosts file.
	KnownHostsFileName = "known_hosts"

	// SocketName is the daemon's Unix domain socket, relative to the config dir.
	SocketName = "daemon.sock"

	// PIDFileName records the running daemon's process id.
	PIDFileName = "daemon.pid"
)

// ConfigDir returns the platform-specific directory this application stores
// its config, profiles and known_hosts file under, per spec §6.1:
//
//	Linux:   ~/.config/reverse-ssh-interface/
//	macOS:   ~/Library/Application Support/com.reverse-ssh.reverse-ssh-interface/
//	Windows: %APPDATA%\reverse-ssh\reverse-ssh-interface\config\
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve config dir: %w", err)
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "reverse-ssh", "reverse-ssh-interface", "config"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "com.reverse-ssh.reverse-ssh-interface"), nil
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "reverse-ssh-interface"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve config dir: %w", err)
		}
		return filepath.Join(home, ".config", "reverse-ssh-interface"), nil
	}
}

// ProfilesDir returns <config-dir>/profiles. It does not create the
// directory; EnsureDirs does.
func ProfilesDir(configDir string) string {
	return filepath.Join(configDir, ProfilesDirName)
}

// EnsureDirs creates the config directory and its profiles subdirectory.
func EnsureDirs(configDir string) error {
	if err := os.MkdirAll(ProfilesDir(configDir), 0o755); err != nil {
		return fmt.Errorf("create config directories: %w", err)
	}
	return nil
}

// SocketPath returns the path to the daemon's Unix domain socket.
func SocketPath(configDir string) string {
	return filepath.Join(configDir, SocketName)
}

// PIDFilePath returns the path to the daemon's pid file.
func PIDFilePath(configDir string) string {
	return filepath.Join(configDir, PIDFileName)
}

// KnownHostsPath returns the path to the app-managed known_hosts file.
func KnownHostsPath(configDir string) string {
	return filepath.Join(configDir, KnownHostsFileName)
}

// ConfigFilePath returns the path to the application config file.
func ConfigFilePath(configDir string) string {
	return filepath.Join(configDir, ConfigFileName+"."+ConfigFileExt)
}
