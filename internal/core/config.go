package core

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// StrictHostKeyChecking mirrors OpenSSH's StrictHostKeyChecking values.
type StrictHostKeyChecking string

const (
	StrictHostKeyCheckingYes        StrictHostKeyChecking = "yes"
	StrictHostKeyCheckingAcceptNew  StrictHostKeyChecking = "accept_new"
	StrictHostKeyCheckingNo         StrictHostKeyChecking = "no"
)

// LogLevel is one of the values accepted by logging.level in config.hcl.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config is the application configuration, spec §6.2.
type Config struct {
	General GeneralConfig
	SSH     SSHSettings
	Logging LoggingConfig
}

type GeneralConfig struct {
	AutoStartSessions bool
	StartMinimized    bool
}

type SSHSettings struct {
	BinaryPath            string
	DefaultKeepaliveInterval int
	DefaultKeepaliveCount    int
	StrictHostKeyChecking    StrictHostKeyChecking
	UseAppKnownHosts         bool
}

type LoggingConfig struct {
	Level       LogLevel
	FileLogging bool
	MaxFileSizeMB int
	MaxFiles      int
}

// Default returns the configuration applied when no config file exists yet,
// matching the defaults a fresh `config.hcl` is written with on first run.
func Default() Config {
	return Config{
		General: GeneralConfig{
			AutoStartSessions: false,
			StartMinimized:    false,
		},
		SSH: SSHSettings{
			DefaultKeepaliveInterval: 20,
			DefaultKeepaliveCount:    3,
			StrictHostKeyChecking:    StrictHostKeyCheckingAcceptNew,
			UseAppKnownHosts:         true,
		},
		Logging: LoggingConfig{
			Level:         LogLevelInfo,
			FileLogging:   false,
			MaxFileSizeMB: 10,
			MaxFiles:      5,
		},
	}
}

// hclConfig is the on-disk HCL shape, decoded with hclsimple and then
// converted into Config with defaults applied — the same two-step
// decode-then-convert shape the teacher uses for its own HCL config.
type hclConfig struct {
	General *hclGeneral `hcl:"general,block"`
	SSH     *hclSSH     `hcl:"ssh,block"`
	Logging *hclLogging `hcl:"logging,block"`
}

type hclGeneral struct {
	AutoStartSessions *bool `hcl:"auto_start_sessions,optional"`
	StartMinimized    *bool `hcl:"start_minimized,optional"`
}

type hclSSH struct {
	BinaryPath               string `hcl:"binary_path,optional"`
	DefaultKeepaliveInterval int    `hcl:"default_keepalive_interval,optional"`
	DefaultKeepaliveCount    int    `hcl:"default_keepalive_count,optional"`
	StrictHostKeyChecking    string `hcl:"strict_host_key_checking,optional"`
	UseAppKnownHosts         *bool  `hcl:"use_app_known_hosts,optional"`
}

type hclLogging struct {
	Level         string `hcl:"level,optional"`
	FileLogging   *bool  `hcl:"file_logging,optional"`
	MaxFileSizeMB int    `hcl:"max_file_size_mb,optional"`
	MaxFiles      int    `hcl:"max_files,optional"`
}

// Load reads and validates the application config file at path. If the file
// does not exist, it is created with Default() values and Default() is
// returned, mirroring the teacher's create-on-first-run behavior in
// InitializeConfig.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return Config{}, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	var raw hclConfig
	if err := hclsimple.DecodeFile(path, nil, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Default()
	if raw.General != nil {
		if raw.General.AutoStartSessions != nil {
			cfg.General.AutoStartSessions = *raw.General.AutoStartSessions
		}
		if raw.General.StartMinimized != nil {
			cfg.General.StartMinimized = *raw.General.StartMinimized
		}
	}
	if raw.SSH != nil {
		if raw.SSH.BinaryPath != "" {
			cfg.SSH.BinaryPath = raw.SSH.BinaryPath
		}
		if raw.SSH.DefaultKeepaliveInterval != 0 {
			cfg.SSH.DefaultKeepaliveInterval = raw.SSH.DefaultKeepaliveInterval
		}
		if raw.SSH.DefaultKeepaliveCount != 0 {
			cfg.SSH.DefaultKeepaliveCount = raw.SSH.DefaultKeepaliveCount
		}
		if raw.SSH.StrictHostKeyChecking != "" {
			cfg.SSH.StrictHostKeyChecking = StrictHostKeyChecking(raw.SSH.StrictHostKeyChecking)
		}
		if raw.SSH.UseAppKnownHosts != nil {
			cfg.SSH.UseAppKnownHosts = *raw.SSH.UseAppKnownHosts
		}
	}
	if raw.Logging != nil {
		if raw.Logging.Level != "" {
			cfg.Logging.Level = LogLevel(raw.Logging.Level)
		}
		if raw.Logging.FileLogging != nil {
			cfg.Logging.FileLogging = *raw.Logging.FileLogging
		}
		if raw.Logging.MaxFileSizeMB != 0 {
			cfg.Logging.MaxFileSizeMB = raw.Logging.MaxFileSizeMB
		}
		if raw.Logging.MaxFiles != 0 {
			cfg.Logging.MaxFiles = raw.Logging.MaxFiles
		}
	}

	return cfg, Validate(cfg)
}

// Validate enforces the constraints implied by spec §6.2.
func Validate(cfg Config) error {
	switch cfg.SSH.StrictHostKeyChecking {
	case StrictHostKeyCheckingYes, StrictHostKeyCheckingAcceptNew, StrictHostKeyCheckingNo:
	default:
		return fmt.Errorf("ssh.strict_host_key_checking: invalid value %q", cfg.SSH.StrictHostKeyChecking)
	}
	switch cfg.Logging.Level {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("logging.level: invalid value %q", cfg.Logging.Level)
	}
	if cfg.Logging.MaxFileSizeMB <= 0 {
		return fmt.Errorf("logging.max_file_size_mb: must be > 0")
	}
	if cfg.Logging.MaxFiles <= 0 {
		return fmt.Errorf("logging.max_files: must be > 0")
	}
	return nil
}

// Save writes cfg to path in HCL form, atomically (temp file + rename),
// the same pattern the Profile Store uses for profile writes.
func Save(path string, cfg Config) error {
	body := renderHCL(cfg)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o600); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp config: %w", err)
	}
	return nil
}

func renderHCL(cfg Config) string {
	return fmt.Sprintf(`general {
  auto_start_sessions = %t
  start_minimized     = %t
}

ssh {
  binary_path                = %q
  default_keepalive_interval = %d
  default_keepalive_count    = %d
  strict_host_key_checking   = %q
  use_app_known_hosts        = %t
}

logging {
  level            = %q
  file_logging     = %t
  max_file_size_mb = %d
  max_files        = %d
}
`,
		cfg.General.AutoStartSessions, cfg.General.StartMinimized,
		cfg.SSH.BinaryPath, cfg.SSH.DefaultKeepaliveInterval, cfg.SSH.DefaultKeepaliveCount,
		cfg.SSH.StrictHostKeyChecking, cfg.SSH.UseAppKnownHosts,
		cfg.Logging.Level, cfg.Logging.FileLogging, cfg.Logging.MaxFileSizeMB, cfg.Logging.MaxFiles,
	)
}
