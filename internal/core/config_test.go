package core

import (
	"path/filepath"
	"testing"
)

func TestLoad_CreatesDefaultWhenMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hcl")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SSH.DefaultKeepaliveInterval != 20 {
		t.Errorf("DefaultKeepaliveInterval = %d, want 20", cfg.SSH.DefaultKeepaliveInterval)
	}
	if cfg.SSH.StrictHostKeyChecking != StrictHostKeyCheckingAcceptNew {
		t.Errorf("StrictHostKeyChecking = %q, want accept_new", cfg.SSH.StrictHostKeyChecking)
	}

	// Second load reads back the file we just wrote.
	cfg2, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if cfg2 != cfg {
		t.Errorf("reloaded config = %+v, want %+v", cfg2, cfg)
	}
}

func TestLoad_RoundTripsOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.hcl")

	cfg := Default()
	cfg.SSH.BinaryPath = "/usr/local/bin/ssh"
	cfg.SSH.StrictHostKeyChecking = StrictHostKeyCheckingYes
	cfg.Logging.Level = LogLevelDebug
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.SSH.BinaryPath != "/usr/local/bin/ssh" {
		t.Errorf("BinaryPath = %q", got.SSH.BinaryPath)
	}
	if got.SSH.StrictHostKeyChecking != StrictHostKeyCheckingYes {
		t.Errorf("StrictHostKeyChecking = %q", got.SSH.StrictHostKeyChecking)
	}
	if got.Logging.Level != LogLevelDebug {
		t.Errorf("Logging.Level = %q", got.Logging.Level)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.SSH.StrictHostKeyChecking = "maybe"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid strict_host_key_checking")
	}

	cfg = Default()
	cfg.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid logging level")
	}

	cfg = Default()
	cfg.Logging.MaxFiles = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for max_files <= 0")
	}
}
