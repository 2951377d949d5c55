package sshbin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func makeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write executable: %v", err)
	}
	return path
}

func TestDetector_OverrideTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := makeExecutable(t, dir, "myssh")

	d := &Detector{Override: path}
	got, err := d.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != path {
		t.Fatalf("Resolve() = %q, want %q", got, path)
	}
}

func TestDetector_OverrideNotExecutable(t *testing.T) {
	d := &Detector{Override: filepath.Join(t.TempDir(), "missing")}
	if _, err := d.Resolve(); !errors.Is(err, ErrSSHNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrSSHNotFound", err)
	}
}

func TestDetector_CachesResult(t *testing.T) {
	dir := t.TempDir()
	path := makeExecutable(t, dir, "myssh")

	d := &Detector{Override: path}
	first, err := d.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// Mutating Override after the first call must not change the
	// cached result — resolution happens once per process lifetime.
	d.Override = "/nonexistent"
	second, err := d.Resolve()
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if first != second {
		t.Fatalf("Resolve() not cached: first=%q second=%q", first, second)
	}
}

func TestVerifyExecutable_RejectsDirectory(t *testing.T) {
	if err := verifyExecutable(t.TempDir()); err == nil {
		t.Fatal("verifyExecutable(dir) should fail")
	}
}

func TestVerifyExecutable_RejectsNonExecutableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notexec")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := verifyExecutable(path); err == nil {
		t.Fatal("verifyExecutable(non-executable) should fail")
	}
}

func TestExpandPercentVars(t *testing.T) {
	t.Setenv("RSI_TEST_VAR", "C:\\Foo")
	got := expandPercentVars(`%RSI_TEST_VAR%\bar`)
	want := `C:\Foo\bar`
	if got != want {
		t.Fatalf("expandPercentVars() = %q, want %q", got, want)
	}
}
