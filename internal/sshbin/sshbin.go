// Package sshbin locates the SSH client binary, spec §4.2.
package sshbin

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
)

// ErrSSHNotFound is returned when no candidate path resolves to an
// executable regular file.
var ErrSSHNotFound = errors.New("ssh client binary not found")

// windowsCandidates and posixCandidates are the fixed search paths from
// spec §4.2, tried in order before falling back to a PATH lookup. The
// teacher never needs to search for "ssh" at all — it calls
// exec.Command("ssh", ...) directly and lets the OS resolve it via PATH
// (server.go:765). Spec §4.2 asks for a stricter, OS-layered policy, so
// this package generalizes that single PATH-only lookup into an ordered
// chain, keeping PATH lookup as the final fallback exactly as the teacher
// relies on it.
var (
	windowsCandidates = []string{
		`%WINDIR%\System32\OpenSSH\ssh.exe`,
		`%PROGRAMFILES%\Git\usr\bin\ssh.exe`,
	}
	posixCandidates = []string{
		"/usr/bin/ssh",
		"/usr/local/bin/ssh",
		"/opt/homebrew/bin/ssh",
	}
)

// Detector resolves and caches the SSH client binary path for the
// lifetime of the process, spec §4.2: "Result is cached for the process
// lifetime."
type Detector struct {
	// Override is the app config's ssh.binary_path, if set. Takes
	// precedence over every other candidate.
	Override string

	once     sync.Once
	resolved string
	resolveErr error
}

// Resolve runs the ordered policy once and caches the result. Safe for
// concurrent use.
func (d *Detector) Resolve() (string, error) {
	d.once.Do(func() {
		d.resolved, d.resolveErr = resolve(d.Override)
	})
	return d.resolved, d.resolveErr
}

func resolve(override string) (string, error) {
	if override != "" {
		if err := verifyExecutable(override); err != nil {
			return "", fmt.Errorf("%w: configured ssh.binary_path %q: %v", ErrSSHNotFound, override, err)
		}
		return override, nil
	}

	var candidates []string
	var pathLookup string
	if runtime.GOOS == "windows" {
		candidates = expandEnv(windowsCandidates)
		pathLookup = "ssh.exe"
	} else {
		candidates = posixCandidates
		pathLookup = "ssh"
	}

	for _, c := range candidates {
		if verifyExecutable(c) == nil {
			return c, nil
		}
	}

	if p, err := exec.LookPath(pathLookup); err == nil {
		if verifyExecutable(p) == nil {
			return p, nil
		}
	}

	return "", ErrSSHNotFound
}

// expandEnv expands Windows-style %VAR% references, which os.Expand does
// not understand (it only handles $VAR/${VAR}).
func expandEnv(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = expandPercentVars(p)
	}
	return out
}

func expandPercentVars(s string) string {
	var b strings.Builder
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			b.WriteString(s)
			break
		}
		end += start + 1
		b.WriteString(s[:start])
		b.WriteString(os.Getenv(s[start+1 : end]))
		s = s[end+1:]
	}
	return b.String()
}

// verifyExecutable checks that path is an existing regular file with
// execute permission, spec §4.2.
func verifyExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
