// Package sshexec builds ssh client invocations: the argument vector
// (spec §4.3), known-hosts resolution (spec §4.7), and the password-auth
// askpass helper (spec §4.4/§9).
package sshexec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
)

// ErrInvalidArgument is returned when a profile field would inject a
// forbidden character into the argument vector.
var ErrInvalidArgument = errors.New("invalid ssh argument")

// BuildOptions carries everything beyond the profile that the argument
// vector depends on.
type BuildOptions struct {
	KnownHostsPath string // empty means UserKnownHostsFile is omitted
}

// BuildArgs deterministically builds the ssh client argument vector for
// p, spec §4.3. Equal (p, opts, strictHostKeyChecking) always yields an
// equal vector — the argument builder purity property in spec §8.
func BuildArgs(p profile.Profile, strictHostKeyChecking core.StrictHostKeyChecking, opts BuildOptions) ([]string, error) {
	if err := validateField(p.Host); err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	if err := validateField(p.User); err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}

	args := []string{"-N", "-T", "-p", fmt.Sprintf("%d", p.Port)}

	for i, t := range p.Tunnels {
		if err := validateField(t.RemoteBind); err != nil {
			return nil, fmt.Errorf("tunnel[%d].remote_bind: %w", i, err)
		}
		if err := validateField(t.LocalHost); err != nil {
			return nil, fmt.Errorf("tunnel[%d].local_host: %w", i, err)
		}
		args = append(args, "-R", fmt.Sprintf("%s:%d:%s:%d", t.RemoteBind, t.RemotePort, t.LocalHost, t.LocalPort))
	}

	args = append(args,
		"-o", fmt.Sprintf("ServerAliveInterval=%d", p.KeepaliveIntervalSecs),
		"-o", fmt.Sprintf("ServerAliveCountMax=%d", p.KeepaliveCount),
		"-o", fmt.Sprintf("StrictHostKeyChecking=%s", strictHostKeyCheckingArg(strictHostKeyChecking)),
	)

	if opts.KnownHostsPath != "" {
		if err := validateField(opts.KnownHostsPath); err != nil {
			return nil, fmt.Errorf("known_hosts path: %w", err)
		}
		args = append(args, "-o", fmt.Sprintf("UserKnownHostsFile=%s", opts.KnownHostsPath))
	}

	switch p.Auth.Method {
	case profile.AuthKeyFile:
		if err := validateField(p.Auth.Path); err != nil {
			return nil, fmt.Errorf("auth.path: %w", err)
		}
		args = append(args, "-o", "IdentitiesOnly=yes", "-i", p.Auth.Path)
	case profile.AuthAgent, profile.AuthPassword:
		// no extra flags; password auth is driven by the askpass
		// helper the supervisor wraps the invocation with, never on
		// the command line.
	}

	keys := make([]string, 0, len(p.ExtraOptions))
	for k := range p.ExtraOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := p.ExtraOptions[k]
		if err := validateField(k); err != nil {
			return nil, fmt.Errorf("extra_options key %q: %w", k, err)
		}
		if err := validateField(v); err != nil {
			return nil, fmt.Errorf("extra_options value for %q: %w", k, err)
		}
		args = append(args, "-o", fmt.Sprintf("%s=%s", k, v))
	}

	args = append(args, fmt.Sprintf("%s@%s", p.User, p.Host))

	return args, nil
}

func strictHostKeyCheckingArg(v core.StrictHostKeyChecking) string {
	if v == core.StrictHostKeyCheckingAcceptNew {
		return "accept-new"
	}
	return string(v)
}

// validateField enforces the no-newline/NUL/control-character rule spec
// §4.3 requires of every injected string.
func validateField(s string) error {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == 0 || r < 0x20 || r == 0x7f {
			return fmt.Errorf("%w: contains a control character", ErrInvalidArgument)
		}
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidArgument)
	}
	return nil
}
