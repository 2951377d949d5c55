// Package profile defines the persisted connection-profile schema (spec §3)
// and its on-disk store (spec §4.1).
package profile

import (
	"fmt"
	"strings"
)

// AuthMethod is the tagged variant spec §3 describes for Profile.auth.
type AuthMethod string

const (
	AuthAgent    AuthMethod = "agent"
	AuthKeyFile  AuthMethod = "key_file"
	AuthPassword AuthMethod = "password"
)

// Auth carries the auth method and, for AuthKeyFile, the key path.
type Auth struct {
	Method AuthMethod
	Path   string // only meaningful when Method == AuthKeyFile
}

// Tunnel is one remote-to-local port forward, spec §3 "Tunnel".
type Tunnel struct {
	RemoteBind string
	RemotePort int
	LocalHost  string
	LocalPort  int
}

// Profile is a named, persisted connection profile, spec §3 "Profile".
type Profile struct {
	Name                 string
	Host                 string
	Port                 int
	User                 string
	Auth                 Auth
	Tunnels              []Tunnel
	KeepaliveIntervalSecs int
	KeepaliveCount        int
	AutoReconnect         bool
	MaxReconnectAttempts  int
	ExtraOptions          map[string]string
}

// Defaults applied to a Profile before validation when the corresponding
// field is left at its zero value, spec §3.
func Defaults() Profile {
	return Profile{
		Port:                  22,
		KeepaliveIntervalSecs: 20,
		KeepaliveCount:        3,
		AutoReconnect:         true,
		ExtraOptions:          map[string]string{},
	}
}

// WithDefaults returns a copy of p with zero-valued optional fields replaced
// by their spec §3 defaults. It does not touch fields the caller set.
func (p Profile) WithDefaults() Profile {
	d := Defaults()
	if p.Port == 0 {
		p.Port = d.Port
	}
	if p.KeepaliveIntervalSecs == 0 {
		p.KeepaliveIntervalSecs = d.KeepaliveIntervalSecs
	}
	if p.KeepaliveCount == 0 {
		p.KeepaliveCount = d.KeepaliveCount
	}
	if p.ExtraOptions == nil {
		p.ExtraOptions = map[string]string{}
	}
	return p
}

// hasControlChars reports whether s contains a newline, NUL, or other
// control character, per the no-newline/NUL/control-character rule that
// applies throughout spec §3 and §4.3.
func hasControlChars(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == 0 {
			return true
		}
		if r < 0x20 || r == 0x7f {
			return true
		}
	}
	return false
}

// Validate enforces every invariant spec §3 lists for Profile and Tunnel.
// It does not apply defaults — call WithDefaults first if that's wanted.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	if hasControlChars(p.Name) {
		return fmt.Errorf("%w: name contains a control character", ErrInvalid)
	}
	if p.Host == "" {
		return fmt.Errorf("%w: host must not be empty", ErrInvalid)
	}
	if hasControlChars(p.Host) {
		return fmt.Errorf("%w: host contains a control character", ErrInvalid)
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range [1, 65535]", ErrInvalid, p.Port)
	}
	if p.User == "" {
		return fmt.Errorf("%w: user must not be empty", ErrInvalid)
	}
	if hasControlChars(p.User) {
		return fmt.Errorf("%w: user contains a control character", ErrInvalid)
	}

	switch p.Auth.Method {
	case AuthAgent, AuthPassword:
		// no extra fields required
	case AuthKeyFile:
		if p.Auth.Path == "" {
			return fmt.Errorf("%w: auth.key_file requires a non-empty path", ErrInvalid)
		}
		if hasControlChars(p.Auth.Path) {
			return fmt.Errorf("%w: auth path contains a control character", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown auth method %q", ErrInvalid, p.Auth.Method)
	}

	if len(p.Tunnels) == 0 {
		return fmt.Errorf("%w: at least one tunnel is required", ErrInvalid)
	}
	for i, tun := range p.Tunnels {
		if err := tun.Validate(); err != nil {
			return fmt.Errorf("tunnel[%d]: %w", i, err)
		}
	}

	if p.KeepaliveIntervalSecs <= 0 {
		return fmt.Errorf("%w: keepalive_interval_secs must be positive", ErrInvalid)
	}
	if p.KeepaliveCount <= 0 {
		return fmt.Errorf("%w: keepalive_count must be positive", ErrInvalid)
	}
	if p.MaxReconnectAttempts < 0 {
		return fmt.Errorf("%w: max_reconnect_attempts must not be negative", ErrInvalid)
	}

	for k, v := range p.ExtraOptions {
		if hasControlChars(k) || hasControlChars(v) {
			return fmt.Errorf("%w: extra_options entry %q contains a control character", ErrInvalid, k)
		}
	}

	return nil
}

// Validate enforces the Tunnel invariants in spec §3.
func (t Tunnel) Validate() error {
	if strings.TrimSpace(t.RemoteBind) == "" {
		return fmt.Errorf("%w: remote_bind must not be empty", ErrInvalid)
	}
	if hasControlChars(t.RemoteBind) {
		return fmt.Errorf("%w: remote_bind contains a control character", ErrInvalid)
	}
	if t.RemotePort < 1 || t.RemotePort > 65535 {
		return fmt.Errorf("%w: remote_port %d out of range [1, 65535]", ErrInvalid, t.RemotePort)
	}
	if strings.TrimSpace(t.LocalHost) == "" {
		return fmt.Errorf("%w: local_host must not be empty", ErrInvalid)
	}
	if hasControlChars(t.LocalHost) {
		return fmt.Errorf("%w: local_host contains a control character", ErrInvalid)
	}
	if t.LocalPort < 1 || t.LocalPort > 65535 {
		return fmt.Errorf("%w: local_port %d out of range [1, 65535]", ErrInvalid, t.LocalPort)
	}
	return nil
}

// Equal reports whether p and other are equal under schema equality (spec §8
// round-trip property). Map/slice order does not matter for ExtraOptions;
// Tunnels order does matter, since it is meaningful (§3: "ordered sequence").
func (p Profile) Equal(other Profile) bool {
	if p.Name != other.Name || p.Host != other.Host || p.Port != other.Port ||
		p.User != other.User || p.Auth != other.Auth ||
		p.KeepaliveIntervalSecs != other.KeepaliveIntervalSecs ||
		p.KeepaliveCount != other.KeepaliveCount ||
		p.AutoReconnect != other.AutoReconnect ||
		p.MaxReconnectAttempts != other.MaxReconnectAttempts {
		return false
	}
	if len(p.Tunnels) != len(other.Tunnels) {
		return false
	}
	for i := range p.Tunnels {
		if p.Tunnels[i] != other.Tunnels[i] {
			return false
		}
	}
	if len(p.ExtraOptions) != len(other.ExtraOptions) {
		return false
	}
	for k, v := range p.ExtraOptions {
		if other.ExtraOptions[k] != v {
			return false
		}
	}
	return true
}
