// Package session defines the in-memory Session type supervised by one
// task each, spec §3 "Session".
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/profile"
)

// Status is one of the session lifecycle states, spec §3.
type Status string

const (
	StatusStarting     Status = "starting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
	StatusFailed       Status = "failed"
	StatusStopped      Status = "stopped"
)

// ID is a 128-bit opaque session identifier.
type ID string

// NewID generates a fresh, unique session id.
func NewID() (ID, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return ID(hex.EncodeToString(b)), nil
}

// Session is one supervised tunnel, spec §3. A Session held in the
// supervisor's registry is mutated only by its own supervisor task
// (internal/supervisor), always under the registry mutex.
type Session struct {
	ID              ID
	ProfileSnapshot profile.Profile
	Status          Status
	PID             int // 0 when no live child
	StartedAt       time.Time
	ReconnectCount  int
	LastError       string
}

// Snapshot returns a copy of s suitable for handing to a caller outside
// the registry mutex — spec §4.4 list_sessions "returns a copy of every
// session's observable fields".
func (s *Session) Snapshot() Session {
	return *s
}
