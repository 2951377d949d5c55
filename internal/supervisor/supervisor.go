// Package supervisor implements the Session Manager (C8): the live
// session registry, spawn/monitor/reconnect/stop, and the event bus
// hand-off, spec §4.4.
package supervisor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/eventbus"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
	"go.rsi.dev/reverse-ssh-interface/internal/session"
	"go.rsi.dev/reverse-ssh-interface/internal/sshbin"
	"go.rsi.dev/reverse-ssh-interface/internal/sshexec"
	"go.rsi.dev/reverse-ssh-interface/internal/wakeguard"
)

// entry is the registry's bookkeeping around one Session: its cancel
// signal and a done channel the task closes on exit. Kept out of the
// session package so session.Session stays a plain, freely copyable
// value for list_sessions snapshots.
type entry struct {
	sess   *session.Session
	cancel chan struct{}
	once   sync.Once
	done   chan struct{}
}

func (e *entry) signalCancel() {
	e.once.Do(func() { close(e.cancel) })
}

// Supervisor owns the session registry, the event bus, and handles to
// the Profile Store and SSH Detector it drives, spec §4.4.
type Supervisor struct {
	mu       sync.Mutex
	sessions map[session.ID]*entry

	store         *profile.Store
	detector      *sshbin.Detector
	bus           *eventbus.Bus
	configSnapshot func() core.Config
	knownHostsPath string
	logger        *slog.Logger
	wake          *wakeguard.Guard

	askpassMu     sync.Mutex
	askpassTokens map[string]string // token -> profile name, for the askpass RPC
}

// New creates a Supervisor. configSnapshot is called by every
// StartSession so config hot-reload (internal/core + fsnotify) applies
// to sessions started after the reload without restarting the daemon;
// reconnects of a running session reuse the arguments built at its
// start. wake may be nil, in which
// case reconnects are never held back for sleep state.
func New(store *profile.Store, detector *sshbin.Detector, bus *eventbus.Bus, configSnapshot func() core.Config, knownHostsPath string, logger *slog.Logger, wake *wakeguard.Guard) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		sessions:       make(map[session.ID]*entry),
		store:          store,
		detector:       detector,
		bus:            bus,
		configSnapshot: configSnapshot,
		knownHostsPath: knownHostsPath,
		logger:         logger,
		wake:           wake,
		askpassTokens:  make(map[string]string),
	}
}

// StartSession implements start_session, spec §4.4.
func (s *Supervisor) StartSession(profileName string) (session.ID, error) {
	p, err := s.store.Get(profileName)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("load profile %s: %w", profileName, err)
	}

	sshPath, err := s.detector.Resolve()
	if err != nil {
		return "", err // sshbin.ErrSSHNotFound
	}

	cfg := s.configSnapshot()
	knownHosts, err := sshexec.ResolveKnownHosts(s.knownHostsPath, cfg.SSH.UseAppKnownHosts)
	if err != nil {
		return "", fmt.Errorf("resolve known_hosts: %w", err)
	}

	args, err := sshexec.BuildArgs(p, cfg.SSH.StrictHostKeyChecking, sshexec.BuildOptions{KnownHostsPath: knownHosts})
	if err != nil {
		return "", err // sshexec.ErrInvalidArgument
	}

	id, err := session.NewID()
	if err != nil {
		return "", err
	}

	e := &entry{
		sess: &session.Session{
			ID:              id,
			ProfileSnapshot: p,
			Status:          session.StatusStarting,
			StartedAt:       time.Now(),
		},
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[id] = e
	s.mu.Unlock()

	s.bus.Publish(eventbus.SessionStarted(id, p.Name))

	go s.runTask(e, sshPath, args)

	return id, nil
}

// StopSession implements stop_session, spec §4.4. Idempotent: returns
// ErrSessionNotFound if the session has already been reaped.
func (s *Supervisor) StopSession(id session.ID) error {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	e.signalCancel()
	return nil
}

// StopAll implements stop_all, spec §4.4: signals every live session and
// returns the count signaled without waiting for children to die, then
// emits AllSessionsStopped once every per-session SessionStopped has
// been observed.
func (s *Supervisor) StopAll() int {
	s.mu.Lock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.signalCancel()
	}

	count := len(entries)
	if count > 0 {
		go func() {
			for _, e := range entries {
				<-e.done
			}
			s.bus.Publish(eventbus.AllSessionsStopped(count))
		}()
	}
	return count
}

// ListSessions implements list_sessions, spec §4.4: a coherent
// point-in-time snapshot ordered by started_at ascending.
func (s *Supervisor) ListSessions() []session.Session {
	s.mu.Lock()
	out := make([]session.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		out = append(out, e.sess.Snapshot())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// GetSession implements get_session, spec §4.4.
func (s *Supervisor) GetSession(id session.ID) (session.Session, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return session.Session{}, ErrSessionNotFound
	}
	return e.sess.Snapshot(), nil
}

// ResolveAskpassPassword answers the hidden askpass subcommand's
// request: given the token a spawn generated, returns the password
// retrieved from the secret store for the associated profile, or an
// error if the token is unknown. A token stays valid while the child
// that received it is running and is discarded by the spawning task when
// that child exits (see task.go), so a token from an earlier spawn
// always fails.
func (s *Supervisor) ResolveAskpassPassword(token string, lookup func(profileName string) (string, error)) (string, error) {
	s.askpassMu.Lock()
	profileName, ok := s.askpassTokens[token]
	s.askpassMu.Unlock()
	if !ok {
		return "", fmt.Errorf("unknown or expired askpass token")
	}
	return lookup(profileName)
}

func (s *Supervisor) registerAskpassToken(token, profileName string) {
	s.askpassMu.Lock()
	s.askpassTokens[token] = profileName
	s.askpassMu.Unlock()
}

func (s *Supervisor) unregisterAskpassToken(token string) {
	s.askpassMu.Lock()
	delete(s.askpassTokens, token)
	s.askpassMu.Unlock()
}

func (s *Supervisor) setStatus(e *entry, status session.Status, lastErr string) {
	s.mu.Lock()
	e.sess.Status = status
	if lastErr != "" {
		e.sess.LastError = lastErr
	}
	s.mu.Unlock()
}

// markConnected transitions e to Connected, incrementing reconnect_count
// when this is a reconnect (attempt > 0), matching spec §3's "actual
// increment happens after successful re-spawn transition to Connected".
func (s *Supervisor) markConnected(e *entry, attempt int) {
	s.mu.Lock()
	e.sess.Status = session.StatusConnected
	if attempt > 0 {
		e.sess.ReconnectCount++
	}
	s.mu.Unlock()
}

func (s *Supervisor) setPID(e *entry, pid int) {
	s.mu.Lock()
	e.sess.PID = pid
	s.mu.Unlock()
}

func (s *Supervisor) removeSession(id session.ID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
