// Package api is the Public API Surface (C10), spec §5: the operation
// set an adapter (the daemon's socket server, a future GUI) drives, with
// every argument and result expressed in plain, JSON-friendly types
// rather than the internal package types directly.
package api

import (
	"fmt"

	"go.rsi.dev/reverse-ssh-interface/internal/eventbus"
	"go.rsi.dev/reverse-ssh-interface/internal/eventlog"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
	"go.rsi.dev/reverse-ssh-interface/internal/session"
	"go.rsi.dev/reverse-ssh-interface/internal/supervisor"
)

// API composes the Profile Store and Session Manager behind the
// operation set spec §5 names. It holds no state of its own.
type API struct {
	store *profile.Store
	sup   *supervisor.Supervisor
	bus   *eventbus.Bus
	log   *eventlog.Log // optional, may be nil
}

// New builds an API over an already-constructed store/supervisor/bus.
// log is optional; pass nil to disable query_history.
func New(store *profile.Store, sup *supervisor.Supervisor, bus *eventbus.Bus, log *eventlog.Log) *API {
	return &API{store: store, sup: sup, bus: bus, log: log}
}

// TunnelArg is the JSON-friendly form of profile.Tunnel.
type TunnelArg struct {
	RemoteBind string `json:"remote_bind"`
	RemotePort int    `json:"remote_port"`
	LocalHost  string `json:"local_host"`
	LocalPort  int    `json:"local_port"`
}

// AuthArg is the JSON-friendly form of profile.Auth.
type AuthArg struct {
	Method string `json:"method"`
	Path   string `json:"path,omitempty"`
}

// ProfileArg is the request/response shape for a profile, spec §3.
type ProfileArg struct {
	Name                  string            `json:"name"`
	Host                  string            `json:"host"`
	Port                  int               `json:"port,omitempty"`
	User                  string            `json:"user"`
	Auth                  AuthArg           `json:"auth"`
	Tunnels               []TunnelArg       `json:"tunnels"`
	KeepaliveIntervalSecs int               `json:"keepalive_interval_secs,omitempty"`
	KeepaliveCount        int               `json:"keepalive_count,omitempty"`
	AutoReconnect         *bool             `json:"auto_reconnect,omitempty"`
	MaxReconnectAttempts  int               `json:"max_reconnect_attempts,omitempty"`
	ExtraOptions          map[string]string `json:"extra_options,omitempty"`
}

func toProfile(a ProfileArg) profile.Profile {
	p := profile.Profile{
		Name:                  a.Name,
		Host:                  a.Host,
		Port:                  a.Port,
		User:                  a.User,
		Auth:                  profile.Auth{Method: profile.AuthMethod(a.Auth.Method), Path: a.Auth.Path},
		KeepaliveIntervalSecs: a.KeepaliveIntervalSecs,
		KeepaliveCount:        a.KeepaliveCount,
		AutoReconnect:         true,
		MaxReconnectAttempts:  a.MaxReconnectAttempts,
		ExtraOptions:          a.ExtraOptions,
	}
	if a.AutoReconnect != nil {
		p.AutoReconnect = *a.AutoReconnect
	}
	for _, t := range a.Tunnels {
		p.Tunnels = append(p.Tunnels, profile.Tunnel{
			RemoteBind: t.RemoteBind,
			RemotePort: t.RemotePort,
			LocalHost:  t.LocalHost,
			LocalPort:  t.LocalPort,
		})
	}
	return p
}

func fromProfile(p profile.Profile) ProfileArg {
	a := ProfileArg{
		Name:                  p.Name,
		Host:                  p.Host,
		Port:                  p.Port,
		User:                  p.User,
		Auth:                  AuthArg{Method: string(p.Auth.Method), Path: p.Auth.Path},
		KeepaliveIntervalSecs: p.KeepaliveIntervalSecs,
		KeepaliveCount:        p.KeepaliveCount,
		AutoReconnect:         &p.AutoReconnect,
		MaxReconnectAttempts:  p.MaxReconnectAttempts,
		ExtraOptions:          p.ExtraOptions,
	}
	for _, t := range p.Tunnels {
		a.Tunnels = append(a.Tunnels, TunnelArg{
			RemoteBind: t.RemoteBind,
			RemotePort: t.RemotePort,
			LocalHost:  t.LocalHost,
			LocalPort:  t.LocalPort,
		})
	}
	return a
}

// SessionArg is the JSON-friendly form of session.Session.
type SessionArg struct {
	ID             string     `json:"id"`
	ProfileName    string     `json:"profile_name"`
	Status         string     `json:"status"`
	PID            int        `json:"pid,omitempty"`
	StartedAt      string     `json:"started_at"`
	ReconnectCount int        `json:"reconnect_count"`
	LastError      string     `json:"last_error,omitempty"`
}

func fromSession(s session.Session) SessionArg {
	return SessionArg{
		ID:             string(s.ID),
		ProfileName:    s.ProfileSnapshot.Name,
		Status:         string(s.Status),
		PID:            s.PID,
		StartedAt:      s.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		ReconnectCount: s.ReconnectCount,
		LastError:      s.LastError,
	}
}

// ListProfiles implements list_profiles, spec §5.
func (a *API) ListProfiles() ([]ProfileArg, error) {
	profiles, err := a.store.List()
	if err != nil {
		return nil, err
	}
	out := make([]ProfileArg, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, fromProfile(p))
	}
	return out, nil
}

// GetProfile implements get_profile, spec §5.
func (a *API) GetProfile(name string) (ProfileArg, error) {
	p, err := a.store.Get(name)
	if err != nil {
		return ProfileArg{}, err
	}
	return fromProfile(p), nil
}

// CreateProfile implements create_profile, spec §5.
func (a *API) CreateProfile(arg ProfileArg) (ProfileArg, error) {
	p, err := a.store.Create(toProfile(arg))
	if err != nil {
		return ProfileArg{}, err
	}
	return fromProfile(p), nil
}

// DeleteProfile implements delete_profile, spec §5. Refuses to delete a
// profile with a live session, since that session's ProfileSnapshot is
// the only copy of settings still in use by a running ssh child.
func (a *API) DeleteProfile(name string) error {
	for _, s := range a.sup.ListSessions() {
		if s.ProfileSnapshot.Name == name {
			return fmt.Errorf("profile %s has an active session, stop it first", name)
		}
	}
	return a.store.Delete(name)
}

// StartSession implements start_session, spec §5.
func (a *API) StartSession(profileName string) (string, error) {
	id, err := a.sup.StartSession(profileName)
	return string(id), err
}

// StopSession implements stop_session, spec §5.
func (a *API) StopSession(id string) error {
	return a.sup.StopSession(session.ID(id))
}

// StopAllSessions implements stop_all, spec §5.
func (a *API) StopAllSessions() int {
	return a.sup.StopAll()
}

// ListSessions implements list_sessions, spec §5.
func (a *API) ListSessions() []SessionArg {
	sessions := a.sup.ListSessions()
	out := make([]SessionArg, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, fromSession(s))
	}
	return out
}

// GetSession implements get_session, spec §5.
func (a *API) GetSession(id string) (SessionArg, error) {
	s, err := a.sup.GetSession(session.ID(id))
	if err != nil {
		return SessionArg{}, err
	}
	return fromSession(s), nil
}

// EventArg is the JSON-friendly form of eventbus.Event, streamed to
// subscribe_events callers one per line.
type EventArg struct {
	Kind        string `json:"kind"`
	SessionID   string `json:"session_id,omitempty"`
	Time        string `json:"time"`
	ProfileName string `json:"profile_name,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Attempt     int    `json:"attempt,omitempty"`
	DelaySecs   int    `json:"delay_secs,omitempty"`
	Error       string `json:"error,omitempty"`
	Line        string `json:"line,omitempty"`
	Count       int    `json:"count,omitempty"`
}

func fromEvent(ev eventbus.Event) EventArg {
	return EventArg{
		Kind:        string(ev.Kind),
		SessionID:   string(ev.SessionID),
		Time:        ev.Time.Format("2006-01-02T15:04:05.000Z07:00"),
		ProfileName: ev.ProfileName,
		Reason:      ev.Reason,
		Attempt:     ev.Attempt,
		DelaySecs:   ev.DelaySecs,
		Error:       ev.Error,
		Line:        ev.Line,
		Count:       ev.Count,
	}
}

// Subscribe implements subscribe_events, spec §5. The returned function
// must be called to release the subscription once the caller stops
// reading.
func (a *API) Subscribe() (<-chan EventArg, func()) {
	sub := a.bus.Subscribe()
	out := make(chan EventArg)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- fromEvent(ev):
				case <-done:
					return
				}
			case <-done:
				return
			}
		}
	}()
	cancel := func() {
		close(done)
		a.bus.Unsubscribe(sub)
	}
	return out, cancel
}

// HistoryArg is one row of query_history output.
type HistoryArg struct {
	SessionID   string `json:"session_id"`
	ProfileName string `json:"profile_name,omitempty"`
	Kind        string `json:"kind"`
	Detail      string `json:"detail,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// QueryHistory implements the durable-log counterpart to subscribe_events,
// a SPEC_FULL.md addition backed by internal/eventlog. Returns an error if
// no event log was configured.
func (a *API) QueryHistory(profileName string, limit int) ([]HistoryArg, error) {
	if a.log == nil {
		return nil, fmt.Errorf("event history is not enabled")
	}
	rows, err := a.log.Recent(profileName, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryArg, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryArg{
			SessionID:   r.SessionID,
			ProfileName: r.ProfileName,
			Kind:        r.Kind,
			Detail:      r.Detail,
			Timestamp:   r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	return out, nil
}
