// Package eventbus implements the lossy multi-subscriber broadcast of
// lifecycle events described in spec §4.6, carrying the Event tagged
// variant from spec §3.
package eventbus

import (
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/session"
)

// Kind identifies an Event variant, spec §3 "Event".
type Kind string

const (
	KindSessionStarted      Kind = "session_started"
	KindSessionConnected    Kind = "session_connected"
	KindSessionDisconnected Kind = "session_disconnected"
	KindSessionReconnecting Kind = "session_reconnecting"
	KindSessionFailed       Kind = "session_failed"
	KindSessionStopped      Kind = "session_stopped"
	KindSessionOutput       Kind = "session_output"
	// KindAllSessionsStopped is emitted once by stop_all after every
	// per-session SessionStopped (spec §4.4); it carries no session id.
	KindAllSessionsStopped Kind = "all_sessions_stopped"
)

// Event is one lifecycle notification. Every variant carries SessionID
// except AllSessionsStopped. Only the fields relevant to Kind are set.
type Event struct {
	Kind      Kind
	SessionID session.ID
	Time      time.Time

	ProfileName string // SessionStarted
	Reason      string // SessionDisconnected
	Attempt     int    // SessionReconnecting
	DelaySecs   int    // SessionReconnecting
	Error       string // SessionFailed
	Line        string // SessionOutput
	Count       int    // AllSessionsStopped: sessions stopped
}

func SessionStarted(id session.ID, profileName string) Event {
	return Event{Kind: KindSessionStarted, SessionID: id, ProfileName: profileName}
}

func SessionConnected(id session.ID) Event {
	return Event{Kind: KindSessionConnected, SessionID: id}
}

func SessionDisconnected(id session.ID, reason string) Event {
	return Event{Kind: KindSessionDisconnected, SessionID: id, Reason: reason}
}

func SessionReconnecting(id session.ID, attempt, delaySecs int) Event {
	return Event{Kind: KindSessionReconnecting, SessionID: id, Attempt: attempt, DelaySecs: delaySecs}
}

func SessionFailed(id session.ID, errMsg string) Event {
	return Event{Kind: KindSessionFailed, SessionID: id, Error: errMsg}
}

func SessionStopped(id session.ID) Event {
	return Event{Kind: KindSessionStopped, SessionID: id}
}

func SessionOutput(id session.ID, line string) Event {
	return Event{Kind: KindSessionOutput, SessionID: id, Line: line}
}

func AllSessionsStopped(count int) Event {
	return Event{Kind: KindAllSessionsStopped, Count: count}
}
