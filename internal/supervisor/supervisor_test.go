package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/eventbus"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
	"go.rsi.dev/reverse-ssh-interface/internal/session"
	"go.rsi.dev/reverse-ssh-interface/internal/sshbin"
)

// fakeSSH writes a shell script standing in for the ssh client binary,
// so tests can script exactly what stderr output and exit behavior a
// "connection attempt" produces without depending on a real SSH server —
// the same substitution-of-the-external-process idea as the teacher's
// in-process fake SSH server (internal/testutil/sshserver), just scripted
// at the process-exec boundary instead of the wire-protocol boundary,
// since this package only cares about argv/stderr/exit-code contracts.
func fakeSSH(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fakessh.sh")
	body := "#!/bin/sh\n" + script
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake ssh script: %v", err)
	}
	return path
}

func testProfile(name string) profile.Profile {
	p := profile.Defaults()
	p.Name = name
	p.Host = "h"
	p.User = "u"
	p.Auth = profile.Auth{Method: profile.AuthAgent}
	p.Tunnels = []profile.Tunnel{{RemoteBind: "localhost", RemotePort: 8080, LocalHost: "localhost", LocalPort: 3000}}
	return p.WithDefaults()
}

func newTestSupervisor(t *testing.T, sshPath string) (*Supervisor, *profile.Store, *eventbus.Bus) {
	t.Helper()
	store, err := profile.NewStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	bus := eventbus.New(64)
	det := &sshbin.Detector{Override: sshPath}
	cfg := core.Default()
	sup := New(store, det, bus, func() core.Config { return cfg }, filepath.Join(t.TempDir(), "known_hosts"), nil, nil)
	return sup, store, bus
}

// collectEvents returns the next n events from sub, skipping
// SessionOutput events (one per stderr line of the fake ssh), which
// interleave with the lifecycle events the tests check.
func collectEvents(t *testing.T, sub *eventbus.Subscription, n int, timeout time.Duration) []eventbus.Event {
	t.Helper()
	var got []eventbus.Event
	deadline := time.After(timeout)
	for len(got) < n {
		select {
		case ev := <-sub.Events():
			if ev.Kind == eventbus.KindSessionOutput {
				continue
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %d events, got %d: %+v", n, len(got), got)
		}
	}
	return got
}

// Scenario 1: happy path.
func TestSupervisor_HappyPath(t *testing.T) {
	sshPath := fakeSSH(t, `echo "Authenticated to h ([1.2.3.4]:22)." 1>&2
sleep 5
`)
	sup, store, bus := newTestSupervisor(t, sshPath)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	p := testProfile("p1")
	if _, err := store.Create(p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	id, err := sup.StartSession("p1")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	events := collectEvents(t, sub, 2, 3*time.Second)
	if events[0].Kind != eventbus.KindSessionStarted || events[0].ProfileName != "p1" {
		t.Fatalf("event[0] = %+v, want SessionStarted{p1}", events[0])
	}
	if events[1].Kind != eventbus.KindSessionConnected {
		t.Fatalf("event[1] = %+v, want SessionConnected", events[1])
	}

	got, err := sup.GetSession(id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != session.StatusConnected {
		t.Fatalf("Status = %v, want Connected", got.Status)
	}

	if err := sup.StopSession(id); err != nil {
		t.Fatalf("StopSession: %v", err)
	}
	stopEv := collectEvents(t, sub, 1, 3*time.Second)
	if stopEv[0].Kind != eventbus.KindSessionStopped {
		t.Fatalf("event = %+v, want SessionStopped", stopEv[0])
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(sup.ListSessions()) == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("session still present in ListSessions() after stop")
}

// Scenario 2: auth failure, no retry.
func TestSupervisor_AuthFailureNoRetry(t *testing.T) {
	sshPath := fakeSSH(t, `echo "Permission denied (publickey)." 1>&2
exit 255
`)
	sup, store, bus := newTestSupervisor(t, sshPath)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	p := testProfile("bad")
	if _, err := store.Create(p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sup.StartSession("bad"); err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	var saw []eventbus.Event
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			saw = append(saw, ev)
			if ev.Kind == eventbus.KindSessionFailed {
				goto done
			}
		case <-deadline:
			t.Fatalf("did not observe SessionFailed, got: %+v", saw)
		}
	}
done:
	if saw[0].Kind != eventbus.KindSessionStarted {
		t.Fatalf("first event = %+v, want SessionStarted", saw[0])
	}
	last := saw[len(saw)-1]
	if last.Kind != eventbus.KindSessionFailed {
		t.Fatalf("last event = %+v, want SessionFailed", last)
	}
	for _, ev := range saw {
		if ev.Kind == eventbus.KindSessionReconnecting {
			t.Fatalf("unexpected SessionReconnecting for an auth failure: %+v", saw)
		}
	}
}

// Scenario 5: unique names round trip through create/delete/create.
func TestSupervisor_ProfileLifecycleThroughStore(t *testing.T) {
	_, store, _ := newTestSupervisor(t, fakeSSH(t, "exit 0\n"))

	p := testProfile("x")
	if _, err := store.Create(p); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := store.Create(p); err == nil {
		t.Fatal("second Create should fail with Conflict")
	}
	if err := store.Delete("x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Create(p); err != nil {
		t.Fatalf("recreate after delete: %v", err)
	}
}

func TestSupervisor_StartSession_ProfileNotFound(t *testing.T) {
	sup, _, _ := newTestSupervisor(t, fakeSSH(t, "exit 0\n"))
	if _, err := sup.StartSession("missing"); err != ErrProfileNotFound {
		t.Fatalf("StartSession() error = %v, want ErrProfileNotFound", err)
	}
}

func TestSupervisor_StopSession_NotFound(t *testing.T) {
	sup, _, _ := newTestSupervisor(t, fakeSSH(t, "exit 0\n"))
	if err := sup.StopSession(session.ID("nope")); err != ErrSessionNotFound {
		t.Fatalf("StopSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestSupervisor_StopAll_EmitsAllSessionsStoppedAfterEachSession(t *testing.T) {
	sshPath := fakeSSH(t, `echo "Authenticated to h ([1.2.3.4]:22)." 1>&2
sleep 30
`)
	sup, store, bus := newTestSupervisor(t, sshPath)
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	for _, name := range []string{"a", "b"} {
		p := testProfile(name)
		if _, err := store.Create(p); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
		if _, err := sup.StartSession(name); err != nil {
			t.Fatalf("StartSession(%s): %v", name, err)
		}
	}

	// Drain the Started/Connected events for both sessions.
	collectEvents(t, sub, 4, 3*time.Second)

	count := sup.StopAll()
	if count != 2 {
		t.Fatalf("StopAll() = %d, want 2", count)
	}

	stoppedCount := 0
	sawAllStopped := false
	deadline := time.After(5 * time.Second)
	for !sawAllStopped {
		select {
		case ev := <-sub.Events():
			switch ev.Kind {
			case eventbus.KindSessionStopped:
				stoppedCount++
			case eventbus.KindAllSessionsStopped:
				sawAllStopped = true
				if stoppedCount != 2 {
					t.Fatalf("AllSessionsStopped arrived after %d SessionStopped, want 2", stoppedCount)
				}
				if ev.Count != 2 {
					t.Fatalf("AllSessionsStopped.Count = %d, want 2", ev.Count)
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for AllSessionsStopped, saw %d SessionStopped", stoppedCount)
		}
	}
}

func TestSupervisor_StartSession_SSHNotFound(t *testing.T) {
	sup, store, _ := newTestSupervisor(t, filepath.Join(t.TempDir(), "does-not-exist"))
	p := testProfile("p1")
	if _, err := store.Create(p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := sup.StartSession("p1"); err == nil {
		t.Fatal("StartSession() should fail when ssh binary cannot be found")
	} else if fmt.Sprintf("%v", err) == "" {
		t.Fatal("expected a descriptive error")
	}
}
