package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/core"
)

// startTestDaemon boots a Daemon against a scratch config dir with a
// fake ssh binary configured, runs it in the background until the test
// ends, and returns the socket path to dial directly (bypassing
// core.ConfigDir(), which client.go's Call/dial rely on and which
// resolves from the user's environment rather than from t.TempDir()).
func startTestDaemon(t *testing.T) string {
	t.Helper()
	configDir := t.TempDir()

	sshPath := filepath.Join(t.TempDir(), "ssh.sh")
	if err := os.WriteFile(sshPath, []byte("#!/bin/sh\nsleep 5\n"), 0o755); err != nil {
		t.Fatalf("write fake ssh: %v", err)
	}
	cfg := core.Default()
	cfg.SSH.BinaryPath = sshPath
	if err := core.EnsureDirs(configDir); err != nil {
		t.Fatalf("EnsureDirs: %v", err)
	}
	if err := core.Save(core.ConfigFilePath(configDir), cfg); err != nil {
		t.Fatalf("Save config: %v", err)
	}

	d, err := New(configDir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(cancel)

	sock := core.SocketPath(configDir)
	waitForSocket(t, sock)
	return sock
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("socket %s never appeared", path)
}

func callSocket(t *testing.T, sock, op string, args any) Response {
	t.Helper()
	conn, err := net.DialTimeout("unix", sock, 2*time.Second)
	if err != nil {
		t.Fatalf("dial %s: %v", sock, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(3 * time.Second))

	if err := writeRequest(conn, op, args); err != nil {
		t.Fatalf("writeRequest(%s): %v", op, err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response for %s: %v", op, err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("unmarshal response for %s: %v", op, err)
	}
	return resp
}

func TestDaemon_ProfileAndSessionLifecycleOverSocket(t *testing.T) {
	sock := startTestDaemon(t)

	createResp := callSocket(t, sock, "create_profile", api.ProfileArg{
		Name: "p1", Host: "h", User: "u",
		Auth:    api.AuthArg{Method: "agent"},
		Tunnels: []api.TunnelArg{{RemoteBind: "localhost", RemotePort: 8080, LocalHost: "localhost", LocalPort: 3000}},
	})
	if !createResp.OK {
		t.Fatalf("create_profile failed: %s", createResp.Error)
	}

	listResp := callSocket(t, sock, "list_profiles", nil)
	if !listResp.OK {
		t.Fatalf("list_profiles failed: %s", listResp.Error)
	}
	var profiles []api.ProfileArg
	if err := json.Unmarshal(listResp.Data, &profiles); err != nil {
		t.Fatalf("unmarshal profiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].Name != "p1" {
		t.Fatalf("list_profiles = %+v, want one p1", profiles)
	}

	startResp := callSocket(t, sock, "start_session", map[string]string{"profile_name": "p1"})
	if !startResp.OK {
		t.Fatalf("start_session failed: %s", startResp.Error)
	}
	var sessionID string
	if err := json.Unmarshal(startResp.Data, &sessionID); err != nil {
		t.Fatalf("unmarshal session id: %v", err)
	}
	if sessionID == "" {
		t.Fatal("start_session returned an empty id")
	}

	deadline := time.Now().Add(3 * time.Second)
	var sessions []api.SessionArg
	for time.Now().Before(deadline) {
		resp := callSocket(t, sock, "list_sessions", nil)
		json.Unmarshal(resp.Data, &sessions)
		if len(sessions) == 1 && sessions[0].Status == "connected" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if len(sessions) != 1 || sessions[0].Status != "connected" {
		t.Fatalf("sessions = %+v, want one connected session", sessions)
	}

	stopResp := callSocket(t, sock, "stop_session", map[string]string{"id": sessionID})
	if !stopResp.OK {
		t.Fatalf("stop_session failed: %s", stopResp.Error)
	}

	deleteResp := callSocket(t, sock, "delete_profile", map[string]string{"name": "p1"})
	deadline = time.Now().Add(3 * time.Second)
	for !deleteResp.OK && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		deleteResp = callSocket(t, sock, "delete_profile", map[string]string{"name": "p1"})
	}
	if !deleteResp.OK {
		t.Fatalf("delete_profile never succeeded: %s", deleteResp.Error)
	}
}

func TestDaemon_UnknownOp(t *testing.T) {
	sock := startTestDaemon(t)
	resp := callSocket(t, sock, "no_such_op", nil)
	if resp.OK {
		t.Fatal("unknown op should not report OK")
	}
}

func TestDaemon_VersionOp(t *testing.T) {
	sock := startTestDaemon(t)
	resp := callSocket(t, sock, "version", nil)
	if !resp.OK {
		t.Fatalf("version op failed: %s", resp.Error)
	}
}
