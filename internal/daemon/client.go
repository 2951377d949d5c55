package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
)

// Call sends one request to the daemon and returns its single terminal
// response. Grounded on the teacher's SendCommand
// (internal/daemon/client.go), adapted from a free-text command line to
// a structured Request.
func Call(op string, args any) (Response, error) {
	return CallWithTimeout(op, args, 0)
}

// CallWithTimeout is Call with an optional connect/read deadline; zero
// means no deadline.
func CallWithTimeout(op string, args any, timeout time.Duration) (Response, error) {
	conn, err := dial(timeout)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if err := writeRequest(conn, op, args); err != nil {
		return Response{}, err
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response from daemon: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("parse response from daemon: %w", err)
	}
	return resp, nil
}

// Stream sends a subscribe_events request and invokes onEvent for every
// line the daemon writes until the daemon closes the connection or sends
// a non-OK response. Returns when the stream ends.
func Stream(onEvent func(json.RawMessage)) error {
	conn, err := dial(0)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeRequest(conn, "subscribe_events", nil); err != nil {
		return err
	}

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read event stream: %w", err)
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if !resp.OK {
			return fmt.Errorf("daemon: %s", resp.Error)
		}
		onEvent(resp.Data)
	}
}

func writeRequest(conn net.Conn, op string, args any) error {
	req := Request{Op: op}
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode request args: %w", err)
		}
		req.Args = encoded
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("send request to daemon: %w", err)
	}
	return nil
}

func dial(timeout time.Duration) (net.Conn, error) {
	configDir, err := core.ConfigDir()
	if err != nil {
		return nil, err
	}
	sock := core.SocketPath(configDir)
	if timeout > 0 {
		return net.DialTimeout("unix", sock, timeout)
	}
	return net.Dial("unix", sock)
}

// IsRunning reports whether a daemon is reachable on the socket.
func IsRunning() bool {
	_, err := CallWithTimeout("version", nil, 500*time.Millisecond)
	return err == nil
}

// EnsureRunning starts the daemon in the background if it is not
// already reachable, and blocks until it is ready. Grounded on the
// teacher's EnsureDaemonIsRunning.
func EnsureRunning() error {
	if IsRunning() {
		return nil
	}
	cmd, err := StartDetached()
	if err != nil {
		return err
	}
	return WaitUntilReady(cmd)
}

// StartDetached launches `<self> daemon --foreground` in the background,
// capturing stderr to a temp file so WaitUntilReady can surface a crash.
// Grounded on the teacher's StartDaemon.
func StartDetached() (*exec.Cmd, error) {
	cmd := exec.Command(os.Args[0], "daemon", "--foreground")
	cmd.Env = os.Environ()

	stderrFile, err := os.CreateTemp("", "rsi-daemon-stderr-*")
	if err != nil {
		return nil, fmt.Errorf("create stderr capture file: %w", err)
	}
	cmd.Stderr = stderrFile

	if err := cmd.Start(); err != nil {
		stderrFile.Close()
		os.Remove(stderrFile.Name())
		return nil, fmt.Errorf("fork daemon process: %w", err)
	}
	return cmd, nil
}

// WaitUntilReady polls the socket until the daemon answers or the
// launched process exits early, surfacing captured stderr on crash.
func WaitUntilReady(cmd *exec.Cmd) error {
	defer func() {
		if f, ok := cmd.Stderr.(*os.File); ok {
			name := f.Name()
			f.Close()
			os.Remove(name)
		}
	}()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)

		select {
		case err := <-exited:
			stderr := ""
			if f, ok := cmd.Stderr.(*os.File); ok {
				f.Seek(0, 0)
				data, _ := io.ReadAll(f)
				stderr = strings.TrimSpace(string(data))
			}
			if stderr != "" {
				return fmt.Errorf("daemon crashed during startup (%v):\n%s", err, stderr)
			}
			return fmt.Errorf("daemon crashed during startup (%v)", err)
		default:
		}

		if _, err := CallWithTimeout("version", nil, 500*time.Millisecond); err == nil {
			return nil
		}
	}
	return fmt.Errorf("daemon did not become ready in time")
}

// WaitUntilStopped polls until the daemon is no longer reachable.
func WaitUntilStopped() error {
	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		if !IsRunning() {
			return nil
		}
	}
	return fmt.Errorf("daemon did not stop in time")
}
