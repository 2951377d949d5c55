package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.rsi.dev/reverse-ssh-interface/internal/backoff"
	"go.rsi.dev/reverse-ssh-interface/internal/eventbus"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
	"go.rsi.dev/reverse-ssh-interface/internal/session"
	"go.rsi.dev/reverse-ssh-interface/internal/sshexec"
)

const (
	readinessWindow    = 2 * time.Second
	terminationTimeout = 3 * time.Second
)

// childResult is the outcome of one spawn-to-exit cycle, consumed by
// runTask's outer reconnect loop.
type childResult struct {
	cancelled     bool
	everConnected bool
	nonRetriable  bool
	lastError     string
	exitErr       error
}

// runTask is the per-session supervisor task, spec §4.4 "Session
// supervisor task — state machine". One goroutine per session; it never
// holds the registry mutex across a spawn, a stderr read, a backoff
// sleep, or a child wait (spec §4.5).
func (s *Supervisor) runTask(e *entry, sshPath string, initialArgs []string) {
	defer func() {
		s.removeSession(e.sess.ID)
		close(e.done)
	}()

	args := initialArgs
	attempt := 0

	for {
		result := s.runChild(e, sshPath, args, attempt)
		s.setPID(e, 0) // no live child until the next spawn

		if result.cancelled {
			s.setStatus(e, session.StatusStopped, "")
			s.bus.Publish(eventbus.SessionStopped(e.sess.ID))
			return
		}

		if result.everConnected {
			s.setStatus(e, session.StatusDisconnected, result.lastError)
			s.bus.Publish(eventbus.SessionDisconnected(e.sess.ID, exitReason(result.exitErr)))
		}

		profileSnap := e.sess.ProfileSnapshot
		if result.nonRetriable || !profileSnap.AutoReconnect {
			errMsg := result.lastError
			if errMsg == "" {
				errMsg = exitReason(result.exitErr)
			}
			s.setStatus(e, session.StatusFailed, errMsg)
			s.bus.Publish(eventbus.SessionFailed(e.sess.ID, errMsg))
			return
		}

		attempt++
		if profileSnap.MaxReconnectAttempts > 0 && attempt > profileSnap.MaxReconnectAttempts {
			s.setStatus(e, session.StatusFailed, "max attempts exceeded")
			s.bus.Publish(eventbus.SessionFailed(e.sess.ID, "max attempts exceeded"))
			return
		}

		delay := backoff.Delay(attempt)
		s.setStatus(e, session.StatusReconnecting, "")
		s.bus.Publish(eventbus.SessionReconnecting(e.sess.ID, attempt, int(delay/time.Second)))

		if !s.waitForReconnectWindow(e, delay) {
			s.setStatus(e, session.StatusStopped, "")
			s.bus.Publish(eventbus.SessionStopped(e.sess.ID))
			return
		}
	}
}

// waitForReconnectWindow blocks for delay (or until e.cancel fires,
// returning false), but also consults the wake guard: while the host is
// reported asleep or still in its post-wake grace period, the wait is
// extended in small increments instead of spawning ssh against a
// network interface that is not back yet, and a wake signal can cut a
// stale delay short once the guard confirms the host is no longer
// suppressed.
func (s *Supervisor) waitForReconnectWindow(e *entry, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var wakeCh <-chan struct{}
	if s.wake != nil {
		wakeCh = s.wake.WakeC()
	}

	for {
		select {
		case <-timer.C:
			if s.wake != nil && s.wake.Suppressed() {
				timer.Reset(time.Second)
				continue
			}
			return true
		case <-wakeCh:
			// Drop the rest of a delay computed before the sleep; the
			// timer branch then waits out the grace period in 1s steps.
			timer.Reset(time.Second)
			continue
		case <-e.cancel:
			return false
		}
	}
}

// exitReason renders a wait error as a short human string.
func exitReason(err error) string {
	if err == nil {
		return "process exited"
	}
	return err.Error()
}

// runChild spawns one ssh client invocation and runs it to exit (or
// cancellation), implementing spec §4.4 steps 1–3 for a single attempt.
// attempt is 0 for the initial spawn, >=1 for each reconnect.
func (s *Supervisor) runChild(e *entry, sshPath string, args []string, attempt int) childResult {
	cmd := exec.Command(sshPath, args...)
	cmd.Stdin = nil
	cmd.Env = os.Environ()
	applyProcAttr(cmd)

	var askpassToken string
	if e.sess.ProfileSnapshot.Auth.Method == profile.AuthPassword {
		token, err := sshexec.GenerateAskpassToken()
		if err != nil {
			return childResult{exitErr: fmt.Errorf("generate askpass token: %w", err), nonRetriable: true}
		}
		if err := sshexec.ConfigureAskpass(cmd, e.sess.ProfileSnapshot.Name, token); err != nil {
			return childResult{exitErr: fmt.Errorf("configure askpass: %w", err), nonRetriable: true}
		}
		s.registerAskpassToken(token, e.sess.ProfileSnapshot.Name)
		askpassToken = token
		defer s.unregisterAskpassToken(askpassToken)
	}

	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return childResult{exitErr: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return childResult{exitErr: fmt.Errorf("spawn ssh: %w", err)}
	}
	s.setPID(e, cmd.Process.Pid)

	lineCh := make(chan string)
	go func() {
		defer close(lineCh)
		sc := bufio.NewScanner(stderrPipe)
		for sc.Scan() {
			lineCh <- sc.Text()
		}
	}()

	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	timer := time.NewTimer(readinessWindow)
	defer timer.Stop()

	connected := false
	fatalSeen := false
	readinessNegativeSeen := false
	var lastError string

	for {
		select {
		case line, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			s.bus.Publish(eventbus.SessionOutput(e.sess.ID, line))
			if matchesFatal(line) {
				fatalSeen = true
				lastError = line
			}
			if matchesReadinessNegative(line) {
				readinessNegativeSeen = true
				if lastError == "" {
					lastError = line
				}
			}
			if !connected && matchesPositive(line) {
				connected = true
				s.markConnected(e, attempt)
				s.bus.Publish(eventbus.SessionConnected(e.sess.ID))
			}

		case <-timer.C:
			if !connected && !readinessNegativeSeen {
				connected = true
				s.markConnected(e, attempt)
				s.bus.Publish(eventbus.SessionConnected(e.sess.ID))
			}

		case waitErr := <-waitErrCh:
			return childResult{
				everConnected: connected,
				nonRetriable:  fatalSeen,
				lastError:     lastError,
				exitErr:       waitErr,
			}

		case <-e.cancel:
			terminateProcess(cmd.Process, terminationTimeout)
			<-waitErrCh
			return childResult{cancelled: true, everConnected: connected}
		}
	}
}
