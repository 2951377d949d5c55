// Package daemon is the composition root and Unix-socket server: it
// wires internal/core, internal/profile, internal/sshbin,
// internal/eventbus, internal/eventlog, internal/wakeguard and
// internal/supervisor together behind internal/api, and speaks a
// newline-delimited JSON protocol (protocol.go) over a Unix domain
// socket, the same socket-based IPC shape as the teacher's
// internal/daemon/server.go, generalized from a free-text command
// line to structured JSON requests/responses.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/eventbus"
	"go.rsi.dev/reverse-ssh-interface/internal/eventlog"
	"go.rsi.dev/reverse-ssh-interface/internal/profile"
	"go.rsi.dev/reverse-ssh-interface/internal/secretstore"
	"go.rsi.dev/reverse-ssh-interface/internal/sshbin"
	"go.rsi.dev/reverse-ssh-interface/internal/supervisor"
	"go.rsi.dev/reverse-ssh-interface/internal/wakeguard"
)

// Daemon owns the socket listener and every long-lived component behind
// it.
type Daemon struct {
	configDir string
	cfg       atomic.Pointer[core.Config]
	logger    *slog.Logger

	store    *profile.Store
	bus      *eventbus.Bus
	sup      *supervisor.Supervisor
	eventLog *eventlog.Log
	wake     *wakeguard.Guard
	api      *api.API

	listener net.Listener
}

// New builds a Daemon rooted at configDir, creating directories and
// default files as needed. Does not start listening.
func New(configDir string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := core.EnsureDirs(configDir); err != nil {
		return nil, err
	}

	cfg, err := core.Load(core.ConfigFilePath(configDir))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := profile.NewStore(core.ProfilesDir(configDir), logger)
	if err != nil {
		return nil, err
	}

	evLog, err := eventlog.Open(filepath.Join(configDir, "events.db"))
	if err != nil {
		logger.Warn("event history disabled", "error", err)
		evLog = nil
	}

	d := &Daemon{
		configDir: configDir,
		logger:    logger,
		store:     store,
		bus:       eventbus.New(eventbus.DefaultCapacity),
		eventLog:  evLog,
		wake:      wakeguard.New(logger),
	}
	d.cfg.Store(&cfg)

	detector := &sshbin.Detector{Override: cfg.SSH.BinaryPath}
	d.sup = supervisor.New(store, detector, d.bus, d.configSnapshot, core.KnownHostsPath(configDir), logger, d.wake)
	d.api = api.New(store, d.sup, d.bus, d.eventLog)

	if d.eventLog != nil {
		sub := d.bus.Subscribe()
		d.eventLog.Subscribe(sub, func(err error) {
			logger.Warn("event log write failed", "error", err)
		})
	}

	return d, nil
}

func (d *Daemon) configSnapshot() core.Config {
	return *d.cfg.Load()
}

// Run starts the socket listener, the config file watcher, and the wake
// guard, then serves connections until ctx is cancelled. Mirrors the
// teacher's Daemon.Run (internal/daemon/server.go) accept-loop shape.
func (d *Daemon) Run(ctx context.Context) error {
	sockPath := core.SocketPath(d.configDir)
	os.Remove(sockPath)

	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	d.listener = l
	defer l.Close()
	defer os.Remove(sockPath)

	if err := os.WriteFile(core.PIDFilePath(d.configDir), []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		d.logger.Warn("failed to write pid file", "error", err)
	}
	defer os.Remove(core.PIDFilePath(d.configDir))

	d.wake.Start(ctx)
	go d.watchConfig(ctx)

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	d.logger.Info("daemon listening", "socket", sockPath)

	var wg sync.WaitGroup
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				d.sup.StopAll()
				return nil
			default:
				d.logger.Warn("accept failed", "error", err)
				continue
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.handleConn(conn)
		}()
	}
}

// watchConfig reloads the config file on write, the same hot-reload
// behavior the teacher wires through fsnotify for its own config file.
func (d *Daemon) watchConfig(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Warn("config watcher disabled", "error", err)
		return
	}
	defer watcher.Close()

	path := core.ConfigFilePath(d.configDir)
	if err := watcher.Add(path); err != nil {
		d.logger.Warn("failed to watch config file", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := core.Load(path)
			if err != nil {
				d.logger.Warn("failed to reload config", "error", err)
				continue
			}
			d.cfg.Store(&cfg)
			d.logger.Info("config reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (d *Daemon) handleConn(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		writeResponse(conn, Response{OK: false, Error: "invalid request: " + err.Error(), Final: true})
		return
	}

	d.dispatch(conn, req)
}

func writeResponse(w net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	w.Write(append(data, '\n'))
}

// resolveAskpassLookup answers internal password lookups for the askpass
// op, falling back to the secret store keyed by profile name.
func (d *Daemon) resolveAskpassLookup(profileName string) (string, error) {
	pw, found, err := secretstore.Lookup(profileName)
	if err != nil {
		return "", err
	}
	if !found {
		return "", fmt.Errorf("no stored password for profile %s", profileName)
	}
	return pw, nil
}
