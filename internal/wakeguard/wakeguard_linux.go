//go:build linux

package wakeguard

import (
	"context"
	"os"

	"github.com/godbus/dbus/v5"
)

// start listens for logind's PrepareForSleep signal over the system
// D-Bus, a direct rename of the teacher's SleepMonitor.Start
// (internal/awareness/state/sleep_monitor_linux.go).
func (g *Guard) start(ctx context.Context) {
	go func() {
		conn, err := dbus.SystemBus()
		if err != nil {
			if os.Getenv("DBUS_SYSTEM_BUS_ADDRESS") == "" {
				g.logger.Debug("D-Bus unavailable, wake guard disabled (headless host?)")
			} else {
				g.logger.Warn("failed to connect to D-Bus for sleep monitoring", "error", err)
			}
			return
		}

		if err := conn.AddMatchSignal(
			dbus.WithMatchObjectPath("/org/freedesktop/login1"),
			dbus.WithMatchInterface("org.freedesktop.login1.Manager"),
			dbus.WithMatchMember("PrepareForSleep"),
		); err != nil {
			g.logger.Warn("failed to subscribe to PrepareForSleep", "error", err)
			return
		}

		signals := make(chan *dbus.Signal, 8)
		conn.Signal(signals)
		g.logger.Info("wake guard started (D-Bus logind)")

		for {
			select {
			case <-ctx.Done():
				conn.RemoveSignal(signals)
				return
			case sig := <-signals:
				if sig == nil {
					return
				}
				if sig.Name != "org.freedesktop.login1.Manager.PrepareForSleep" || len(sig.Body) < 1 {
					continue
				}
				entering, ok := sig.Body[0].(bool)
				if !ok {
					continue
				}
				if entering {
					g.markSleep()
				} else {
					g.markWake()
				}
			}
		}
	}()
}
