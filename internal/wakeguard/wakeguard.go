// Package wakeguard detects system sleep/wake transitions so the Session
// Manager can avoid burning reconnect attempts while the host is asleep
// and retry promptly once it wakes, per SPEC_FULL.md's reconnect-policy
// extension.
package wakeguard

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Guard tracks sleep/wake state and suppresses reconnect attempts during
// sleep and for a short grace period after wake, to avoid reconnect
// storms against a network interface that hasn't come back up yet.
// Grounded on the teacher's SleepMonitor (internal/awareness/state/sleep_monitor.go).
type Guard struct {
	mu        sync.RWMutex
	sleeping  bool
	wakeTime  time.Time
	graceTime time.Duration
	logger    *slog.Logger

	wakeCh chan struct{}
}

// New creates a Guard with a 10-second post-wake grace period, matching
// the teacher's default.
func New(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		graceTime: 10 * time.Second,
		logger:    logger,
		wakeCh:    make(chan struct{}, 1),
	}
}

// Suppressed reports whether reconnect attempts should be held back
// right now: the system is asleep, or woke up within the grace period.
func (g *Guard) Suppressed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.sleeping {
		return true
	}
	return !g.wakeTime.IsZero() && time.Since(g.wakeTime) < g.graceTime
}

// WakeC returns a channel that receives a value shortly after each wake
// transition, letting a pending reconnect backoff wait short-circuit
// instead of waiting out a delay computed before the sleep happened. The
// channel is shared and buffered; callers should treat a receive as a
// hint to re-check Suppressed(), not as a precise event.
func (g *Guard) WakeC() <-chan struct{} {
	return g.wakeCh
}

func (g *Guard) markSleep() {
	g.mu.Lock()
	g.sleeping = true
	g.mu.Unlock()
	g.logger.Info("system entering sleep, suppressing reconnects")
}

func (g *Guard) markWake() {
	g.mu.Lock()
	if !g.sleeping {
		g.mu.Unlock()
		return
	}
	g.sleeping = false
	g.wakeTime = time.Now()
	g.mu.Unlock()

	g.logger.Info("system woke up, resuming reconnects after grace period")
	select {
	case g.wakeCh <- struct{}{}:
	default:
	}
}

// Start begins listening for sleep/wake events in the background until
// ctx is cancelled. Platforms with no detection mechanism are a no-op
// (Suppressed always reports false).
func (g *Guard) Start(ctx context.Context) {
	g.start(ctx)
}
