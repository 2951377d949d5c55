package wakeguard

import "testing"

func TestGuard_SuppressedTracksSleepState(t *testing.T) {
	g := New(nil)
	if g.Suppressed() {
		t.Fatal("fresh guard should not suppress")
	}

	g.markSleep()
	if !g.Suppressed() {
		t.Fatal("sleeping guard should suppress")
	}

	g.markWake()
	if !g.Suppressed() {
		t.Fatal("guard should still suppress during the post-wake grace period")
	}

	select {
	case <-g.WakeC():
	default:
		t.Fatal("expected a wake signal on WakeC()")
	}
}

func TestGuard_MarkWakeWithoutSleepIsNoop(t *testing.T) {
	g := New(nil)
	g.markWake()
	if g.Suppressed() {
		t.Fatal("waking an already-awake guard should not suppress")
	}
}
