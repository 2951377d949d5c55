// Package backoff computes reconnect delays, spec §4.8.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

const (
	base   = 1 * time.Second
	factor = 2.0
	cap_   = 300 * time.Second
)

// Delay returns the backoff delay for attempt (counting from 1):
// delay = min(cap, base * factor^(attempt-1)). Grounded on the teacher's
// calculateBackoff (internal/daemon/server.go), generalized from
// config-parsed duration strings to the spec's fixed base/factor/cap.
func Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return base
	}
	d := float64(base) * math.Pow(factor, float64(attempt-1))
	if d > float64(cap_) || math.IsInf(d, 1) {
		return cap_
	}
	return time.Duration(d)
}

// DelayWithJitter returns Delay(attempt) adjusted by up to ±20% jitter,
// spec §4.8's permitted (not required) variation. rnd may be nil, in
// which case the package-level default source is used.
func DelayWithJitter(attempt int, rnd *rand.Rand) time.Duration {
	d := Delay(attempt)
	var frac float64
	if rnd != nil {
		frac = rnd.Float64()
	} else {
		frac = rand.Float64()
	}
	jitter := 1 + (frac*0.4 - 0.2) // in [0.8, 1.2)
	jittered := time.Duration(float64(d) * jitter)
	if jittered > cap_ {
		jittered = cap_
	}
	if jittered < 0 {
		jittered = 0
	}
	return jittered
}
