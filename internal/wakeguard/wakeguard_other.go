//go:build !linux

package wakeguard

import "context"

// start is a no-op off Linux: the D-Bus logind signal this package relies
// on has no portable equivalent in the pack's dependency set, and macOS's
// IOKit route (the teacher's sleep_monitor_darwin.go) needs cgo, which
// the rest of this module avoids (modernc.org/sqlite is used specifically
// to keep the binary cgo-free). Suppressed() simply never reports true.
func (g *Guard) start(ctx context.Context) {}
