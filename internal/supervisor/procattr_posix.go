//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// applyProcAttr detaches the child into its own session, grounded on the
// teacher's reconnection spawn (internal/daemon/server.go: "Setsid: true,
// // Create new session, detach from parent"). This keeps a tunnel's
// process group isolated from the daemon's own.
func applyProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
