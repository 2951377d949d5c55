//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// applyProcAttr places the child in its own process group so it can
// later be sent CTRL_BREAK_EVENT independently of the daemon's own
// console, the Windows analogue of the teacher's POSIX Setsid isolation.
func applyProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
