//go:build windows

package supervisor

import (
	"os"
	"time"

	"golang.org/x/sys/windows"
)

// processAlive reports whether pid still has a live handle, by asking
// the OS for its exit code.
func processAlive(pid int) bool {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false
	}
	return code == uint32(259) // STILL_ACTIVE
}

// terminateProcess sends CTRL_BREAK_EVENT to the child's process group
// (it was placed in its own group by applyProcAttr), waits up to
// timeout, then force-kills. The Windows counterpart of the teacher's
// POSIX gracefulTerminate — the teacher has no Windows build at all, so
// this is authored fresh in the same spawn-signal-poll-kill shape.
func terminateProcess(process *os.Process, timeout time.Duration) error {
	if err := windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(process.Pid)); err != nil {
		return process.Kill()
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(process.Pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	if !processAlive(process.Pid) {
		return nil
	}
	return process.Kill()
}
