package sshexec

import (
	"fmt"
	"os"
)

// ResolveKnownHosts implements the Known-Hosts Manager, spec §4.7. When
// useAppKnownHosts is true, returns path, creating an empty 0600 file if
// one is not already there. Otherwise returns "" and the argument
// builder omits UserKnownHostsFile entirely.
//
// Grounded on the teacher's atomic-write discipline elsewhere in the
// daemon (SaveTunnelState, internal/daemon/tunnel_state.go): this file is
// not written atomically since ssh itself appends to it as host keys are
// learned, but creation follows the same O_EXCL-safe pattern of never
// clobbering an existing file.
func ResolveKnownHosts(path string, useAppKnownHosts bool) (string, error) {
	if !useAppKnownHosts {
		return "", nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return path, nil
		}
		return "", fmt.Errorf("create known_hosts %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close known_hosts %s: %w", path, err)
	}
	return path, nil
}
