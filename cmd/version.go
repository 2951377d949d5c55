package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// NewVersionCommand reports client and, if reachable, daemon version,
// warning on a mismatch. Grounded on the teacher's NewVersionCommand
// (cmd/version.go).
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and daemon version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			clientVersion := core.Version
			fmt.Fprintf(os.Stderr, "Client version: %s\n", core.FormatVersion(clientVersion))

			resp, err := daemon.CallWithTimeout("version", nil, 0)
			if err != nil || !resp.OK {
				fmt.Fprintln(os.Stderr, "Daemon: not running")
				return
			}

			var versionData map[string]string
			if json.Unmarshal(resp.Data, &versionData) != nil {
				return
			}
			daemonVersion := versionData["version"]
			fmt.Fprintf(os.Stderr, "Daemon version: %s\n", core.FormatVersion(daemonVersion))
			if clientVersion != daemonVersion {
				slog.Warn(fmt.Sprintf("version mismatch: client %s, daemon %s; consider restarting the daemon", clientVersion, daemonVersion))
			}
		},
	}
}
