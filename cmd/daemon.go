package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// NewDaemonCommand runs the daemon in the foreground. daemon.StartDetached
// launches this exact invocation in the background; the command itself
// never forks. Grounded on the teacher's NewDaemonCommand (cmd/daemon.go).
func NewDaemonCommand() *cobra.Command {
	var foreground bool

	daemonCmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the session manager daemon",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := core.ConfigDir()
			if err != nil {
				return err
			}

			d, err := daemon.New(configDir, slog.Default())
			if err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return d.Run(ctx)
		},
	}
	daemonCmd.Flags().BoolVar(&foreground, "foreground", false, "run without detaching (the only supported mode)")

	return daemonCmd
}
