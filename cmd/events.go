package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// NewEventsCommand tails the daemon's live event bus, the CLI surface
// for subscribe_events (spec §5, §7). Grounded on the teacher's
// log-streaming commands (cmd/logs.go), adapted from tunnel output
// lines to structured lifecycle events.
func NewEventsCommand() *cobra.Command {
	eventsCmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"tail", "watch"},
		Short:   "Stream session lifecycle events as they happen",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemon.Stream(func(raw json.RawMessage) {
				var ev api.EventArg
				if err := json.Unmarshal(raw, &ev); err != nil {
					return
				}
				printEvent(ev)
			})
		},
	}
	return eventsCmd
}

func printEvent(ev api.EventArg) {
	switch {
	case ev.Error != "":
		fmt.Printf("%s  %-24s %s  error=%s\n", ev.Time, ev.Kind, ev.SessionID, ev.Error)
	case ev.Line != "":
		fmt.Printf("%s  %-24s %s  %s\n", ev.Time, ev.Kind, ev.SessionID, ev.Line)
	case ev.Reason != "":
		fmt.Printf("%s  %-24s %s  reason=%s\n", ev.Time, ev.Kind, ev.SessionID, ev.Reason)
	default:
		fmt.Printf("%s  %-24s %s\n", ev.Time, ev.Kind, ev.SessionID)
	}
}
