package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// NewSessionCommand groups session lifecycle control, the CLI surface
// for the start_session/stop_session/stop_all/list_sessions/get_session
// ops of spec §5. Grounded on the teacher's NewStartCommand/NewStopCommand/
// NewStatusCommand (cmd/start.go, cmd/stop.go, cmd/status.go).
func NewSessionCommand() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Start, stop and inspect tunnel sessions",
	}
	sessionCmd.AddCommand(
		newSessionStartCommand(),
		newSessionStopCommand(),
		newSessionListCommand(),
		newSessionHistoryCommand(),
	)
	return sessionCmd
}

func newSessionStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "start <profile>",
		Short:             "Start a session for a profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := daemon.EnsureRunning(); err != nil {
				return fmt.Errorf("start daemon: %w", err)
			}
			resp, err := daemon.Call("start_session", map[string]string{"profile_name": args[0]})
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			var id string
			json.Unmarshal(resp.Data, &id)
			fmt.Printf("Session %s started for profile %q.\n", id, args[0])
			return nil
		},
	}
}

func newSessionStopCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:               "stop [session-id]",
		Aliases:           []string{"disconnect"},
		Short:             "Stop one session, or all with --all",
		Args:              cobra.RangeArgs(0, 1),
		ValidArgsFunction: activeSessionCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				resp, err := daemon.Call("stop_all", nil)
				if err != nil {
					return fmt.Errorf("connect to daemon: %w", err)
				}
				if !resp.OK {
					return fmt.Errorf("%s", resp.Error)
				}
				fmt.Println("All sessions stopped.")
				return nil
			}
			if len(args) != 1 {
				return fmt.Errorf("stop requires a session id, or --all")
			}
			resp, err := daemon.Call("stop_session", map[string]string{"id": args[0]})
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Printf("Session %s stopped.\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "stop every active session")
	return cmd
}

func newSessionListCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "status"},
		Short:   "List active sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := daemon.Call("list_sessions", nil)
			if err != nil {
				fmt.Println("No active sessions (daemon is not running).")
				return nil
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			if format == "json" {
				fmt.Println(string(resp.Data))
				return nil
			}
			var sessions []api.SessionArg
			if err := json.Unmarshal(resp.Data, &sessions); err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No active sessions.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tPROFILE\tSTATUS\tPID\tRECONNECTS")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", s.ID, s.ProfileName, s.Status, s.PID, s.ReconnectCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&format, "format", "F", "text", "output format: text or json")
	return cmd
}

func newSessionHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:               "history [profile]",
		Short:             "Show recorded session lifecycle events",
		Args:              cobra.RangeArgs(0, 1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			profileName := ""
			if len(args) == 1 {
				profileName = args[0]
			}
			resp, err := daemon.Call("query_history", map[string]any{
				"profile_name": profileName,
				"limit":        limit,
			})
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			var rows []api.HistoryArg
			if err := json.Unmarshal(resp.Data, &rows); err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No recorded events.")
				return nil
			}
			for _, r := range rows {
				fmt.Printf("%s\t%s\t%s\t%s\n", r.Timestamp, r.ProfileName, r.Kind, r.Detail)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows to show")
	return cmd
}
