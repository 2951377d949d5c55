package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// NewProfileCommand groups profile CRUD, the CLI surface for spec §3 and
// the create_profile/list_profiles/get_profile/delete_profile ops of
// spec §5. Grounded on the teacher's NewStartCommand/NewStatusCommand
// shape (cmd/start.go, cmd/status.go) adapted from free-text SSH config
// aliases to structured profiles.
func NewProfileCommand() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage connection profiles",
	}

	profileCmd.AddCommand(
		newProfileListCommand(),
		newProfileGetCommand(),
		newProfileCreateCommand(),
		newProfileDeleteCommand(),
	)
	return profileCmd
}

func newProfileListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved profiles",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := daemon.Call("list_profiles", nil)
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			var profiles []api.ProfileArg
			if err := json.Unmarshal(resp.Data, &profiles); err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Println("No profiles configured.")
				return nil
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "NAME\tENDPOINT\tTUNNELS")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s@%s\t%d\n", p.Name, p.User, p.Host, len(p.Tunnels))
			}
			return tw.Flush()
		},
	}
}

func newProfileGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "get <name>",
		Short:             "Show one profile as JSON",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := daemon.Call("get_profile", map[string]string{"name": args[0]})
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Println(string(resp.Data))
			return nil
		},
	}
}

func newProfileCreateCommand() *cobra.Command {
	var (
		host, user, authMethod, authPath string
		port                             int
		tunnels                          []string
		autoReconnect                    bool
		maxReconnectAttempts             int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile",
		Long:  `Create a profile. Tunnels are given as remote_bind:remote_port:local_host:local_port, repeatable.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedTunnels, err := parseTunnelFlags(tunnels)
			if err != nil {
				return err
			}
			arg := api.ProfileArg{
				Name:                 args[0],
				Host:                 host,
				Port:                 port,
				User:                 user,
				Auth:                 api.AuthArg{Method: authMethod, Path: authPath},
				Tunnels:              parsedTunnels,
				AutoReconnect:        &autoReconnect,
				MaxReconnectAttempts: maxReconnectAttempts,
			}
			resp, err := daemon.Call("create_profile", arg)
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Printf("Profile %q created.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "SSH server host (required)")
	cmd.Flags().IntVar(&port, "port", 22, "SSH server port")
	cmd.Flags().StringVar(&user, "user", "", "SSH user (required)")
	cmd.Flags().StringVar(&authMethod, "auth-method", "agent", "auth method: agent, key_file, or password")
	cmd.Flags().StringVar(&authPath, "auth-key-path", "", "private key path, for auth-method=key_file")
	cmd.Flags().StringArrayVar(&tunnels, "tunnel", nil, "remote_bind:remote_port:local_host:local_port")
	cmd.Flags().BoolVar(&autoReconnect, "auto-reconnect", true, "reconnect automatically on disconnect")
	cmd.Flags().IntVar(&maxReconnectAttempts, "max-reconnect-attempts", 0, "0 means unlimited")
	cmd.MarkFlagRequired("host")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newProfileDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "delete <name>",
		Aliases:           []string{"del", "rm"},
		Short:             "Delete a profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := daemon.Call("delete_profile", map[string]string{"name": args[0]})
			if err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			if !resp.OK {
				return fmt.Errorf("%s", resp.Error)
			}
			fmt.Printf("Profile %q deleted.\n", args[0])
			return nil
		},
	}
}
