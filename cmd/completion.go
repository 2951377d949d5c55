package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/api"
	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// profileNameCompletionFunc asks the running daemon for profile names,
// replacing the teacher's SSH-config alias scanner (cmd/completion.go)
// now that profiles, not raw ssh_config Host entries, are this domain's
// named entities.
func profileNameCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	resp, err := daemon.CallWithTimeout("list_profiles", nil, 500_000_000)
	if err != nil || !resp.OK {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var profiles []api.ProfileArg
	if err := json.Unmarshal(resp.Data, &profiles); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, cobra.ShellCompDirectiveNoFileComp
}

// activeSessionCompletionFunc completes session ids currently known to
// the daemon, for stop/get_session style commands.
func activeSessionCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	resp, err := daemon.CallWithTimeout("list_sessions", nil, 500_000_000)
	if err != nil || !resp.OK {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var sessions []api.SessionArg
	if err := json.Unmarshal(resp.Data, &sessions); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// parseTunnelFlags parses remote_bind:remote_port:local_host:local_port
// strings from --tunnel flags into TunnelArgs.
func parseTunnelFlags(raw []string) ([]api.TunnelArg, error) {
	out := make([]api.TunnelArg, 0, len(raw))
	for _, s := range raw {
		parts := strings.Split(s, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("invalid --tunnel %q, want remote_bind:remote_port:local_host:local_port", s)
		}
		remotePort, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid remote_port in %q: %w", s, err)
		}
		localPort, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid local_port in %q: %w", s, err)
		}
		out = append(out, api.TunnelArg{
			RemoteBind: parts[0],
			RemotePort: remotePort,
			LocalHost:  parts[2],
			LocalPort:  localPort,
		})
	}
	return out, nil
}

// NewCompletionCommand exposes cobra's built-in shell completion script
// generator, kept from the teacher as-is.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 "Generate shell completion script",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}
}
