package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/daemon"
)

// RunAskpass is the SSH_ASKPASS helper body, spec §9: ssh invokes the
// binary directly (SSH_ASKPASS is pointed at it by
// internal/sshexec.ConfigureAskpass) with the prompt text on argv and
// expects the password on stdout. The profile name and one-shot token
// travel through the environment rather than argv, since ssh controls
// argv. main.go calls this before cobra parsing runs, since ssh's
// invocation never includes an "askpass" subcommand word. Grounded on
// the teacher's NewAskpassCommand (cmd/askpass.go).
func RunAskpass() int {
	token := os.Getenv("RSI_ASKPASS_TOKEN")
	if token == "" {
		return 1
	}

	resp, err := daemon.Call("askpass", map[string]string{"token": token})
	if err != nil || !resp.OK {
		return 1
	}

	var result struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil || result.Password == "" {
		return 1
	}

	fmt.Println(result.Password)
	return 0
}

// NewAskpassCommand exposes RunAskpass as a regular subcommand too, for
// manual testing; ssh itself never invokes this form.
func NewAskpassCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "askpass",
		Short:  "Internal SSH_ASKPASS helper (do not call directly)",
		Hidden: true,
		Args:   cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(RunAskpass())
		},
	}
}
