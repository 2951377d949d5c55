package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/secretstore"
)

// NewPasswordCommand manages stored profile passwords through
// internal/secretstore, grounded on the teacher's NewPasswordCommand
// (cmd/password.go), adapted from SSH config aliases to profile names
// and from internal/keyring directly to the secretstore wrapper.
func NewPasswordCommand() *cobra.Command {
	passwordCmd := &cobra.Command{
		Use:     "password",
		Aliases: []string{"passwd", "pass"},
		Short:   "Manage stored passwords for profiles",
		Long:    `Store and delete passwords for profiles using auth method "password". Passwords are stored in the OS-native keyring.`,
	}

	setCmd := &cobra.Command{
		Use:               "set <profile>",
		Short:             "Store a password for a profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			password, err := secretstore.PromptAndConfirmPassword(name)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := secretstore.Set(name, password); err != nil {
				return fmt.Errorf("store password: %w", err)
			}
			slog.Info(fmt.Sprintf("password stored for %q", name))
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:               "delete <profile>",
		Aliases:           []string{"del", "remove", "rm"},
		Short:             "Delete a stored password for a profile",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: profileNameCompletionFunc,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := secretstore.Delete(name); err != nil {
				return fmt.Errorf("delete password: %w", err)
			}
			slog.Info(fmt.Sprintf("password deleted for %q", name))
			return nil
		},
	}

	passwordCmd.AddCommand(setCmd, deleteCmd)
	return passwordCmd
}
