package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"go.rsi.dev/reverse-ssh-interface/internal/core"
)

// NewRootCommand builds the CLI entry point. Grounded on the teacher's
// NewRootCommand (cmd/root.go); the viper-style InitializeConfig/
// AllSettings plumbing is gone since internal/core has no viper layer,
// replaced by creating the resolved config dir and writing a default
// config file there when none exists yet.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "rsi",
		Short: "Reverse SSH tunnel session manager",
		Long:  `rsi supervises reverse SSH tunnels as named, reconnecting sessions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{
					Level:      level,
					TimeFormat: time.DateTime,
				}),
			))

			configDir, err := core.ConfigDir()
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			if err := core.EnsureDirs(configDir); err != nil {
				return fmt.Errorf("create config dir: %w", err)
			}
			configPath := core.ConfigFilePath(configDir)
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				if err := core.Save(configPath, core.Default()); err != nil {
					return fmt.Errorf("write default config: %w", err)
				}
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "more output")

	rootCmd.AddCommand(
		NewDaemonCommand(),
		NewProfileCommand(),
		NewSessionCommand(),
		NewEventsCommand(),
		NewPasswordCommand(),
		NewAskpassCommand(),
		NewVersionCommand(),
		NewCompletionCommand(),
	)

	return rootCmd
}
