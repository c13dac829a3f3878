// Package cli implements devguardctl, the operator command line for devguard.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"example.com/devguard/internal/app"
	"example.com/devguard/internal/config"
)

// NewRootCommand builds the devguardctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "devguardctl",
		Short:         "Operate and inspect a devguard deployment.",
		Long:          `devguardctl scores activity windows offline, applies schema migrations, prints trends and replays dead-lettered events.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	root.AddCommand(
		newScoreCommand(),
		newMigrateCommand(),
		newTrendCommand(),
		newDLQCommand(),
	)
	return root
}

// loadConfig reads the same configuration as the servers; logs go to stderr
// so stdout stays machine readable.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cmd.ErrOrStderr(), cfg.Log), nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: app.ParseLevel(cfg.Level)}))
}

// Execute runs devguardctl with os.Args.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
