package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/devguard/internal/outbox"
	"example.com/devguard/internal/persistence/postgres"
)

func newDLQCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead-lettered outbox events.",
	}
	cmd.AddCommand(newDLQReplayCommand())
	return cmd
}

func newDLQReplayCommand() *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Run one replay pass over due dead-letter entries.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if batch <= 0 {
				batch = cfg.DLQ.BatchSize
			}
			pool, err := postgres.NewPool(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer pool.Close()

			stats, runErr := outbox.NewReplayer(pool, cfg.DLQ.MaxRetries, cfg.DLQ.BaseDelay, logger).RunOnce(cmd.Context(), batch)
			if err := printReplayStats(cmd, stats); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "entries to handle (defaults to DLQ_BATCH_SIZE)")
	return cmd
}

func printReplayStats(cmd *cobra.Command, stats outbox.ReplayStats) error {
	rows := [][]string{
		{"requeued", strconv.Itoa(stats.Requeued)},
		{"retrying", strconv.Itoa(stats.Retrying)},
		{"quarantined", strconv.Itoa(stats.Quarantined)},
	}
	if err := renderTable(cmd.OutOrStdout(), []string{"Outcome", "Entries"}, rows); err != nil {
		return fmt.Errorf("render replay stats: %w", err)
	}
	return nil
}
