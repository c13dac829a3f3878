package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"example.com/devguard/internal/persistence/migrations"
)

func newMigrateCommand() *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dsn == "" {
				cfg, _, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dsn = cfg.Database.DSN
			}
			applied, err := migrations.UpDSN(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "applied migrations %v\n", applied)
			return err
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "database DSN (defaults to DATABASE_DSN)")
	return cmd
}
