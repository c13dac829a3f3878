package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/devguard/internal/api"
	"example.com/devguard/internal/app"
	"example.com/devguard/internal/domain"
)

func newTrendCommand() *cobra.Command {
	var (
		developerID int64
		rangeName   string
		asCSV       bool
	)
	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Print a developer's daily activity trend.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rng, err := domain.ParseTrendRange(rangeName)
			if err != nil {
				return err
			}
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			service := domain.NewService(store.Repo, domain.WithStoreTimeout(cfg.Store.Timeout))
			points, err := service.Trend(cmd.Context(), developerID, rng)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asCSV {
				return api.WriteTrendCSV(out, points)
			}
			rows := make([][]string, 0, len(points))
			for _, p := range points {
				rows = append(rows, []string{
					p.Date.Format(domain.DateLayout),
					strconv.Itoa(p.Commits),
					strconv.Itoa(p.PullRequests),
					strconv.Itoa(p.TasksCompleted),
					strconv.Itoa(p.Meetings),
					strconv.FormatFloat(p.WorkHours, 'f', 1, 64),
				})
			}
			if err := renderTable(out, []string{"Date", "Commits", "PRs", "Tasks", "Meetings", "Hours"}, rows); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d day(s) shown, %s range\n", len(points), rng)
			return err
		},
	}
	cmd.Flags().Int64Var(&developerID, "developer", 0, "developer id, 0 for the whole team")
	cmd.Flags().StringVar(&rangeName, "range", "week", "week or month")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}
