package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"example.com/devguard/internal/api"
	"example.com/devguard/internal/domain"
)

func newScoreCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an activity window read from a JSON file.",
		Long: `score reads activity records, either a JSON array or the body of
GET /api/metrics/{id}, keeps the newest seven and prints each factor's
contribution to the burnout score. Use "-" to read stdin.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			records, err := readActivity(in)
			if err != nil {
				return err
			}
			return printAssessment(cmd.OutOrStdout(), domain.ScoringWindowOf(records))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "activity JSON file")
	return cmd
}

// readActivity accepts an array of activity views or a metrics bundle and
// returns the records newest first.
func readActivity(r io.Reader) ([]domain.ActivityRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var views []api.ActivityView
	if err := json.Unmarshal(raw, &views); err != nil {
		var bundle api.MetricsResponse
		if bundleErr := json.Unmarshal(raw, &bundle); bundleErr != nil {
			return nil, fmt.Errorf("decode activity: %w", err)
		}
		views = bundle.Activities
	}

	records := make([]domain.ActivityRecord, 0, len(views))
	for i, v := range views {
		rec, err := v.Record()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ActivityDate.Equal(records[j].ActivityDate) {
			return records[i].ID > records[j].ID
		}
		return records[i].ActivityDate.After(records[j].ActivityDate)
	})
	return records, nil
}

func printAssessment(w io.Writer, window []domain.ActivityRecord) error {
	a := domain.Score(window)
	t := a.Totals

	rows := [][]string{
		{"Work hours", strconv.FormatFloat(t.Hours, 'f', 1, 64), formatFloat(a.Factors.Hours)},
		{"Meetings", strconv.Itoa(t.Meetings), formatFloat(a.Factors.Meetings)},
		{"Pending tasks", strconv.Itoa(t.Pending), formatFloat(a.Factors.Backlog)},
		{"Output (commits+tasks)", strconv.Itoa(t.Commits + t.Tasks), formatFloat(a.Factors.Productivity)},
	}
	if err := renderTable(w, []string{"Factor", "Total", "Contribution"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Burnout score %s over %d day(s): %s\n", formatFloat(a.Score), len(window), coloredLevel(a.RiskLevel))
	return err
}
