package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"example.com/devguard/internal/domain"
)

var (
	highColor   = color.New(color.FgRed, color.Bold)
	mediumColor = color.New(color.FgYellow, color.Bold)
	lowColor    = color.New(color.FgGreen)
)

// coloredLevel renders a risk level in its traffic-light colour. fatih/color
// drops the escapes when stdout is not a terminal.
func coloredLevel(level domain.RiskLevel) string {
	switch level {
	case domain.RiskHigh:
		return highColor.Sprint(string(level))
	case domain.RiskMedium:
		return mediumColor.Sprint(string(level))
	default:
		return lowColor.Sprint(string(level))
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.3f", v)
}
