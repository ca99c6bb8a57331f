package cmd

import (
	"strings"

	"courtwatch/internal/courts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 10, "How many runs to list.")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(runsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarizes what the database holds.",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := newService(scraperOptions{}).Stats(cmd.Context())
		if err != nil {
			fatal("read stats", err)
		}

		latest := "never"
		if !stats.Latest.IsZero() {
			latest = stats.Latest.Format("Jan 2 2006 15:04")
		}

		t := newTable()
		t.AppendRows([]table.Row{
			{"Observations", stats.Observations},
			{"Dates", stats.EarliestDate + " to " + stats.LatestDate},
			{"Last observation", latest},
			{"Monitor runs", stats.Runs},
		})
		t.AppendSeparator()
		for _, sport := range courts.Sports {
			t.AppendRow(table.Row{string(sport) + " courts", stats.BySport[sport]})
		}
		t.AppendSeparator()
		for _, status := range []courts.Status{courts.StatusAvailable, courts.StatusBooked, courts.StatusMaintenance, courts.StatusUnknown} {
			t.AppendRow(table.Row{status.Label(), stats.ByStatus[status]})
		}
		t.Render()
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Lists the most recent monitor runs.",
	Run: func(cmd *cobra.Command, args []string) {
		runs, err := newService(scraperOptions{}).Runs(cmd.Context(), runsLimit)
		if err != nil {
			fatal("list runs", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"#", "Started", "Took", "Dates", "Pages", "Courts", "Partial", "Error"})
		for _, run := range runs {
			took := "running"
			if !run.Finished.IsZero() {
				took = run.Finished.Sub(run.Started).String()
			}
			partial := ""
			if run.Partial {
				partial = "yes"
			}
			t.AppendRow(table.Row{
				run.ID,
				run.Started.Format("Jan 2 15:04"),
				took,
				strings.Join(run.Dates, ", "),
				run.Pages,
				run.Records,
				partial,
				run.Error,
			})
		}
		t.Render()
	},
}
