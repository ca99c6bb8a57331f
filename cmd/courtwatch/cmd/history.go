package cmd

import (
	"fmt"
	"time"

	"courtwatch/internal/courts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyDays int

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "Only show statuses seen within this many days, 0 shows everything.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <court> <date> [time slot]",
	Short: "Prints every status a court, or one of its time slots, has been seen in.",
	Args:  cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		slot := ""
		if len(args) == 3 {
			start, end, err := courts.ParseTimeRange(args[2])
			if err != nil {
				fatal("parse time slot", err)
			}
			slot = courts.TimeSlot{Start: start, End: end}.Key()
		}
		key := courts.NewFingerprint(args[0], dateFlag(args[1]), slot)

		entries, err := newService(scraperOptions{}).History(
			cmd.Context(),
			key,
			time.Duration(historyDays)*24*time.Hour,
		)
		if err != nil {
			fatal("read history", err)
		}

		t := newTable()
		t.SetTitle(fmt.Sprintf("%s %s %s", key.Court, key.Date, key.Slot))
		t.AppendHeader(table.Row{"Status", "First seen", "Last confirmed", "Held for"})
		for i, entry := range entries {
			heldFor := "-"
			if i+1 < len(entries) {
				heldFor = entries[i+1].FirstSeen.Sub(entry.FirstSeen).Round(time.Minute).String()
			}
			t.AppendRow(table.Row{
				entry.Status,
				entry.FirstSeen.Format("Jan 2 15:04"),
				entry.LastConfirmed.Format("Jan 2 15:04"),
				heldFor,
			})
		}
		t.Render()
	},
}
