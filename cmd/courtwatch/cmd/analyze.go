package cmd

import (
	"fmt"
	"time"

	"courtwatch/internal/analytics"
	"courtwatch/internal/courts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var analyzeFlags struct {
	sport    string
	location string
	court    string
	slot     string
	day      string
	date     string
	days     int
	top      int
}

func init() {
	flags := analyzeCmd.PersistentFlags()
	flags.StringVarP(&analyzeFlags.sport, "sport", "s", "all", "Sport: tennis, pickleball or all.")
	flags.StringVarP(&analyzeFlags.location, "location", "l", "", "Location, close misspellings are matched.")
	flags.StringVar(&analyzeFlags.court, "court", "", "Court name, close misspellings are matched.")
	flags.StringVar(&analyzeFlags.slot, "slot", "", `Time slot, either a range ("6:00 pm - 7:00 pm") or its start.`)
	flags.StringVar(&analyzeFlags.day, "day", "", "Day of the week.")
	flags.StringVar(&analyzeFlags.date, "date", "", "A single date.")
	flags.IntVar(&analyzeFlags.days, "days", 0, "Lookback window in days (default: analytics.lookback_days from the config).")
	velocityCmd.Flags().IntVar(&analyzeFlags.top, "top", 10, "How many of the fastest bookings to list.")

	analyzeCmd.AddCommand(velocityCmd)
	analyzeCmd.AddCommand(availabilityCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func analyticsFilter() (analytics.Filter, time.Duration) {
	sports, err := parseSports(analyzeFlags.sport)
	if err != nil {
		fatal("parse sport", err)
	}
	filter := analytics.Filter{
		Location: analyzeFlags.location,
		Court:    analyzeFlags.court,
		TimeSlot: analyzeFlags.slot,
		Date:     dateFlag(analyzeFlags.date),
	}
	if len(sports) == 1 {
		filter.Sport = sports[0]
	}
	if analyzeFlags.day != "" {
		day, err := courts.ParseWeekday(analyzeFlags.day)
		if err != nil {
			fatal("parse day", err)
		}
		filter.DayOfWeek = &day
	}

	lookback := app.config.lookback()
	if analyzeFlags.days > 0 {
		lookback = time.Duration(analyzeFlags.days) * 24 * time.Hour
	}
	return filter, lookback
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d >= 24*time.Hour {
		days := d / (24 * time.Hour)
		return fmt.Sprintf("%dd%s", days, (d - days*24*time.Hour).String())
	}
	return d.String()
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Derives booking statistics from the recorded history.",
}

var velocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Measures how long time slots stay available before they are booked.",
	Run: func(cmd *cobra.Command, args []string) {
		filter, lookback := analyticsFilter()
		report, err := newService(scraperOptions{}).AnalyzeVelocity(cmd.Context(), filter, lookback)
		if err != nil {
			fatal("analyze velocity", err)
		}
		if report.Count == 0 {
			fmt.Println("no slot was seen going from available to booked in this window")
			return
		}

		summary := newTable()
		summary.AppendRows([]table.Row{
			{"Bookings", report.Count},
			{"Mean time to booking", formatDuration(report.Mean)},
			{"Fastest", fmt.Sprintf("%s (%s %s %s)", formatDuration(report.Fastest.Duration), report.Fastest.Key.Court, report.Fastest.Key.Date, report.Fastest.Key.Slot)},
			{"Slowest", fmt.Sprintf("%s (%s %s %s)", formatDuration(report.Slowest.Duration), report.Slowest.Key.Court, report.Slowest.Key.Date, report.Slowest.Key.Slot)},
		})
		summary.Render()

		t := newTable()
		t.SetTitle("Fastest bookings")
		t.AppendHeader(table.Row{"Court", "Location", "Date", "Slot", "Available at", "Booked within"})
		for i, event := range report.Events {
			if i >= analyzeFlags.top {
				break
			}
			t.AppendRow(table.Row{
				event.Key.Court,
				event.Location,
				event.Key.Date,
				event.Key.Slot,
				event.AvailableAt.Format("Jan 2 15:04"),
				formatDuration(event.Duration),
			})
		}
		t.Render()
	},
}

var availabilityCmd = &cobra.Command{
	Use:   "availability",
	Short: "Shows how often courts are available on each day of the week.",
	Run: func(cmd *cobra.Command, args []string) {
		filter, lookback := analyticsFilter()
		report, err := newService(scraperOptions{}).AnalyzeAvailability(cmd.Context(), filter, lookback)
		if err != nil {
			fatal("analyze availability", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Day", "Available", "Booked", "Excluded", "Availability"})
		for _, day := range report.Days {
			percent := "no data"
			if day.Defined {
				percent = fmt.Sprintf("%.1f%%", day.Percent)
			}
			t.AppendRow(table.Row{day.Day, day.Available, day.Booked, day.Excluded, percent})
		}
		t.Render()
	},
}
