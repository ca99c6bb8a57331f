package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"courtwatch/internal/monitor"

	"github.com/spf13/cobra"
)

var monitorFlags struct {
	interval  int
	schedule  string
	daysAhead int
	sport     string
	location  string
	once      bool
}

func init() {
	flags := monitorCmd.Flags()
	flags.IntVarP(&monitorFlags.interval, "interval", "i", 0, "Minutes between polls (default: monitor.interval_minutes from the config).")
	flags.StringVar(&monitorFlags.schedule, "schedule", "", "Cron spec to poll on instead of a fixed interval.")
	flags.IntVar(&monitorFlags.daysAhead, "days-ahead", 0, "Number of dates to poll starting today (default: monitor.days_ahead from the config).")
	flags.StringVarP(&monitorFlags.sport, "sport", "s", "", "Sport to poll: tennis, pickleball or all.")
	flags.StringVarP(&monitorFlags.location, "location", "l", "", "Only record courts whose location contains this text.")
	flags.BoolVar(&monitorFlags.once, "once", false, "Poll once and exit.")
	rootCmd.AddCommand(monitorCmd)
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Polls the reservation site on a schedule and records every change.",
	Run: func(cmd *cobra.Command, args []string) {
		config, err := app.config.monitorConfig()
		if err != nil {
			fatal("read monitor config", err)
		}
		if monitorFlags.interval > 0 {
			config.Interval = time.Duration(monitorFlags.interval) * time.Minute
			config.Schedule = ""
		}
		if monitorFlags.schedule != "" {
			config.Schedule = monitorFlags.schedule
		}
		if monitorFlags.daysAhead > 0 {
			config.DaysAhead = monitorFlags.daysAhead
		}
		if monitorFlags.sport != "" {
			config.Sports, err = parseSports(monitorFlags.sport)
			if err != nil {
				fatal("parse sport", err)
			}
		}
		if monitorFlags.location != "" {
			config.Location = monitorFlags.location
		}

		m, err := monitor.NewMonitor(newScraper(scraperOptions{}), app.store, app.clock, config, app.tel)
		if err != nil {
			fatal("create monitor", err)
		}

		if monitorFlags.once {
			result, err := m.RunOnce(cmd.Context())
			printRun(result, err)
			if err != nil {
				fatal("poll", err)
			}
			return
		}

		slog.Info(
			"monitor started",
			"interval", config.Interval,
			"schedule", config.Schedule,
			"days_ahead", config.DaysAhead,
			"location", config.Location,
		)
		polls := 0
		saved := 0
		err = m.Run(cmd.Context(), func(result monitor.RunResult, err error) {
			polls++
			saved += result.Stats.Inserted + result.Stats.Changed
			printRun(result, err)
		})
		if err != nil {
			fatal("monitor", err)
		}
		slog.Info("monitor stopped", "polls", polls, "changes_recorded", saved)
	},
}

func printRun(result monitor.RunResult, err error) {
	fmt.Printf("poll #%d at %s\n", result.Run.ID, result.Run.Started.Format("15:04:05"))
	for _, date := range result.Dates {
		switch {
		case date.Err != nil && date.Courts == 0:
			fmt.Printf("  %s: failed: %v\n", date.Date, date.Err)
		case date.Partial:
			fmt.Printf("  %s: %d courts (partial: %v)\n", date.Date, date.Courts, date.Err)
		default:
			fmt.Printf(
				"  %s: %d courts, %d new, %d changed\n",
				date.Date, date.Courts, date.Stats.Inserted, date.Stats.Changed,
			)
		}
	}
	if err != nil {
		fmt.Printf("  not saved: %v\n", err)
	}
}
