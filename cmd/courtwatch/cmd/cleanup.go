package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupDays int

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "Keep this many days of history (default: retention.days from the config).")
	rootCmd.AddCommand(cleanupCmd)
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Deletes the observations of dates older than the retention period.",
	Run: func(cmd *cobra.Command, args []string) {
		days := app.config.Retention.Days
		if cleanupDays > 0 {
			days = cleanupDays
		}
		removed, err := newService(scraperOptions{}).Purge(cmd.Context(), days)
		if err != nil {
			fatal("purge", err)
		}
		fmt.Printf("removed %d observations older than %d days\n", removed, days)
	},
}
