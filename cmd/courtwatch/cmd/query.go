package cmd

import (
	"time"

	"courtwatch/internal/courts"
	"courtwatch/internal/snapshot"

	"github.com/spf13/cobra"
)

var queryFlags struct {
	sport         string
	location      string
	court         string
	status        string
	from          string
	to            string
	slots         bool
	availableOnly bool
}

func init() {
	flags := queryCmd.Flags()
	flags.StringVarP(&queryFlags.sport, "sport", "s", "all", "Sport: tennis, pickleball or all.")
	flags.StringVarP(&queryFlags.location, "location", "l", "", "Only courts whose location contains this text.")
	flags.StringVar(&queryFlags.court, "court", "", "Only courts whose name contains this text.")
	flags.StringVar(&queryFlags.status, "status", "", "Only courts in this status: available, booked, maintenance or unknown.")
	flags.StringVar(&queryFlags.from, "from", "", "First date to include (today, +N, MM/DD/YYYY, ...).")
	flags.StringVar(&queryFlags.to, "to", "", "Last date to include.")
	flags.BoolVar(&queryFlags.slots, "slots", false, "Print the time slots of every court.")
	flags.BoolVar(&queryFlags.availableOnly, "available-only", false, "Only print courts and slots that can be booked.")
	rootCmd.AddCommand(queryCmd)
}

// dateFlag resolves a date flag to an ISO date, empty stays empty.
func dateFlag(value string) string {
	if value == "" {
		return ""
	}
	date, err := courts.ParseDateInput(value, app.clock.Now())
	if err != nil {
		fatal("parse date", err)
	}
	return courts.FormatDate(date)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Prints the latest recorded state of the courts.",
	Run: func(cmd *cobra.Command, args []string) {
		sports, err := parseSports(queryFlags.sport)
		if err != nil {
			fatal("parse sport", err)
		}
		status, err := courts.ParseStatus(queryFlags.status)
		if err != nil {
			fatal("parse status", err)
		}
		filter := snapshot.Filter{
			Location: queryFlags.location,
			Court:    queryFlags.court,
			Status:   status,
			FromDate: dateFlag(queryFlags.from),
			ToDate:   dateFlag(queryFlags.to),
		}
		if len(sports) == 1 {
			filter.Sport = sports[0]
		}

		listings, err := newService(scraperOptions{}).QueryHistory(cmd.Context(), filter)
		if err != nil {
			fatal("query courts", err)
		}
		if queryFlags.availableOnly {
			var available []snapshot.Listing
			for _, listing := range listings {
				if listing.Court.AvailableSlots() > 0 {
					available = append(available, listing)
				}
			}
			listings = available
		}

		list := make([]courts.Court, len(listings))
		for i, listing := range listings {
			list[i] = listing.Court
		}
		renderCourts(list, func(i int) time.Time {
			return listings[i].LastConfirmed
		})
		if queryFlags.slots {
			renderSlots(list, queryFlags.availableOnly)
		}
	},
}
