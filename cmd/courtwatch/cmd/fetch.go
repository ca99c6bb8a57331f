package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/service"

	"github.com/spf13/cobra"
)

var fetchFlags struct {
	date          string
	sport         string
	location      string
	noSave        bool
	slots         bool
	availableOnly bool
	saveHTML      string
	dumpHTTP      string
}

func init() {
	flags := fetchCmd.Flags()
	flags.StringVarP(&fetchFlags.date, "date", "d", "today", "Date to search: today, tomorrow, +N, MM/DD/YYYY or YYYY-MM-DD.")
	flags.StringVarP(&fetchFlags.sport, "sport", "s", "all", "Sport to search: tennis, pickleball or all.")
	flags.StringVarP(&fetchFlags.location, "location", "l", "", "Only keep courts whose location contains this text.")
	flags.BoolVar(&fetchFlags.noSave, "no-save", false, "Do not record the results in the database.")
	flags.BoolVar(&fetchFlags.slots, "slots", false, "Print the time slots of every court.")
	flags.BoolVar(&fetchFlags.availableOnly, "available-only", false, "Only print courts and slots that can be booked.")
	flags.StringVar(&fetchFlags.saveHTML, "save-html", "", "Write the raw html of every page into this directory.")
	flags.StringVar(&fetchFlags.dumpHTTP, "dump-http", "", "Write every http request and response into this directory.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Searches the reservation site for the courts of one date.",
	Run: func(cmd *cobra.Command, args []string) {
		sports, err := parseSports(fetchFlags.sport)
		if err != nil {
			fatal("parse sport", err)
		}

		opts := scraperOptions{keepPages: fetchFlags.saveHTML != ""}
		if fetchFlags.dumpHTTP != "" {
			output, err := telemetry.NewFilesystemOutput(fetchFlags.dumpHTTP)
			if err != nil {
				fatal("create http dump directory", err)
			}
			opts.output = output
		}

		response, err := newService(opts).FetchFresh(cmd.Context(), service.FetchRequest{
			Date:     fetchFlags.date,
			Sports:   sports,
			Location: fetchFlags.location,
			Save:     !fetchFlags.noSave,
		})
		if err != nil {
			fatal("fetch courts", err)
		}

		if fetchFlags.saveHTML != "" {
			err = savePages(fetchFlags.saveHTML, response.Query.Date, response.RawPages)
			if err != nil {
				fatal("save html", err)
			}
		}

		list := response.Courts
		if fetchFlags.availableOnly {
			list = onlyAvailable(list)
		}
		renderCourts(list, nil)
		if fetchFlags.slots {
			renderSlots(list, fetchFlags.availableOnly)
		}

		fmt.Printf("%s: %d pages, stopped on %s\n", response.Query.Date, response.Pages, response.Stop)
		if response.Partial {
			fmt.Fprintf(os.Stderr, "partial result: %v\n", response.Err())
		}
		if !fetchFlags.noSave {
			fmt.Printf(
				"saved as run %d: %d new, %d changed, %d unchanged, %d out of date\n",
				response.Run.ID, response.Saved.Inserted, response.Saved.Changed,
				response.Saved.Confirmed, response.Saved.Stale,
			)
		}
		if verbose {
			for _, url := range response.RequestURLs {
				fmt.Fprintln(os.Stderr, url)
			}
		}
	},
}

func savePages(dir, date string, pages [][]byte) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	for i, page := range pages {
		path := filepath.Join(dir, fmt.Sprintf("%s-page-%02d.html", date, i+1))
		err = os.WriteFile(path, page, 0644)
		if err != nil {
			return err
		}
	}
	return nil
}
