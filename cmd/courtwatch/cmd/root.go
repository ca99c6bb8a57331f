package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"courtwatch/internal/components/chrono"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/db"
	"courtwatch/internal/scrapers/webtrac"
	"courtwatch/internal/service"
	"courtwatch/internal/snapshot"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

// app holds everything the commands share, it is filled in before any command runs.
var app struct {
	config    Config
	clock     chrono.TimeAPI
	tel       telemetry.API
	db        *sql.DB
	store     snapshot.Store
	telemetry telemetry.Telemetry
}

var rootCmd = &cobra.Command{
	Use:   "courtwatch",
	Short: "courtwatch tracks the availability of the tennis and pickleball courts of the City of Doral.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(os.Stderr, verbose)

		config, path, err := loadConfig(configPath)
		if err != nil {
			fatal("read config", err)
		}
		if path != "" {
			slog.Debug("loaded config", "path", path)
		}
		app.config = config

		app.telemetry, err = telemetry.Setup(cmd.Context(), "courtwatch", config.Telemetry)
		if err != nil {
			fatal("setup telemetry", err)
		}
		app.tel = telemetry.NewMeterAPI(telemetry.SlogAPI{})

		clock, err := chrono.NewStandardImpl(config.Facility.TimeZone)
		if err != nil {
			fatal("load facility time zone", err)
		}
		app.clock = clock

		app.db, err = config.Database.OpenDB(cmd.Context(), db.Schema)
		if err != nil {
			fatal("open database", err)
		}
		app.store = snapshot.NewStore(app.db, app.clock, app.tel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.db != nil {
			app.db.Close()
		}
		err := app.telemetry.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default: courtwatch.json5 in this or a parent directory).")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

type scraperOptions struct {
	keepPages bool
	output    telemetry.MessageOutput
}

func newScraper(opts scraperOptions) webtrac.Scraper {
	extract, err := app.config.extractOptions()
	if err != nil {
		fatal("read extract options", err)
	}
	session := app.config.sessionConfig()
	session.Output = opts.output
	pagination := app.config.paginationConfig()
	pagination.KeepPages = opts.keepPages

	return webtrac.NewScraper(session, extract, pagination, app.tel)
}

func newService(opts scraperOptions) service.Service {
	svc, err := service.NewService(
		newScraper(opts),
		app.store,
		service.WithCustomTimeAPI(app.clock),
		service.WithCustomTelemetryAPI(app.tel),
	)
	if err != nil {
		fatal("create service", err)
	}
	return svc
}
