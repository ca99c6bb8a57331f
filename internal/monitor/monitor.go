package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/chrono"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/internal/scrapers/webtrac"
	"courtwatch/internal/snapshot"
)

const (
	report_monitor_run      = "monitor.run"
	report_monitor_run_once = "monitor.run-once"
	report_monitor_courts   = "monitor.courts"
)

type Config struct {
	// Interval is the time between the starts of two runs, Schedule takes
	// precedence when set.
	Interval time.Duration
	// Schedule is a standard cron spec.
	Schedule string
	// DaysAhead is how many dates are searched starting today, 2 means today and
	// tomorrow.
	DaysAhead int
	Sports    []courts.Sport
	// Location keeps only the courts whose location contains it.
	Location string
}

func DefaultConfig() Config {
	return Config{
		Interval:  10 * time.Minute,
		DaysAhead: 2,
	}
}

// Fetcher runs one paginated search, webtrac.Scraper is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, query webtrac.SearchQuery) (webtrac.FetchResult, error)
}

type Monitor struct {
	fetcher  Fetcher
	store    snapshot.Store
	time     chrono.TimeAPI
	config   Config
	schedule chrono.Schedule
	tel      telemetry.API
}

func NewMonitor(fetcher Fetcher, store snapshot.Store, time chrono.TimeAPI, config Config, tel telemetry.API) (Monitor, error) {
	assert.NotNil(fetcher)
	assert.NotNil(time)
	assert.NotNil(tel)

	if config.DaysAhead <= 0 {
		config.DaysAhead = DefaultConfig().DaysAhead
	}
	if config.Interval <= 0 && config.Schedule == "" {
		config.Interval = DefaultConfig().Interval
	}
	schedule, err := chrono.ParseSchedule(config.Schedule, config.Interval)
	if err != nil {
		return Monitor{}, err
	}

	return Monitor{
		fetcher:  fetcher,
		store:    store,
		time:     time,
		config:   config,
		schedule: schedule,
		tel:      telemetry.NewScopedAPI("monitor", tel),
	}, nil
}

// Dates returns daysAhead consecutive ISO dates starting with the day of now.
func Dates(now time.Time, daysAhead int) []string {
	if daysAhead < 1 {
		daysAhead = 1
	}
	today := chrono.StartOfDay(now)
	dates := make([]string, daysAhead)
	for i := range dates {
		dates[i] = courts.FormatDate(today.AddDate(0, 0, i))
	}
	return dates
}

// DateResult is the outcome of the search of one date within a run.
type DateResult struct {
	Date    string
	Courts  int
	Pages   int
	Partial bool
	Stats   snapshot.RecordStats
	Err     error
}

type RunResult struct {
	Run   snapshot.Run
	Dates []DateResult
	Stats snapshot.RecordStats
}

// RunOnce searches every monitored date and records what it finds.
//
// Fetch failures only mark the run partial, whatever was fetched is still stored.
// A challenge failure ends the run early since hammering the site only makes it
// worse. The returned error is non-nil only when the store fails, in which case the
// rest of the run is abandoned.
//
// Writes are not canceled with ctx so that a stop request never leaves a court
// half written.
func (m Monitor) RunOnce(ctx context.Context) (RunResult, error) {
	storeCtx := context.WithoutCancel(ctx)
	started := m.time.Now()
	dates := Dates(started, m.config.DaysAhead)

	result := RunResult{
		Run: snapshot.Run{Started: started, Dates: dates},
	}
	id, err := m.store.StartRun(storeCtx, started, dates)
	if err != nil {
		m.tel.ReportBroken(report_monitor_run_once, err)
		return result, err
	}
	result.Run.ID = id

	var errs []error
	finish := func() error {
		result.Run.Finished = m.time.Now()
		if len(errs) > 0 {
			result.Run.Error = errors.Join(errs...).Error()
		}
		return m.store.FinishRun(storeCtx, result.Run)
	}

	for _, date := range dates {
		if ctx.Err() != nil {
			result.Run.Partial = true
			errs = append(errs, fmt.Errorf("%s: %w", date, ctx.Err()))
			break
		}

		outcome, stop, err := m.runDate(ctx, storeCtx, date)
		result.Dates = append(result.Dates, outcome)
		result.Stats.Add(outcome.Stats)
		result.Run.Pages += outcome.Pages
		result.Run.Records += outcome.Courts
		if outcome.Partial {
			result.Run.Partial = true
		}
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", date, outcome.Err))
		}

		if err != nil {
			result.Run.Partial = true
			errs = append(errs, err)
			if finishErr := finish(); finishErr != nil {
				m.tel.ReportBroken(report_monitor_run_once, finishErr, id)
			}
			return result, err
		}
		if stop {
			break
		}
	}

	err = finish()
	if err != nil {
		m.tel.ReportBroken(report_monitor_run_once, err, id)
		return result, err
	}
	m.tel.ReportCount(report_monitor_courts, int64(result.Run.Records))
	return result, nil
}

// runDate fetches and stores one date. stop is set when the rest of the run should
// be skipped, err is only set for store failures.
func (m Monitor) runDate(ctx, storeCtx context.Context, date string) (outcome DateResult, stop bool, err error) {
	outcome.Date = date

	fetched, fetchErr := m.fetcher.Fetch(ctx, webtrac.SearchQuery{
		Date:   date,
		Sports: m.config.Sports,
	})
	outcome.Pages = fetched.Pages
	if fetchErr != nil {
		m.tel.ReportWarning(report_monitor_run_once, fetchErr, date)
		outcome.Partial = true
		outcome.Err = fetchErr
		stop = webtrac.IsChallengeFailure(fetchErr) || errors.Is(fetchErr, context.Canceled)
		return outcome, stop, nil
	}
	if fetched.Partial {
		outcome.Partial = true
		outcome.Err = fetched.Err()
		stop = fetched.Stop == webtrac.StopCanceled
	}

	list := courts.AtLocation(fetched.Courts, m.config.Location)
	outcome.Courts = len(list)
	if len(list) == 0 {
		m.tel.ReportWarning(report_monitor_run_once, "no courts retrieved", date)
		return outcome, stop, nil
	}

	outcome.Stats, err = m.store.RecordAll(storeCtx, list, m.time.Now())
	if err != nil {
		return outcome, true, err
	}
	m.tel.ReportDebug(
		report_monitor_run_once,
		date,
		telemetry.KV{Key: "courts", Value: len(list)},
		telemetry.KV{Key: "changed", Value: outcome.Stats.Changed},
	)
	return outcome, stop, nil
}

// Run calls RunOnce on the schedule until ctx is done. Store failures are reported
// and the monitor waits for the next run. onRun, when not nil, receives the outcome
// of every run.
func (m Monitor) Run(ctx context.Context, onRun func(RunResult, error)) error {
	telemetry.InstrumentPerfStats(ctx)

	for {
		runStart := m.time.Now()
		result, err := m.RunOnce(ctx)
		if err != nil {
			m.tel.ReportBroken(report_monitor_run, err)
		}
		if onRun != nil {
			onRun(result, err)
		}
		if ctx.Err() != nil {
			return nil
		}

		now := m.time.Now()
		next := m.schedule.Next(runStart)
		if !next.After(now) {
			m.tel.ReportWarning(
				report_monitor_run,
				"run took longer than the interval",
				now.Sub(runStart).String(),
			)
			next = m.schedule.Next(now)
		}

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}
