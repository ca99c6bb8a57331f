package service

import (
	"context"
	"fmt"
	"time"

	"courtwatch/internal/analytics"
	"courtwatch/internal/assert"
	"courtwatch/internal/components/chrono"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/internal/scrapers/webtrac"
	"courtwatch/internal/snapshot"
)

const (
	report_service_fetch_fresh = "service.fetch-fresh"
	report_service_purge       = "service.purge"
)

// FetchAPI runs one paginated search of the reservation site.
//
// note: fault injection point
type FetchAPI interface {
	Fetch(ctx context.Context, query webtrac.SearchQuery) (webtrac.FetchResult, error)
}

// Service is everything the command line needs from the core, callers only ever
// pass filters in and get plain data back.
type Service struct {
	fetch FetchAPI
	store snapshot.Store
	time  chrono.TimeAPI
	tel   telemetry.API
}

type serviceConfig struct {
	time chrono.TimeAPI
	tel  telemetry.API
}

type Option func(cfg *serviceConfig)

func WithCustomTimeAPI(time chrono.TimeAPI) Option {
	return func(cfg *serviceConfig) {
		cfg.time = time
	}
}

func WithCustomTelemetryAPI(tel telemetry.API) Option {
	return func(cfg *serviceConfig) {
		cfg.tel = tel
	}
}

func NewService(fetch FetchAPI, store snapshot.Store, options ...Option) (Service, error) {
	assert.NotNil(fetch)

	cfg := serviceConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.time == nil {
		standard, err := chrono.NewStandardImpl("")
		if err != nil {
			return Service{}, err
		}
		cfg.time = standard
	}
	if cfg.tel == nil {
		cfg.tel = telemetry.SlogAPI{}
	}

	return Service{
		fetch: fetch,
		store: store,
		time:  cfg.time,
		tel:   telemetry.NewScopedAPI("service", cfg.tel),
	}, nil
}

// Now is the current time in the facility's time zone.
func (s Service) Now() time.Time {
	return s.time.Now()
}

type FetchRequest struct {
	// Date is anything courts.ParseDateInput accepts, empty means today.
	Date   string
	Sports []courts.Sport
	// Location keeps only the courts whose location contains it.
	Location string
	// Save records the fetched courts in the store.
	Save bool
}

type FetchResponse struct {
	webtrac.FetchResult
	Saved snapshot.RecordStats
	// Run is the bookkeeping row written for a saved fetch, zero otherwise.
	Run snapshot.Run
}

// FetchFresh searches the site for one date. A partial result is returned with a
// nil error, see webtrac.Paginator.Run.
//
// A saved fetch is bookkept as a run like the ones of the monitor, so partial
// results stay flagged in the store.
func (s Service) FetchFresh(ctx context.Context, req FetchRequest) (FetchResponse, error) {
	started := s.time.Now()
	date, err := courts.ParseDateInput(req.Date, started)
	if err != nil {
		return FetchResponse{}, err
	}
	isoDate := courts.FormatDate(date)

	storeCtx := context.WithoutCancel(ctx)
	var run snapshot.Run
	if req.Save {
		run = snapshot.Run{Started: started, Dates: []string{isoDate}}
		run.ID, err = s.store.StartRun(storeCtx, started, run.Dates)
		if err != nil {
			return FetchResponse{}, err
		}
	}
	finish := func(response *FetchResponse, runErr error) error {
		if !req.Save {
			return nil
		}
		run.Finished = s.time.Now()
		run.Pages = response.Pages
		run.Records = len(response.Courts)
		run.Partial = response.Partial || runErr != nil
		if runErr != nil {
			run.Error = runErr.Error()
		} else if pageErr := response.Err(); pageErr != nil {
			run.Error = pageErr.Error()
		}
		response.Run = run
		err := s.store.FinishRun(storeCtx, run)
		if err != nil {
			s.tel.ReportBroken(report_service_fetch_fresh, err, run.ID)
		}
		return err
	}

	result, err := s.fetch.Fetch(ctx, webtrac.SearchQuery{
		Date:   isoDate,
		Sports: req.Sports,
	})
	if err != nil {
		s.tel.ReportWarning(report_service_fetch_fresh, err, isoDate)
		response := FetchResponse{FetchResult: result}
		finish(&response, err)
		return response, err
	}
	result.Courts = courts.AtLocation(result.Courts, req.Location)

	response := FetchResponse{FetchResult: result}
	if req.Save && len(result.Courts) > 0 {
		// the courts were seen when the last page arrived, not when the search began
		response.Saved, err = s.store.RecordAll(storeCtx, result.Courts, s.time.Now())
		if err != nil {
			finish(&response, err)
			return response, err
		}
	}
	err = finish(&response, nil)
	if err != nil {
		return response, err
	}
	return response, nil
}

// QueryHistory returns the latest stored state of every court matching the filter.
func (s Service) QueryHistory(ctx context.Context, filter snapshot.Filter) ([]snapshot.Listing, error) {
	return s.store.Query(ctx, filter)
}

// History returns the status changes of one court or slot within the last lookback.
func (s Service) History(ctx context.Context, key courts.Fingerprint, lookback time.Duration) ([]snapshot.Entry, error) {
	window := snapshot.Window{}
	if lookback > 0 {
		window = analytics.Lookback(s.time.Now(), lookback)
	}
	return s.store.History(ctx, key, window)
}

func (s Service) histories(ctx context.Context, filter analytics.Filter, lookback time.Duration) ([]snapshot.KeyHistory, analytics.Filter, error) {
	filter, err := filter.Validate()
	if err != nil {
		return nil, analytics.Filter{}, err
	}
	from, to := filter.DateRange()
	histories, err := s.store.Histories(ctx, from, to, analytics.Lookback(s.time.Now(), lookback))
	if err != nil {
		return nil, analytics.Filter{}, err
	}
	return histories, filter, nil
}

// AnalyzeVelocity measures how long slots stayed available within the lookback
// window (30 days when lookback is not positive).
func (s Service) AnalyzeVelocity(ctx context.Context, filter analytics.Filter, lookback time.Duration) (analytics.VelocityReport, error) {
	histories, filter, err := s.histories(ctx, filter, lookback)
	if err != nil {
		return analytics.VelocityReport{}, err
	}
	return analytics.Velocity(histories, filter)
}

// AnalyzeAvailability computes availability by day of week within the lookback window.
func (s Service) AnalyzeAvailability(ctx context.Context, filter analytics.Filter, lookback time.Duration) (analytics.AvailabilityReport, error) {
	histories, filter, err := s.histories(ctx, filter, lookback)
	if err != nil {
		return analytics.AvailabilityReport{}, err
	}
	return analytics.Availability(histories, filter)
}

// Purge removes every observation of a date more than days before today.
func (s Service) Purge(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("retention must not be negative, got %d days", days)
	}
	before := courts.FormatDate(chrono.StartOfDay(s.time.Now()).AddDate(0, 0, -days))
	removed, err := s.store.Purge(ctx, before)
	if err != nil {
		return 0, err
	}
	s.tel.ReportDebug(report_service_purge, before, removed)
	return removed, nil
}

func (s Service) Stats(ctx context.Context) (snapshot.Stats, error) {
	return s.store.Stats(ctx)
}

func (s Service) Runs(ctx context.Context, limit int) ([]snapshot.Run, error) {
	return s.store.Runs(ctx, limit)
}
