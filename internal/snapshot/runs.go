package snapshot

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"courtwatch/internal/db"
)

const report_store_runs = "store.runs"

// Run is the bookkeeping row of one monitor pass.
type Run struct {
	ID       int64
	Started  time.Time
	Finished time.Time
	Dates    []string
	Pages    int
	Records  int
	Partial  bool
	Error    string
}

// StartRun creates the bookkeeping row of a run over dates.
func (s Store) StartRun(ctx context.Context, started time.Time, dates []string) (int64, error) {
	id, err := s.db.InsertScrapeRun(ctx, db.InsertScrapeRunParams{
		StartedAt: started.Unix(),
		Dates:     joinDates(dates),
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "InsertScrapeRun")
		return 0, storeError("start run", err)
	}
	return id, nil
}

// FinishRun fills in the outcome of a run created by StartRun.
func (s Store) FinishRun(ctx context.Context, run Run) error {
	err := s.db.FinishScrapeRun(ctx, db.FinishScrapeRunParams{
		ID:         run.ID,
		FinishedAt: sql.NullInt64{Int64: run.Finished.Unix(), Valid: !run.Finished.IsZero()},
		Pages:      int64(run.Pages),
		Records:    int64(run.Records),
		Partial:    run.Partial,
		Error:      nullString(run.Error),
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "FinishScrapeRun", run.ID)
		return storeError("finish run", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.ListRecentScrapeRuns(ctx, int64(limit))
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListRecentScrapeRuns")
		return nil, storeError("runs", err)
	}

	out := make([]Run, 0, len(rows))
	for _, row := range rows {
		run := Run{
			ID:      row.ID,
			Started: s.unix(row.StartedAt),
			Pages:   int(row.Pages),
			Records: int(row.Records),
			Partial: row.Partial,
			Error:   row.Error.String,
		}
		if row.Dates != "" {
			run.Dates = strings.Split(row.Dates, ",")
		}
		if row.FinishedAt.Valid {
			run.Finished = s.unix(row.FinishedAt.Int64)
		}
		out = append(out, run)
	}
	s.tel.ReportDebug(report_store_runs, len(out))
	return out, nil
}
