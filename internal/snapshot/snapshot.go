package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"courtwatch/internal/assert"
	"courtwatch/internal/components/chrono"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/internal/db"
)

const (
	report_db_query      = "db.query"
	report_store_record  = "store.record"
	report_store_purge   = "store.purge"
	report_store_records = "store.records"
)

// ErrStore wraps every persistence failure.
var ErrStore = errors.New("snapshot store failure")

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

// keyLocks serializes writers of the same court and date, writers of different
// keys only contend when they hash to the same stripe.
type keyLocks struct {
	stripes [64]sync.Mutex
}

func (l *keyLocks) lock(court, date string) func() {
	h := fnv.New32a()
	h.Write([]byte(court))
	h.Write([]byte{0})
	h.Write([]byte(date))
	mutex := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	mutex.Lock()
	return mutex.Unlock
}

// Store keeps every observation of every court and slot. A key holds one row per
// distinct status it has been seen in, repeated sightings of the same status only
// move that row's last confirmed time.
type Store struct {
	db     *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
	locks  *keyLocks
}

func NewStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		db:     db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("snapshot", tel),
		locks:  &keyLocks{},
	}
}

// RecordStats counts what a record call did to the rows of each key.
type RecordStats struct {
	Inserted  int
	Confirmed int
	Changed   int
	// Stale counts changed statuses observed before the key was last confirmed,
	// they are dropped.
	Stale int
}

func (r *RecordStats) Add(other RecordStats) {
	r.Inserted += other.Inserted
	r.Confirmed += other.Confirmed
	r.Changed += other.Changed
	r.Stale += other.Stale
}

type observation struct {
	slotKey string
	start   string
	end     string
	status  string
}

func observationsOf(court courts.Court) []observation {
	out := make([]observation, 0, len(court.Slots)+1)
	out = append(out, observation{
		slotKey: courts.SummaryKey,
		status:  string(court.Status),
	})
	for _, slot := range court.Slots {
		out = append(out, observation{
			slotKey: slot.Key(),
			start:   slot.Start,
			end:     slot.End,
			status:  string(slot.Status),
		})
	}
	return out
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

// Record stores a court and all of its slots as seen at observedAt (now when zero).
// The court is written in a single transaction so readers never see half of it.
//
// A status change observed before the current row was last confirmed arrived out
// of order and is dropped, the status sequence of a key only ever moves forward.
func (s Store) Record(ctx context.Context, court courts.Court, observedAt time.Time) (RecordStats, error) {
	if observedAt.IsZero() {
		observedAt = s.time.Now()
	}
	fingerprint := court.Fingerprint()
	seen := observedAt.Unix()

	unlock := s.locks.lock(fingerprint.Court, fingerprint.Date)
	defer unlock()

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, fmt.Errorf("make tx: %w", err))
		return RecordStats{}, storeError("begin", err)
	}
	defer discard()

	var stats RecordStats
	for _, obs := range observationsOf(court) {
		current, err := tx.GetCurrentObservation(ctx, db.GetCurrentObservationParams{
			Court:   fingerprint.Court,
			Date:    fingerprint.Date,
			SlotKey: obs.slotKey,
		})
		found := err == nil
		if err != nil && err != sql.ErrNoRows {
			s.tel.ReportBroken(report_db_query, err, "GetCurrentObservation", fingerprint.String())
			return RecordStats{}, storeError("read current", err)
		}

		if found && current.Status == obs.status {
			err = tx.ConfirmObservation(ctx, db.ConfirmObservationParams{
				ID:            current.ID,
				LastConfirmed: seen,
				Location:      court.Location,
				Capacity:      court.Capacity,
				Price:         nullString(court.Price),
			})
			if err != nil {
				s.tel.ReportBroken(report_db_query, err, "ConfirmObservation", current.ID)
				return RecordStats{}, storeError("confirm", err)
			}
			stats.Confirmed++
			continue
		}

		if found && seen < current.LastConfirmed {
			s.tel.ReportDebug(report_store_record, "stale observation", fingerprint.String(), obs.slotKey)
			stats.Stale++
			continue
		}

		if found {
			err = tx.SupersedeObservation(ctx, db.SupersedeObservationParams{
				ID:           current.ID,
				SupersededAt: sql.NullInt64{Int64: seen, Valid: true},
			})
			if err != nil {
				s.tel.ReportBroken(report_db_query, err, "SupersedeObservation", current.ID)
				return RecordStats{}, storeError("supersede", err)
			}
			stats.Changed++
		} else {
			stats.Inserted++
		}

		_, err = tx.InsertObservation(ctx, db.InsertObservationParams{
			Court:         fingerprint.Court,
			Date:          fingerprint.Date,
			SlotKey:       obs.slotKey,
			StartTime:     obs.start,
			EndTime:       obs.end,
			Sport:         string(court.Sport),
			Location:      court.Location,
			Capacity:      court.Capacity,
			Price:         nullString(court.Price),
			Status:        obs.status,
			FirstSeen:     seen,
			LastConfirmed: seen,
		})
		if err != nil {
			s.tel.ReportBroken(report_db_query, err, "InsertObservation", fingerprint.String(), obs.slotKey)
			return RecordStats{}, storeError("insert", err)
		}
	}

	err = commit()
	if err != nil {
		s.tel.ReportBroken(report_store_record, fmt.Errorf("commit: %w", err), fingerprint.String())
		return RecordStats{}, storeError("commit", err)
	}
	return stats, nil
}

// RecordAll records every court, stopping at the first failure. The stats of the
// courts written before the failure are still returned.
func (s Store) RecordAll(ctx context.Context, list []courts.Court, observedAt time.Time) (RecordStats, error) {
	if observedAt.IsZero() {
		observedAt = s.time.Now()
	}
	var total RecordStats
	for _, court := range list {
		stats, err := s.Record(ctx, court, observedAt)
		if err != nil {
			return total, err
		}
		total.Add(stats)
	}
	s.tel.ReportCount(report_store_records, int64(len(list)))
	return total, nil
}

// Filter selects courts for Query, zero values match everything.
type Filter struct {
	Sport courts.Sport
	// Location and Court match case-insensitive substrings.
	Location string
	Court    string
	Status   courts.Status
	// FromDate and ToDate are inclusive ISO dates.
	FromDate string
	ToDate   string
}

// Listing is the latest known state of a court on a date.
type Listing struct {
	Court         courts.Court
	FirstSeen     time.Time
	LastConfirmed time.Time
}

func (s Store) unix(seconds int64) time.Time {
	return time.Unix(seconds, 0).In(s.time.Location())
}

// Query returns the most recent state of every court matching the filter, along
// with the most recent state of its slots.
func (s Store) Query(ctx context.Context, filter Filter) ([]Listing, error) {
	base := db.CurrentFilter{
		Sport:    string(filter.Sport),
		Location: filter.Location,
		Court:    filter.Court,
		FromDate: filter.FromDate,
		ToDate:   filter.ToDate,
	}

	summaryFilter := base
	summaryFilter.Summary = true
	summaryFilter.Status = string(filter.Status)
	summaries, err := s.db.ListCurrentObservations(ctx, summaryFilter)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListCurrentObservations", summaryFilter)
		return nil, storeError("query courts", err)
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	slotRows, err := s.db.ListCurrentObservations(ctx, base)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListCurrentObservations", base)
		return nil, storeError("query slots", err)
	}
	slots := map[string][]courts.TimeSlot{}
	for _, row := range slotRows {
		key := row.Court + "|" + row.Date
		slots[key] = append(slots[key], courts.TimeSlot{
			Start:  row.StartTime,
			End:    row.EndTime,
			Status: courts.SlotStatus(row.Status),
		})
	}

	out := make([]Listing, 0, len(summaries))
	for _, row := range summaries {
		out = append(out, Listing{
			Court: courts.Court{
				Name:     row.Court,
				Sport:    courts.Sport(row.Sport),
				Location: row.Location,
				Capacity: row.Capacity,
				Price:    row.Price.String,
				Date:     row.Date,
				Status:   courts.Status(row.Status),
				Slots:    slots[row.Court+"|"+row.Date],
			},
			FirstSeen:     s.unix(row.FirstSeen),
			LastConfirmed: s.unix(row.LastConfirmed),
		})
	}
	return out, nil
}

// Purge deletes every row whose date is before the given ISO date and returns how
// many rows were removed.
func (s Store) Purge(ctx context.Context, before string) (int64, error) {
	if _, err := courts.NormalizeDate(before); err != nil {
		return 0, err
	}
	removed, err := s.db.DeleteObservationsBefore(ctx, before)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "DeleteObservationsBefore", before)
		return 0, storeError("purge", err)
	}
	s.tel.ReportCount(report_store_purge, removed)
	return removed, nil
}

// Stats summarizes the contents of the store.
type Stats struct {
	Observations int64
	// BySport and ByStatus count courts by their current state.
	BySport      map[courts.Sport]int64
	ByStatus     map[courts.Status]int64
	Latest       time.Time
	EarliestDate string
	LatestDate   string
	Runs         int64
}

func (s Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		BySport:  map[courts.Sport]int64{},
		ByStatus: map[courts.Status]int64{},
	}

	totals, err := s.db.GetObservationTotals(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetObservationTotals")
		return Stats{}, storeError("stats", err)
	}
	stats.Observations = totals.Total
	stats.EarliestDate = totals.EarliestDate
	stats.LatestDate = totals.LatestDate
	if totals.Latest > 0 {
		stats.Latest = s.unix(totals.Latest)
	}

	sports, err := s.db.CountCurrentBySport(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CountCurrentBySport")
		return Stats{}, storeError("stats", err)
	}
	for _, row := range sports {
		stats.BySport[courts.Sport(row.Sport)] = row.Count
	}

	statuses, err := s.db.CountCurrentByStatus(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CountCurrentByStatus")
		return Stats{}, storeError("stats", err)
	}
	for _, row := range statuses {
		stats.ByStatus[courts.Status(row.Status)] = row.Count
	}

	stats.Runs, err = s.db.CountScrapeRuns(ctx)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "CountScrapeRuns")
		return Stats{}, storeError("stats", err)
	}
	return stats, nil
}

func joinDates(dates []string) string {
	return strings.Join(dates, ",")
}
