package snapshot

import (
	"context"
	"database/sql"
	"time"

	"courtwatch/internal/courts"
	"courtwatch/internal/db"
)

// Entry is one status a key was in and how long it was seen in it.
type Entry struct {
	Status        string
	FirstSeen     time.Time
	LastConfirmed time.Time
}

// Window bounds entries by observation time, a zero bound is open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) overlaps(firstSeen int64, supersededAt sql.NullInt64) bool {
	if !w.To.IsZero() && firstSeen > w.To.Unix() {
		return false
	}
	if !w.From.IsZero() && supersededAt.Valid && supersededAt.Int64 < w.From.Unix() {
		return false
	}
	return true
}

func (s Store) entry(row db.Observation) Entry {
	return Entry{
		Status:        row.Status,
		FirstSeen:     s.unix(row.FirstSeen),
		LastConfirmed: s.unix(row.LastConfirmed),
	}
}

// History returns the statuses of one key ordered by when they were first seen,
// restricted to the entries that were current at some point within the window.
func (s Store) History(ctx context.Context, key courts.Fingerprint, window Window) ([]Entry, error) {
	key = courts.NewFingerprint(key.Court, key.Date, key.Slot)
	rows, err := s.db.GetObservationHistory(ctx, db.GetObservationHistoryParams{
		Court:   key.Court,
		Date:    key.Date,
		SlotKey: key.Slot,
	})
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "GetObservationHistory", key.String())
		return nil, storeError("history", err)
	}

	var out []Entry
	for _, row := range rows {
		if !window.overlaps(row.FirstSeen, row.SupersededAt) {
			continue
		}
		out = append(out, s.entry(row))
	}
	return out, nil
}

// KeyHistory is the history of one key along with the attributes of its court.
type KeyHistory struct {
	Key      courts.Fingerprint
	Sport    courts.Sport
	Location string
	Start    string
	End      string
	Entries  []Entry
}

// Histories returns the history of every key whose date is within [fromDate,
// toDate] and that has at least one entry overlapping the window. Keys are ordered
// by court, date and slot.
func (s Store) Histories(ctx context.Context, fromDate, toDate string, window Window) ([]KeyHistory, error) {
	params := db.ListObservationsInWindowParams{
		FromDate: fromDate,
		ToDate:   toDate,
		Until:    window.To.Unix(),
	}
	if fromDate == "" {
		params.FromDate = "0000-00-00"
	}
	if toDate == "" {
		params.ToDate = "9999-99-99"
	}
	if window.To.IsZero() {
		params.Until = 1<<62 - 1
	}
	if !window.From.IsZero() {
		params.Since = sql.NullInt64{Int64: window.From.Unix(), Valid: true}
	} else {
		params.Since = sql.NullInt64{Int64: -(1 << 62), Valid: true}
	}

	rows, err := s.db.ListObservationsInWindow(ctx, params)
	if err != nil {
		s.tel.ReportBroken(report_db_query, err, "ListObservationsInWindow", params)
		return nil, storeError("histories", err)
	}

	var out []KeyHistory
	var current *KeyHistory
	for _, row := range rows {
		// rows are sorted by key so a key's entries are next to each other
		key := courts.Fingerprint{Court: row.Court, Date: row.Date, Slot: row.SlotKey}
		if current == nil || current.Key != key {
			out = append(out, KeyHistory{Key: key})
			current = &out[len(out)-1]
		}
		// the latest row carries the most recent attributes of the court
		current.Sport = courts.Sport(row.Sport)
		current.Location = row.Location
		current.Start = row.StartTime
		current.End = row.EndTime
		current.Entries = append(current.Entries, s.entry(row))
	}
	return out, nil
}
