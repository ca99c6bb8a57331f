package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"courtwatch/internal/components/chrono"
	"courtwatch/internal/components/telemetry"
	"courtwatch/internal/courts"
	"courtwatch/internal/db"
	"courtwatch/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, time.July, 12, 8, 0, 0, 0, time.UTC)

func setup(t testing.TB) (Store, *sql.DB, *telemetry.RecordingAPI) {
	sqlite := testutil.OpenDB(t, db.Schema)

	rec := &telemetry.RecordingAPI{}
	store := NewStore(sqlite, &chrono.FixedImpl{At: t0}, rec)
	return store, sqlite, rec
}

func countRows(t testing.TB, sqlite *sql.DB) int {
	var count int
	err := sqlite.QueryRow("select count(*) from observation").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}
	return count
}

func tennisCourt(date string, first, second courts.SlotStatus) courts.Court {
	court := courts.Court{
		Name:     "DCP Tennis Court 1",
		Sport:    courts.SportTennis,
		Location: "Doral Central Park",
		Capacity: "4",
		Price:    "$10.00",
		Date:     date,
		Slots: []courts.TimeSlot{
			{Start: "08:00", End: "09:00", Status: first},
			{Start: "09:00", End: "10:00", Status: second},
		},
	}
	court.Status = courts.StatusBooked
	if first == courts.SlotAvailable || second == courts.SlotAvailable {
		court.Status = courts.StatusAvailable
	}
	return court
}

func pickleballCourt(date string) courts.Court {
	return courts.Court{
		Name:     "Doral Legacy Pickleball Court 3",
		Sport:    courts.SportPickleball,
		Location: "Doral Legacy Park",
		Capacity: "4",
		Date:     date,
		Status:   courts.StatusBooked,
		Slots: []courts.TimeSlot{
			{Start: "18:00", End: "19:00", Status: courts.SlotUnavailable},
		},
	}
}

func TestRecordIsIdempotent(t *testing.T) {
	store, sqlite, rec := setup(t)
	ctx := context.Background()

	page := []courts.Court{
		tennisCourt("2025-07-12", courts.SlotAvailable, courts.SlotUnavailable),
		pickleballCourt("2025-07-12"),
	}

	stats, err := store.RecordAll(ctx, page, t0)
	require.NoError(t, err)
	require.Equal(t, RecordStats{Inserted: 5}, stats)

	stats, err = store.RecordAll(ctx, page, t0)
	require.NoError(t, err)
	require.Equal(t, RecordStats{Confirmed: 5}, stats)

	require.Equal(t, 5, countRows(t, sqlite))
	require.Empty(t, rec.Reports("broken", ""))
}

func TestHistoryAppendsOnChange(t *testing.T) {
	store, sqlite, _ := setup(t)
	ctx := context.Background()
	date := "2025-07-13"

	steps := []struct {
		at     time.Time
		status courts.SlotStatus
	}{
		{at: t0, status: courts.SlotAvailable},
		{at: t0.Add(10 * time.Minute), status: courts.SlotAvailable},
		{at: t0.Add(45 * time.Minute), status: courts.SlotUnavailable},
		{at: t0.Add(55 * time.Minute), status: courts.SlotUnavailable},
		{at: t0.Add(90 * time.Minute), status: courts.SlotAvailable},
	}
	for _, step := range steps {
		_, err := store.Record(ctx, tennisCourt(date, step.status, courts.SlotUnavailable), step.at)
		require.NoError(t, err)
	}

	history, err := store.History(ctx, courts.NewFingerprint("DCP Tennis Court 1", date, "08:00-09:00"), Window{})
	require.NoError(t, err)

	expected := []Entry{
		{Status: "Available", FirstSeen: t0, LastConfirmed: t0.Add(10 * time.Minute)},
		{Status: "Unavailable", FirstSeen: t0.Add(45 * time.Minute), LastConfirmed: t0.Add(55 * time.Minute)},
		{Status: "Available", FirstSeen: t0.Add(90 * time.Minute), LastConfirmed: t0.Add(90 * time.Minute)},
	}
	if diff := cmp.Diff(expected, history); diff != "" {
		t.Fatal(diff)
	}

	// the second slot never changed, the summary went Available -> Booked -> Available
	require.Equal(t, 3+1+3, countRows(t, sqlite))

	windowed, err := store.History(ctx, courts.NewFingerprint("DCP Tennis Court 1", date, "08:00-09:00"), Window{
		From: t0.Add(60 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 2)
	require.Equal(t, "Unavailable", windowed[0].Status)
}

func TestRecordDropsOutOfOrderChanges(t *testing.T) {
	store, sqlite, _ := setup(t)
	ctx := context.Background()
	date := "2025-07-13"
	key := courts.NewFingerprint("DCP Tennis Court 1", date, "08:00-09:00")

	_, err := store.Record(ctx, tennisCourt(date, courts.SlotUnavailable, courts.SlotUnavailable), t0.Add(10*time.Minute))
	require.NoError(t, err)

	// a slower writer that observed the page five minutes earlier
	stats, err := store.Record(ctx, tennisCourt(date, courts.SlotAvailable, courts.SlotUnavailable), t0.Add(5*time.Minute))
	require.NoError(t, err)
	require.Equal(t, RecordStats{Confirmed: 1, Stale: 2}, stats)
	require.Equal(t, 3, countRows(t, sqlite))

	history, err := store.History(ctx, key, Window{})
	require.NoError(t, err)
	expected := []Entry{
		{Status: "Unavailable", FirstSeen: t0.Add(10 * time.Minute), LastConfirmed: t0.Add(10 * time.Minute)},
	}
	if diff := cmp.Diff(expected, history); diff != "" {
		t.Fatal(diff)
	}

	listings, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, courts.StatusBooked, listings[0].Court.Status)
	require.Equal(t, courts.SlotUnavailable, listings[0].Court.Slots[0].Status)
	require.True(t, listings[0].LastConfirmed.Equal(t0.Add(10*time.Minute)))

	stats, err = store.Record(ctx, tennisCourt(date, courts.SlotAvailable, courts.SlotUnavailable), t0.Add(20*time.Minute))
	require.NoError(t, err)
	require.Equal(t, RecordStats{Confirmed: 1, Changed: 2}, stats)

	history, err = store.History(ctx, key, Window{})
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "Unavailable", history[0].Status)
	require.Equal(t, "Available", history[1].Status)
}

func TestQueryFilters(t *testing.T) {
	store, _, _ := setup(t)
	ctx := context.Background()

	_, err := store.RecordAll(ctx, []courts.Court{
		tennisCourt("2025-07-12", courts.SlotAvailable, courts.SlotUnavailable),
		pickleballCourt("2025-07-12"),
		pickleballCourt("2025-07-14"),
	}, t0)
	require.NoError(t, err)

	listings, err := store.Query(ctx, Filter{Sport: courts.SportTennis})
	require.NoError(t, err)
	require.Len(t, listings, 1)
	require.Equal(t, "DCP Tennis Court 1", listings[0].Court.Name)
	require.Equal(t, "$10.00", listings[0].Court.Price)
	require.Equal(t, []courts.TimeSlot{
		{Start: "08:00", End: "09:00", Status: courts.SlotAvailable},
		{Start: "09:00", End: "10:00", Status: courts.SlotUnavailable},
	}, listings[0].Court.Slots)
	require.True(t, listings[0].LastConfirmed.Equal(t0))

	cases := []struct {
		filter   Filter
		expected int
	}{
		{filter: Filter{}, expected: 3},
		{filter: Filter{Location: "legacy"}, expected: 2},
		{filter: Filter{Court: "tennis court"}, expected: 1},
		{filter: Filter{Status: courts.StatusBooked}, expected: 2},
		{filter: Filter{Status: courts.StatusMaintenance}, expected: 0},
		{filter: Filter{FromDate: "2025-07-13"}, expected: 1},
		{filter: Filter{FromDate: "2025-07-12", ToDate: "2025-07-12"}, expected: 2},
		{filter: Filter{Sport: courts.SportPickleball, ToDate: "2025-07-13"}, expected: 1},
	}
	for i, test := range cases {
		listings, err := store.Query(ctx, test.filter)
		require.NoError(t, err)
		require.Len(t, listings, test.expected, "case %d", i)
	}
}

func TestPurge(t *testing.T) {
	store, sqlite, _ := setup(t)
	ctx := context.Background()

	_, err := store.RecordAll(ctx, []courts.Court{
		pickleballCourt("2025-06-01"),
		pickleballCourt("2025-06-02"),
		pickleballCourt("2025-07-12"),
	}, t0)
	require.NoError(t, err)

	removed, err := store.Purge(ctx, "2025-07-01")
	require.NoError(t, err)
	require.EqualValues(t, 4, removed)

	removed, err = store.Purge(ctx, "2025-07-01")
	require.NoError(t, err)
	require.EqualValues(t, 0, removed)
	require.Equal(t, 2, countRows(t, sqlite))

	_, err = store.Purge(ctx, "last month")
	require.Error(t, err)
}

func TestConcurrentWriters(t *testing.T) {
	store, sqlite, _ := setup(t)
	ctx := context.Background()

	errs := make(chan error, 4*10*2)
	var wg sync.WaitGroup
	for writer := 0; writer < 4; writer++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				status := courts.SlotAvailable
				if (i+writer)%2 == 0 {
					status = courts.SlotUnavailable
				}
				at := t0.Add(time.Duration(i*4+writer) * time.Minute)

				// every writer hits the same court and a court of its own
				_, err := store.Record(ctx, tennisCourt("2025-07-12", status, status), at)
				errs <- err
				_, err = store.Record(ctx, pickleballCourt(fmt.Sprintf("2025-07-%02d", 20+writer)), at)
				errs <- err
			}
		}(writer)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var current int
	err := sqlite.QueryRow(`select count(*) from observation where superseded_at is null`).Scan(&current)
	require.NoError(t, err)
	// 3 keys for the shared court, 2 keys for each writer's own court
	require.Equal(t, 3+4*2, current)

	// writers arrive out of order, the status sequence of a key still only moves forward
	var backwards int
	err = sqlite.QueryRow(`select count(*) from observation where superseded_at < last_confirmed`).Scan(&backwards)
	require.NoError(t, err)
	require.Zero(t, backwards)

	// a writer's own court never changes so it is only ever confirmed
	var ownRows int
	err = sqlite.QueryRow(`select count(*) from observation where date >= '2025-07-20'`).Scan(&ownRows)
	require.NoError(t, err)
	require.Equal(t, 4*2, ownRows)
}

func TestStatsAndRuns(t *testing.T) {
	store, _, _ := setup(t)
	ctx := context.Background()

	_, err := store.RecordAll(ctx, []courts.Court{
		tennisCourt("2025-07-12", courts.SlotAvailable, courts.SlotUnavailable),
		pickleballCourt("2025-07-12"),
		pickleballCourt("2025-07-13"),
	}, t0)
	require.NoError(t, err)

	id, err := store.StartRun(ctx, t0, []string{"2025-07-12", "2025-07-13"})
	require.NoError(t, err)
	err = store.FinishRun(ctx, Run{
		ID:       id,
		Finished: t0.Add(time.Minute),
		Pages:    3,
		Records:  3,
		Partial:  true,
		Error:    "page 3: request timed out",
	})
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 7, stats.Observations)
	require.Equal(t, map[courts.Sport]int64{courts.SportTennis: 1, courts.SportPickleball: 2}, stats.BySport)
	require.Equal(t, map[courts.Status]int64{courts.StatusAvailable: 1, courts.StatusBooked: 2}, stats.ByStatus)
	require.True(t, stats.Latest.Equal(t0))
	require.Equal(t, "2025-07-12", stats.EarliestDate)
	require.Equal(t, "2025-07-13", stats.LatestDate)
	require.EqualValues(t, 1, stats.Runs)

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, []string{"2025-07-12", "2025-07-13"}, runs[0].Dates)
	require.True(t, runs[0].Partial)
	require.Equal(t, 3, runs[0].Pages)
	require.True(t, runs[0].Finished.Equal(t0.Add(time.Minute)))
}

func TestHistories(t *testing.T) {
	store, _, _ := setup(t)
	ctx := context.Background()

	_, err := store.Record(ctx, tennisCourt("2025-07-12", courts.SlotAvailable, courts.SlotAvailable), t0)
	require.NoError(t, err)
	_, err = store.Record(ctx, tennisCourt("2025-07-12", courts.SlotUnavailable, courts.SlotAvailable), t0.Add(45*time.Minute))
	require.NoError(t, err)
	_, err = store.Record(ctx, pickleballCourt("2025-07-20"), t0)
	require.NoError(t, err)

	histories, err := store.Histories(ctx, "2025-07-01", "2025-07-15", Window{})
	require.NoError(t, err)
	require.Len(t, histories, 3)
	require.Equal(t, "08:00-09:00", histories[0].Key.Slot)
	require.Len(t, histories[0].Entries, 2)
	require.Equal(t, "08:00", histories[0].Start)
	require.Equal(t, courts.SportTennis, histories[0].Sport)
	require.Equal(t, "09:00-10:00", histories[1].Key.Slot)
	require.Len(t, histories[1].Entries, 1)
	require.Equal(t, courts.SummaryKey, histories[2].Key.Slot)

	later, err := store.Histories(ctx, "", "", Window{From: t0.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, later, 5)
	// the slot stopped being available before the window opened
	require.Equal(t, "08:00-09:00", later[0].Key.Slot)
	require.Len(t, later[0].Entries, 1)
	require.Equal(t, "Unavailable", later[0].Entries[0].Status)

	none, err := store.Histories(ctx, "", "", Window{To: t0.Add(-time.Minute)})
	require.NoError(t, err)
	require.Empty(t, none)
}
