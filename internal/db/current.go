package db

import (
	"context"
	"strings"
)

// CurrentFilter narrows ListCurrentObservations, zero values match everything.
type CurrentFilter struct {
	Sport string
	// Location and Court match case-insensitive substrings.
	Location string
	Court    string
	Status   string
	FromDate string
	ToDate   string
	// Summary selects court level rows when true and slot rows otherwise.
	Summary bool
}

func (f CurrentFilter) where() (string, []any) {
	clauses := []string{"superseded_at is null"}
	var args []any

	if f.Summary {
		clauses = append(clauses, "slot_key = ?")
	} else {
		clauses = append(clauses, "slot_key != ?")
	}
	args = append(args, SummaryKey)

	if f.Sport != "" {
		clauses = append(clauses, "sport = ?")
		args = append(args, f.Sport)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.FromDate != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.ToDate)
	}
	if f.Location != "" {
		clauses = append(clauses, "lower(location) like ?")
		args = append(args, "%"+strings.ToLower(f.Location)+"%")
	}
	if f.Court != "" {
		clauses = append(clauses, "lower(court) like ?")
		args = append(args, "%"+strings.ToLower(f.Court)+"%")
	}
	return strings.Join(clauses, " and "), args
}

// ListCurrentObservations returns the current row of every key matching the filter.
// It is written by hand since the set of predicates depends on the filter.
func (q *Queries) ListCurrentObservations(ctx context.Context, filter CurrentFilter) ([]Observation, error) {
	where, args := filter.where()
	query := `select id, court, date, slot_key, start_time, end_time, sport, location, capacity, price, status, first_seen, last_confirmed, superseded_at
from observation
where ` + where + `
order by date, sport, court, start_time, slot_key`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Observation
	for rows.Next() {
		var i Observation
		if err := rows.Scan(
			&i.ID,
			&i.Court,
			&i.Date,
			&i.SlotKey,
			&i.StartTime,
			&i.EndTime,
			&i.Sport,
			&i.Location,
			&i.Capacity,
			&i.Price,
			&i.Status,
			&i.FirstSeen,
			&i.LastConfirmed,
			&i.SupersededAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
