package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"courtwatch/internal/courts"
	"courtwatch/internal/snapshot"

	"github.com/antzucaro/matchr"
)

// ErrInvalidFilter is returned when a filter contradicts itself or holds a value
// that can never match.
var ErrInvalidFilter = errors.New("invalid filter")

const DefaultLookback = 30 * 24 * time.Hour

// similarityThreshold is the Jaro-Winkler score a location or court name must
// reach to match a mistyped query.
const similarityThreshold = 0.9

// Filter narrows the keys an analysis runs over, zero values match everything.
type Filter struct {
	Sport courts.Sport
	// Location and Court match case-insensitive substrings, or names close enough
	// to the query.
	Location string
	Court    string
	// TimeSlot is either a slot key ("18:00-19:00") or just its start ("18:00").
	TimeSlot  string
	DayOfWeek *time.Weekday
	// Date is an ISO date.
	Date string
}

// Validate normalizes the filter and rejects contradictory combinations.
func (f Filter) Validate() (Filter, error) {
	if f.Sport != "" {
		sport, err := courts.ParseSport(string(f.Sport))
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s", ErrInvalidFilter, err.Error())
		}
		f.Sport = sport
	}

	if f.TimeSlot != "" {
		slot, err := normalizeSlot(f.TimeSlot)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: time slot: %s", ErrInvalidFilter, err.Error())
		}
		f.TimeSlot = slot
	}

	if f.Date != "" {
		date, err := courts.NormalizeDate(f.Date)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s", ErrInvalidFilter, err.Error())
		}
		f.Date = date
		if f.DayOfWeek != nil {
			weekday, _ := courts.Weekday(date)
			if weekday != *f.DayOfWeek {
				return Filter{}, fmt.Errorf(
					"%w: %s is a %s, not a %s",
					ErrInvalidFilter, date, weekday, *f.DayOfWeek,
				)
			}
		}
	}
	return f, nil
}

func normalizeSlot(value string) (string, error) {
	if strings.Contains(value, "-") {
		start, end, err := courts.ParseTimeRange(value)
		if err != nil {
			return "", err
		}
		return courts.TimeSlot{Start: start, End: end}.Key(), nil
	}
	return courts.NormalizeClock(value)
}

// DateRange is the inclusive range of dates the filter can match, empty bounds
// are open.
func (f Filter) DateRange() (string, string) {
	return f.Date, f.Date
}

// nameMatcher resolves a query against the names that are actually present.
// Names containing the query win, otherwise the closest names scoring above the
// threshold are taken so that a misspelled query does not match every similar name.
func nameMatcher(query string, names map[string]struct{}) func(string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return func(string) bool { return true }
	}

	matched := map[string]bool{}
	for name := range names {
		if strings.Contains(strings.ToLower(name), query) {
			matched[name] = true
		}
	}
	if len(matched) == 0 {
		best := similarityThreshold
		for name := range names {
			similarity := matchr.JaroWinkler(query, strings.ToLower(name), false)
			switch {
			case similarity > best:
				best = similarity
				clear(matched)
				matched[name] = true
			case similarity == best:
				matched[name] = true
			}
		}
	}
	return func(name string) bool {
		return matched[name]
	}
}

// selector is a validated filter bound to the names of the histories it selects from.
type selector struct {
	filter   Filter
	location func(string) bool
	court    func(string) bool
}

func newSelector(filter Filter, histories []snapshot.KeyHistory) (selector, error) {
	filter, err := filter.Validate()
	if err != nil {
		return selector{}, err
	}
	locations := map[string]struct{}{}
	names := map[string]struct{}{}
	for _, history := range histories {
		locations[history.Location] = struct{}{}
		names[history.Key.Court] = struct{}{}
	}
	return selector{
		filter:   filter,
		location: nameMatcher(filter.Location, locations),
		court:    nameMatcher(filter.Court, names),
	}, nil
}

func (s selector) matchesSlot(key string) bool {
	if s.filter.TimeSlot == "" {
		return true
	}
	if key == s.filter.TimeSlot {
		return true
	}
	start, _, ok := strings.Cut(key, "-")
	return ok && start == s.filter.TimeSlot
}

// matches applies every predicate except the time slot, which only makes sense
// for slot keys.
func (s selector) matches(history snapshot.KeyHistory) bool {
	f := s.filter
	if f.Sport != "" && history.Sport != f.Sport {
		return false
	}
	if f.Date != "" && history.Key.Date != f.Date {
		return false
	}
	if f.DayOfWeek != nil {
		weekday, err := courts.Weekday(history.Key.Date)
		if err != nil || weekday != *f.DayOfWeek {
			return false
		}
	}
	return s.location(history.Location) && s.court(history.Key.Court)
}

// Lookback is the window of the last lookback before now, DefaultLookback when
// lookback is not positive.
func Lookback(now time.Time, lookback time.Duration) snapshot.Window {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return snapshot.Window{From: now.Add(-lookback), To: now}
}
