package analytics

import (
	"time"

	"courtwatch/internal/courts"
	"courtwatch/internal/snapshot"
)

type DayAvailability struct {
	Day       time.Weekday
	Available int
	Booked    int
	// Excluded counts maintenance and unknown observations.
	Excluded int
	// Percent is only meaningful when Defined is set.
	Percent float64
	Defined bool
}

// AvailabilityReport is indexed by time.Weekday.
type AvailabilityReport struct {
	Days [7]DayAvailability
}

func (r AvailabilityReport) Day(day time.Weekday) DayAvailability {
	return r.Days[day]
}

// Availability partitions the observations matching the filter by the weekday of
// the date they describe. Court level observations are used unless the filter names
// a time slot, in which case the observations of that slot are.
func Availability(histories []snapshot.KeyHistory, filter Filter) (AvailabilityReport, error) {
	selector, err := newSelector(filter, histories)
	if err != nil {
		return AvailabilityReport{}, err
	}
	bySlot := selector.filter.TimeSlot != ""

	var report AvailabilityReport
	for day := range report.Days {
		report.Days[day].Day = time.Weekday(day)
	}

	for _, history := range histories {
		summary := history.Key.Slot == courts.SummaryKey
		if !bySlot && !summary {
			continue
		}
		if bySlot && (summary || !selector.matchesSlot(history.Key.Slot)) {
			continue
		}
		if !selector.matches(history) {
			continue
		}
		weekday, err := courts.Weekday(history.Key.Date)
		if err != nil {
			continue
		}

		day := &report.Days[weekday]
		for _, entry := range history.Entries {
			switch entry.Status {
			// courts and slots share the Available status
			case string(courts.StatusAvailable):
				day.Available++
			case string(courts.StatusBooked), string(courts.SlotUnavailable):
				day.Booked++
			default:
				day.Excluded++
			}
		}
	}

	for i := range report.Days {
		day := &report.Days[i]
		counted := day.Available + day.Booked
		if counted == 0 {
			continue
		}
		day.Defined = true
		day.Percent = float64(day.Available) * 100 / float64(counted)
	}
	return report, nil
}
