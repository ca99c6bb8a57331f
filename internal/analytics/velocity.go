package analytics

import (
	"slices"
	"time"

	"courtwatch/internal/courts"
	"courtwatch/internal/snapshot"
)

// TransitionEvent is a slot going from Available straight to Unavailable.
type TransitionEvent struct {
	Key      courts.Fingerprint
	Sport    courts.Sport
	Location string
	// AvailableAt is when the slot was first seen available, LastAvailable is the
	// last time it was still confirmed available.
	AvailableAt   time.Time
	LastAvailable time.Time
	BookedAt      time.Time
	Duration      time.Duration
}

type VelocityReport struct {
	// Events are sorted fastest first.
	Events  []TransitionEvent
	Count   int
	Mean    time.Duration
	Fastest *TransitionEvent
	Slowest *TransitionEvent
}

// Velocity finds every adjacent Available -> Unavailable pair in the slot
// histories matching the filter. A slot first seen unavailable has no event since
// there is no telling when it became available.
func Velocity(histories []snapshot.KeyHistory, filter Filter) (VelocityReport, error) {
	selector, err := newSelector(filter, histories)
	if err != nil {
		return VelocityReport{}, err
	}

	var events []TransitionEvent
	for _, history := range histories {
		if history.Key.Slot == courts.SummaryKey {
			continue
		}
		if !selector.matches(history) || !selector.matchesSlot(history.Key.Slot) {
			continue
		}
		events = append(events, transitions(history)...)
	}
	return summarize(events), nil
}

func transitions(history snapshot.KeyHistory) []TransitionEvent {
	var out []TransitionEvent
	for i := 1; i < len(history.Entries); i++ {
		prev := history.Entries[i-1]
		next := history.Entries[i]
		if prev.Status != string(courts.SlotAvailable) || next.Status != string(courts.SlotUnavailable) {
			continue
		}
		out = append(out, TransitionEvent{
			Key:           history.Key,
			Sport:         history.Sport,
			Location:      history.Location,
			AvailableAt:   prev.FirstSeen,
			LastAvailable: prev.LastConfirmed,
			BookedAt:      next.FirstSeen,
			Duration:      next.FirstSeen.Sub(prev.FirstSeen),
		})
	}
	return out
}

func summarize(events []TransitionEvent) VelocityReport {
	report := VelocityReport{Count: len(events)}
	if len(events) == 0 {
		return report
	}

	slices.SortStableFunc(events, func(a, b TransitionEvent) int {
		if a.Duration < b.Duration {
			return -1
		}
		if a.Duration > b.Duration {
			return 1
		}
		return 0
	})

	var total time.Duration
	for _, event := range events {
		total += event.Duration
	}
	report.Events = events
	report.Mean = total / time.Duration(len(events))
	report.Fastest = &events[0]
	report.Slowest = &events[len(events)-1]
	return report
}
