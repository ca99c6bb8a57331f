package chrono

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule decides when the next run happens after a given time.
type Schedule = cron.Schedule

// ParseSchedule returns a schedule from a standard cron spec (5 fields or a
// descriptor like "@hourly"). When spec is empty the schedule fires every interval.
func ParseSchedule(spec string, interval time.Duration) (Schedule, error) {
	if spec != "" {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
		}
		return schedule, nil
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	if interval < time.Second {
		return fixedDelay{delay: interval}, nil
	}
	return cron.Every(interval), nil
}

// cron.Every rounds down to whole seconds, sub-second delays only show up in tests.
type fixedDelay struct {
	delay time.Duration
}

func (f fixedDelay) Next(t time.Time) time.Time {
	return t.Add(f.delay)
}
