package chrono

import "time"

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in the facility's time zone.
	Now() time.Time
	// Location returns the facility's time zone, the reservation site reports
	// wall-clock times in this zone.
	Location() *time.Location
}

// StandardImpl is the standard implementation of TimeAPI using the standard library.
type StandardImpl struct {
	location *time.Location
}

// NewStandardImpl loads the named IANA time zone, an empty name means America/New_York.
func NewStandardImpl(zone string) (StandardImpl, error) {
	if zone == "" {
		zone = "America/New_York"
	}
	location, err := time.LoadLocation(zone)
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FixedImpl always returns the same instant, it is meant for tests.
type FixedImpl struct {
	At time.Time
}

func (f *FixedImpl) Now() time.Time {
	return f.At
}

func (f *FixedImpl) Location() *time.Location {
	return f.At.Location()
}

// Advance moves the fixed clock forward.
func (f *FixedImpl) Advance(d time.Duration) {
	f.At = f.At.Add(d)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
