package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, time.July, 12, 8, 3, 0, 0, loc)

	cases := []struct {
		spec     string
		interval time.Duration
		expected time.Time
	}{
		{spec: "", interval: 10 * time.Minute, expected: now.Add(10 * time.Minute)},
		{spec: "*/15 * * * *", expected: time.Date(2025, time.July, 12, 8, 15, 0, 0, loc)},
		{spec: "@hourly", expected: time.Date(2025, time.July, 12, 9, 0, 0, 0, loc)},
		{spec: "", interval: 50 * time.Millisecond, expected: now.Add(50 * time.Millisecond)},
	}

	for _, test := range cases {
		schedule, err := ParseSchedule(test.spec, test.interval)
		require.NoError(t, err)
		require.Equal(t, test.expected, schedule.Next(now), test.spec)
	}

	_, err = ParseSchedule("", 0)
	require.Error(t, err)
	_, err = ParseSchedule("not a cron spec", 0)
	require.Error(t, err)
}
