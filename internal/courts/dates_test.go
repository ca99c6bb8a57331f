package courts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeClock(t *testing.T) {
	cases := []struct {
		input    string
		expected string
		fails    bool
	}{
		{input: "8:00 am", expected: "08:00"},
		{input: " 2:00 pm", expected: "14:00"},
		{input: "12:30PM", expected: "12:30"},
		{input: "12:00 am", expected: "00:00"},
		{input: "14:00", expected: "14:00"},
		{input: "9 pm", expected: "21:00"},
		{input: "", fails: true},
		{input: "noon", fails: true},
	}

	for _, test := range cases {
		out, err := NormalizeClock(test.input)
		if test.fails {
			require.Error(t, err, test.input)
			continue
		}
		require.NoError(t, err, test.input)
		require.Equal(t, test.expected, out, test.input)
	}
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := ParseTimeRange(" 2:00 pm -  3:00 pm")
	require.NoError(t, err)
	require.Equal(t, "14:00", start)
	require.Equal(t, "15:00", end)

	_, _, err = ParseTimeRange("8:00 am")
	require.Error(t, err)
}

func TestParseDateInput(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2025, time.July, 12, 15, 4, 5, 0, loc)
	midnight := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}

	cases := []struct {
		input    string
		expected time.Time
	}{
		{input: "today", expected: midnight(2025, time.July, 12)},
		{input: "", expected: midnight(2025, time.July, 12)},
		{input: "Tomorrow", expected: midnight(2025, time.July, 13)},
		{input: "yesterday", expected: midnight(2025, time.July, 11)},
		{input: "+3", expected: midnight(2025, time.July, 15)},
		{input: "-20", expected: midnight(2025, time.June, 22)},
		{input: "07/20/2025", expected: midnight(2025, time.July, 20)},
		{input: "7/4/2025", expected: midnight(2025, time.July, 4)},
		{input: "2025-12-31", expected: midnight(2025, time.December, 31)},
	}
	for _, test := range cases {
		out, err := ParseDateInput(test.input, now)
		require.NoError(t, err, test.input)
		require.True(t, test.expected.Equal(out), "%s: expected %s got %s", test.input, test.expected, out)
	}

	for _, bad := range []string{"+x", "next week", "2025-13-01"} {
		_, err := ParseDateInput(bad, now)
		require.Error(t, err, bad)
	}
}

func TestWeekdays(t *testing.T) {
	day, err := Weekday("2025-07-12")
	require.NoError(t, err)
	require.Equal(t, time.Saturday, day)

	day, err = ParseWeekday("mon")
	require.NoError(t, err)
	require.Equal(t, time.Monday, day)

	day, err = ParseWeekday("Sunday")
	require.NoError(t, err)
	require.Equal(t, time.Sunday, day)

	_, err = ParseWeekday("someday")
	require.Error(t, err)

	site, err := SiteDate("2025-07-04")
	require.NoError(t, err)
	require.Equal(t, "07/04/2025", site)
}
