package courts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is how dates are stored and compared.
	DateLayout = "2006-01-02"
	// SiteDateLayout is how the reservation site reads and writes dates.
	SiteDateLayout = "01/02/2006"
)

// FormatDate formats t as an ISO calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// SiteDate converts an ISO date into the site's MM/DD/YYYY form.
func SiteDate(date string) (string, error) {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", err
	}
	return parsed.Format(SiteDateLayout), nil
}

// NormalizeDate accepts either ISO or MM/DD/YYYY (single digit month and day allowed)
// and returns the ISO form.
func NormalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{DateLayout, SiteDateLayout, "1/2/2006"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD or MM/DD/YYYY)", value)
}

// ParseDateInput resolves user supplied dates: "today", "now", "tomorrow",
// "yesterday", "+N" / "-N" days relative to now, or an absolute date. The result is
// midnight of that day in now's location.
func ParseDateInput(input string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	value := strings.ToLower(strings.TrimSpace(input))
	switch value {
	case "", "today", "now":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
		days, err := strconv.Atoi(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid relative date %q: %w", input, err)
		}
		return today.AddDate(0, 0, days), nil
	}

	iso, err := NormalizeDate(value)
	if err != nil {
		return time.Time{}, err
	}
	parsed, err := time.ParseInLocation(DateLayout, iso, now.Location())
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

// NormalizeClock turns "8:00 am", " 2:00 pm", "12:30PM" or "14:00" into 24h "HH:MM".
func NormalizeClock(value string) (string, error) {
	value = strings.ToLower(strings.Join(strings.Fields(value), ""))
	value = strings.ReplaceAll(value, ".", "")
	if value == "" {
		return "", fmt.Errorf("empty clock time")
	}
	for _, layout := range []string{"3:04pm", "3pm", "15:04"} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.Format("15:04"), nil
		}
	}
	return "", fmt.Errorf("invalid clock time %q", value)
}

// ParseTimeRange splits "8:00 am - 9:00 am" into normalized start and end clocks.
func ParseTimeRange(value string) (start, end string, err error) {
	startRaw, endRaw, found := strings.Cut(value, "-")
	if !found {
		return "", "", fmt.Errorf("invalid time range %q", value)
	}
	start, err = NormalizeClock(startRaw)
	if err != nil {
		return "", "", err
	}
	end, err = NormalizeClock(endRaw)
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

// Weekday returns the day of the week of an ISO date.
func Weekday(date string) (time.Weekday, error) {
	parsed, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, err
	}
	return parsed.Weekday(), nil
}

// ParseWeekday accepts full or three letter english day names.
func ParseWeekday(value string) (time.Weekday, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if value == name || value == name[:3] {
			return day, nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", value)
}
