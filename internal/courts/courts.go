// Package courts holds the data model shared by the scraper, the snapshot store and
// the analytics engine.
package courts

import (
	"fmt"
	"strings"
)

type Sport string

const (
	SportTennis     Sport = "Tennis"
	SportPickleball Sport = "Pickleball"
)

var Sports = []Sport{SportTennis, SportPickleball}

// ParseSport matches a sport name case-insensitively, an empty string yields an
// empty Sport meaning "any".
func ParseSport(value string) (Sport, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "tennis":
		return SportTennis, nil
	case "pickleball":
		return SportPickleball, nil
	}
	return "", fmt.Errorf("unknown sport %q (expected tennis or pickleball)", value)
}

// SearchType is the category token the reservation site expects for this sport.
func (s Sport) SearchType() string {
	return fmt.Sprintf("%s Court", s)
}

// Status is the overall status of a court on one date.
type Status string

const (
	StatusAvailable   Status = "Available"
	StatusBooked      Status = "Booked"
	StatusMaintenance Status = "Maintenance"
	StatusUnknown     Status = "Unknown"
)

func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "available":
		return StatusAvailable, nil
	case "booked", "fully booked":
		return StatusBooked, nil
	case "maintenance":
		return StatusMaintenance, nil
	case "unknown", "no schedule":
		return StatusUnknown, nil
	}
	return "", fmt.Errorf("unknown status %q", value)
}

// Label is the human readable form used in tables.
func (s Status) Label() string {
	switch s {
	case StatusBooked:
		return "Fully Booked"
	case StatusUnknown:
		return "No Schedule"
	}
	return string(s)
}

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "Available"
	SlotUnavailable SlotStatus = "Unavailable"
)

// TimeSlot is a range of wall-clock time (facility local, 24h "HH:MM") within a court's day.
type TimeSlot struct {
	Start  string
	End    string
	Status SlotStatus
}

// Key identifies the slot within its court and date.
func (t TimeSlot) Key() string {
	return t.Start + "-" + t.End
}

// Court is a bookable court observed on one date.
type Court struct {
	Name     string
	Sport    Sport
	Location string
	Capacity string
	// Price is empty when the listing does not show one.
	Price string
	// Date is an ISO YYYY-MM-DD calendar date.
	Date   string
	Status Status
	Slots  []TimeSlot
}

// AvailableSlots counts the slots that can still be booked.
func (c Court) AvailableSlots() int {
	count := 0
	for _, slot := range c.Slots {
		if slot.Status == SlotAvailable {
			count++
		}
	}
	return count
}

// Fingerprint returns the identity of the court listing itself.
func (c Court) Fingerprint() Fingerprint {
	return NewFingerprint(c.Name, c.Date, SummaryKey)
}

// Fingerprints returns the identity of the listing followed by the identity of every slot.
func (c Court) Fingerprints() []Fingerprint {
	out := make([]Fingerprint, 0, len(c.Slots)+1)
	out = append(out, c.Fingerprint())
	for _, slot := range c.Slots {
		out = append(out, NewFingerprint(c.Name, c.Date, slot.Key()))
	}
	return out
}

// AtLocation keeps the courts whose location contains location, case-insensitively.
// An empty location keeps everything.
func AtLocation(list []Court, location string) []Court {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return list
	}
	var out []Court
	for _, court := range list {
		if strings.Contains(strings.ToLower(court.Location), location) {
			out = append(out, court)
		}
	}
	return out
}
