package courts

import "strings"

// SummaryKey is the slot key used for court level observations.
const SummaryKey = "summary"

// Fingerprint is the identity of one observation: a court on a date, either as a
// whole (Slot == SummaryKey) or a single time slot.
type Fingerprint struct {
	Court string
	Date  string
	Slot  string
}

// NewFingerprint normalizes its inputs so that cosmetic differences in the markup
// (spacing, casing of the clock suffix) do not produce distinct identities.
func NewFingerprint(court, date, slot string) Fingerprint {
	court = strings.Join(strings.Fields(court), " ")
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = SummaryKey
	}
	return Fingerprint{
		Court: court,
		Date:  strings.TrimSpace(date),
		Slot:  slot,
	}
}

func (f Fingerprint) String() string {
	return f.Court + "|" + f.Date + "|" + f.Slot
}
