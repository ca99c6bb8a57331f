package cmd

import (
	"fmt"
	"os"
	"time"

	"courtwatch/internal/courts"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func statusText(status courts.Status) string {
	switch status {
	case courts.StatusAvailable:
		return text.FgGreen.Sprint(status.Label())
	case courts.StatusBooked:
		return text.FgRed.Sprint(status.Label())
	case courts.StatusMaintenance:
		return text.FgYellow.Sprint(status.Label())
	}
	return text.FgHiBlack.Sprint(status.Label())
}

func slotText(status courts.SlotStatus) string {
	if status == courts.SlotAvailable {
		return text.FgGreen.Sprint(status)
	}
	return text.FgRed.Sprint(status)
}

func renderCourts(list []courts.Court, lastSeen func(i int) time.Time) {
	t := newTable()
	header := table.Row{"Court", "Sport", "Location", "Date", "Status", "Open slots", "Capacity", "Price"}
	if lastSeen != nil {
		header = append(header, "Last seen")
	}
	t.AppendHeader(header)

	for i, court := range list {
		price := court.Price
		if price == "" {
			price = "-"
		}
		row := table.Row{
			court.Name,
			court.Sport,
			court.Location,
			court.Date,
			statusText(court.Status),
			fmt.Sprintf("%d/%d", court.AvailableSlots(), len(court.Slots)),
			court.Capacity,
			price,
		}
		if lastSeen != nil {
			row = append(row, lastSeen(i).Format("Jan 2 15:04"))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d courts", len(list))})
	t.Render()
}

func renderSlots(list []courts.Court, availableOnly bool) {
	for _, court := range list {
		t := newTable()
		t.SetTitle(fmt.Sprintf("%s (%s, %s)", court.Name, court.Location, court.Date))
		t.AppendHeader(table.Row{"Time", "Status"})
		shown := 0
		for _, slot := range court.Slots {
			if availableOnly && slot.Status != courts.SlotAvailable {
				continue
			}
			t.AppendRow(table.Row{slot.Start + " - " + slot.End, slotText(slot.Status)})
			shown++
		}
		if shown == 0 {
			continue
		}
		t.Render()
	}
}

func onlyAvailable(list []courts.Court) []courts.Court {
	var out []courts.Court
	for _, court := range list {
		if court.AvailableSlots() > 0 {
			out = append(out, court)
		}
	}
	return out
}
