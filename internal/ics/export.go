// Package ics renders house calendars as iCalendar feeds so booking
// sites and phone calendars can subscribe to them.
package ics

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/evcraddock/house-calendar/internal/calendar"
	"github.com/evcraddock/house-calendar/internal/dateutil"
	"github.com/evcraddock/house-calendar/internal/house"
)

const productID = "-//house-calendar//calendar export//EN"

// block is a run of consecutive dates sharing one unavailable status.
type block struct {
	start, end time.Time // end is inclusive
	status     calendar.Status
	manual     bool
}

// Export builds a calendar with one all-day event per run of booked or
// closed dates. Available dates produce no events.
func Export(h *house.House, prices calendar.Prices, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(h.Name)

	for _, b := range blocks(prices) {
		uid := fmt.Sprintf("%d-%s-%s@house-calendar", h.ID, dateutil.Format(b.start), b.status)
		ev := cal.AddEvent(uid)
		ev.SetDtStampTime(now.UTC())
		ev.SetAllDayStartAt(b.start)
		ev.SetAllDayEndAt(b.end.AddDate(0, 0, 1))
		ev.SetSummary(summary(h, b))
		if h.Zone != "" {
			ev.SetLocation(h.Zone)
		}
	}
	return cal
}

// Write serializes the export of h to w.
func Write(w io.Writer, h *house.House, prices calendar.Prices, now time.Time) error {
	if _, err := io.WriteString(w, Export(h, prices, now).Serialize()); err != nil {
		return fmt.Errorf("writing calendar for house %d: %w", h.ID, err)
	}
	return nil
}

func summary(h *house.House, b block) string {
	label := "Booked"
	if b.status == calendar.StatusClosed {
		label = "Closed"
	}
	if b.manual {
		label += " (pinned)"
	}
	return fmt.Sprintf("%s: %s", h.Name, label)
}

func blocks(prices calendar.Prices) []block {
	var out []block
	for _, date := range prices.Dates() {
		rec := prices[date]
		if rec.Status == calendar.StatusAvailable || rec.Status == "" {
			continue
		}
		day, err := dateutil.Parse(date)
		if err != nil {
			continue
		}

		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.status == rec.Status && last.end.AddDate(0, 0, 1).Equal(day) {
				last.end = day
				last.manual = last.manual || rec.Manual
				continue
			}
		}
		out = append(out, block{start: day, end: day, status: rec.Status, manual: rec.Manual})
	}
	return out
}
