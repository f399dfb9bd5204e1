package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/emersion/go-ical"
)

const prodID = "-//skedule//approved blocks//EN"

// ExportEvent is a block written to an iCalendar file. ID becomes the UID
// and must be stable so re-exports update rather than duplicate.
type ExportEvent struct {
	ID string
	NewEvent
}

// WriteICS encodes events as a single VCALENDAR.
func WriteICS(w io.Writer, events []ExportEvent, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, prodID)

	for _, e := range events {
		ev := ical.NewEvent()
		ev.Props.SetText(ical.PropUID, e.ID+"@skedule")
		ev.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeStart, e.Start.UTC())
		ev.Props.SetDateTime(ical.PropDateTimeEnd, e.End.UTC())
		ev.Props.SetText(ical.PropSummary, e.Title)
		if e.Description != "" {
			ev.Props.SetText(ical.PropDescription, e.Description)
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	// A VCALENDAR needs at least one component.
	if len(cal.Children) == 0 {
		return fmt.Errorf("no events to export")
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}
