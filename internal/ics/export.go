// Package ics renders recent calls as an iCalendar feed so they can be
// subscribed to from a regular calendar client.
package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"

	"recents/internal/model"
	"recents/internal/recents"
	"recents/internal/timeconv"
)

// ExportOptions controls Export.
type ExportOptions struct {
	// Name is the calendar display name (X-WR-CALNAME).
	Name string
	// Domain is the right-hand side of every event UID.
	Domain string
	// Codec renders the API timestamp placed in each DESCRIPTION.
	Codec timeconv.Codec
	// Texts translates captions; nil means English.
	Texts recents.Texts
	// Stamp is DTSTAMP for every event; zero means time.Now().
	Stamp time.Time
}

// Export renders calls as a PUBLISH calendar with one VEVENT per call.
// Answered calls span their duration; unanswered ones are instantaneous.
func Export(calls []model.Call, opts ExportOptions) string {
	if opts.Domain == "" {
		opts.Domain = "recents.local"
	}
	if opts.Name == "" {
		opts.Name = "Recent calls"
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//recents//recent calls//EN")
	cal.SetName(opts.Name)

	for _, c := range calls {
		ev := cal.AddEvent(UID(c, opts.Domain))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(c.Start)
		ev.SetEndAt(c.End())
		ev.SetSummary(recents.Caption(c, opts.Texts) + ": " + recents.Party(c, opts.Texts))
		ev.SetDescription("call_date=" + opts.Codec.Format(c.Start))
		ev.AddProperty(ical.ComponentPropertyCategories, category(c))
	}

	return cal.Serialize()
}

// UID is the stable event UID of a call.
func UID(c model.Call, domain string) string {
	return "call-" + strconv.FormatInt(c.ID, 10) + "@" + domain
}

func category(c model.Call) string {
	switch {
	case c.Missed():
		return "MISSED"
	case c.Direction == model.DirectionOutbound:
		return "OUTBOUND"
	default:
		return "INBOUND"
	}
}
