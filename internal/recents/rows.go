package recents

import (
	"time"

	"recents/internal/locale"
	"recents/internal/model"
	"recents/internal/timeconv"
)

// Texts is the subset of *locale.Locale that rows need beyond labels.
type Texts interface {
	Text(id string) string
}

// Row is one line of the recents list.
type Row struct {
	Call model.Call
	// Label is the relative day/time label, e.g. "12:34 PM" or "yesterday".
	Label  string
	Bucket timeconv.Bucket
	// Caption describes the call kind in the user's language.
	Caption string
	// Party is the caller name or remote number.
	Party string
}

// BuildRows labels calls relative to now. Calls keep their order.
func BuildRows(calls []model.Call, now time.Time, cal timeconv.Calendar, texts Texts) []Row {
	rows := make([]Row, 0, len(calls))
	for _, c := range calls {
		label, bucket := timeconv.Label(c.Start, now, cal)
		rows = append(rows, Row{
			Call:    c,
			Label:   label,
			Bucket:  bucket,
			Caption: Caption(c, texts),
			Party:   Party(c, texts),
		})
	}
	return rows
}

// Caption returns the translated kind of call.
func Caption(c model.Call, texts Texts) string {
	id := locale.MsgCallIncoming
	switch {
	case c.Missed():
		id = locale.MsgCallMissed
	case c.Direction == model.DirectionOutbound:
		id = locale.MsgCallOutgoing
	}
	return text(texts, id)
}

// Party prefers the caller ID name for inbound calls, then the number.
func Party(c model.Call, texts Texts) string {
	if c.Direction == model.DirectionInbound && c.CallerName != "" {
		return c.CallerName
	}
	if n := c.RemoteNumber(); n != "" {
		return n
	}
	return text(texts, locale.MsgUnknownNumber)
}

func text(texts Texts, id string) string {
	if texts == nil {
		var l *locale.Locale
		return l.Text(id)
	}
	return texts.Text(id)
}
