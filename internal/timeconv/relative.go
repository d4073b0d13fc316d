package timeconv

import "time"

// Bucket is the display class of an instant relative to "now".
type Bucket int

const (
	// BucketTime: same calendar day as now, rendered as a short time.
	BucketTime Bucket = iota
	// BucketYesterday: the calendar day before now's day.
	BucketYesterday
	// BucketDate: any other day, past or future, rendered as a short date.
	BucketDate
)

func (b Bucket) String() string {
	switch b {
	case BucketTime:
		return "time"
	case BucketYesterday:
		return "yesterday"
	case BucketDate:
		return "date"
	default:
		return "unknown"
	}
}

// Renderer renders the three label shapes for one locale.
// *locale.Locale implements it.
type Renderer interface {
	ShortTime(t time.Time) string
	ShortDate(t time.Time) string
	Yesterday() string
}

// Calendar is the explicit stand-in for the user's current calendar:
// Location decides where days begin and end, Locale how labels look.
type Calendar struct {
	Location *time.Location
	Locale   Renderer
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func (c Calendar) renderer() Renderer {
	if c.Locale == nil {
		return fallbackRenderer{}
	}
	return c.Locale
}

// Classify buckets instant by comparing its calendar day in loc with
// now's. A nil loc means time.Local.
func Classify(instant, now time.Time, loc *time.Location) Bucket {
	if loc == nil {
		loc = time.Local
	}
	iy, im, id := instant.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()

	if iy == ny && im == nm && id == nd {
		return BucketTime
	}

	// Date arithmetic, not now-24h, so DST days of 23h/25h still work.
	yy, ym, yd := time.Date(ny, nm, nd-1, 12, 0, 0, 0, loc).Date()
	if iy == yy && im == ym && id == yd {
		return BucketYesterday
	}
	return BucketDate
}

// RelativeLabel renders instant for the recents list: a short time for
// today, the localized "yesterday", or a short date for everything else.
func RelativeLabel(instant, now time.Time, cal Calendar) string {
	label, _ := Label(instant, now, cal)
	return label
}

// Label is RelativeLabel that also reports the bucket it picked.
func Label(instant, now time.Time, cal Calendar) (string, Bucket) {
	loc := cal.location()
	r := cal.renderer()
	local := instant.In(loc)

	b := Classify(instant, now, loc)
	switch b {
	case BucketTime:
		return r.ShortTime(local), b
	case BucketYesterday:
		return r.Yesterday(), b
	default:
		return r.ShortDate(local), b
	}
}

// fallbackRenderer is used when a Calendar carries no locale.
type fallbackRenderer struct{}

func (fallbackRenderer) ShortTime(t time.Time) string { return t.Format("15:04") }
func (fallbackRenderer) ShortDate(t time.Time) string { return t.Format("2006-01-02") }
func (fallbackRenderer) Yesterday() string            { return "yesterday" }
