package timeconv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultReferenceZone is the fixed offset the platform API uses for
// every timestamp it sends or expects (CET, no daylight saving).
const DefaultReferenceZone = "+01:00"

// ErrFormat is matched by every *FormatError via errors.Is.
var ErrFormat = errors.New("timeconv: invalid API timestamp")

// FormatError reports an API timestamp that does not match
// yyyy-M-d'T'H:m:s or carries an out-of-range component.
type FormatError struct {
	Input  string
	Field  string // empty when the overall shape is wrong
	Reason string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("timeconv: invalid API timestamp %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("timeconv: invalid API timestamp %q: %s %s", e.Input, e.Field, e.Reason)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Codec converts between instants and the API's fixed timestamp pattern
// yyyy-M-d'T'H:m:s. Components are written without zero padding; the
// wall clock is always the one of Location.
//
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	Location *time.Location
}

// NewCodec returns a Codec for the given reference location. A nil
// location means UTC.
func NewCodec(loc *time.Location) Codec {
	if loc == nil {
		loc = time.UTC
	}
	return Codec{Location: loc}
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

type field struct {
	name      string
	maxDigits int
	min, max  int
}

var fields = [6]field{
	{"year", 4, 1, 9999},
	{"month", 2, 1, 12},
	{"day", 2, 1, 31},
	{"hour", 2, 0, 23},
	{"minute", 2, 0, 59},
	{"second", 2, 0, 59},
}

// separators[i] follows fields[i].
var separators = [5]byte{'-', '-', 'T', ':', ':'}

// Parse reads an API timestamp such as "2009-10-11T12:13:14" and returns
// the instant it denotes in the codec's reference location. Leading zeros
// are accepted; anything else outside the pattern yields a *FormatError.
func (c Codec) Parse(text string) (time.Time, error) {
	var vals [6]int

	rest := text
	for i, f := range fields {
		n := 0
		for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
			n++
		}
		if n == 0 {
			return time.Time{}, &FormatError{Input: text, Field: f.name, Reason: "is missing"}
		}
		if n > f.maxDigits {
			return time.Time{}, &FormatError{Input: text, Field: f.name, Reason: "has too many digits"}
		}
		v, err := strconv.Atoi(rest[:n])
		if err != nil {
			return time.Time{}, &FormatError{Input: text, Field: f.name, Reason: "is not a number"}
		}
		if v < f.min || v > f.max {
			return time.Time{}, &FormatError{Input: text, Field: f.name, Reason: fmt.Sprintf("%d out of range [%d, %d]", v, f.min, f.max)}
		}
		vals[i] = v
		rest = rest[n:]

		if i < len(separators) {
			if rest == "" || rest[0] != separators[i] {
				return time.Time{}, &FormatError{Input: text, Reason: fmt.Sprintf("expected %q after %s", separators[i], f.name)}
			}
			rest = rest[1:]
		}
	}
	if rest != "" {
		return time.Time{}, &FormatError{Input: text, Reason: "unexpected trailing characters"}
	}

	year, month, day := vals[0], time.Month(vals[1]), vals[2]
	if day > daysIn(year, month) {
		return time.Time{}, &FormatError{Input: text, Field: "day", Reason: fmt.Sprintf("%d out of range for %s %d", day, month, year)}
	}

	t := time.Date(year, month, day, vals[3], vals[4], vals[5], 0, c.location())

	// Wall times skipped by a DST transition are normalized by time.Date.
	ty, tm, td := t.Date()
	th, tmin, ts := t.Clock()
	if ty != year || tm != month || td != day || th != vals[3] || tmin != vals[4] || ts != vals[5] {
		return time.Time{}, &FormatError{Input: text, Reason: "wall time does not exist in " + c.location().String()}
	}
	return t, nil
}

// Format renders t as an API timestamp in the codec's reference location.
// Sub-second precision is dropped.
func (c Codec) Format(t time.Time) string {
	t = t.In(c.location())

	var b strings.Builder
	b.Grow(len("2006-12-31T23:59:59"))
	b.WriteString(strconv.Itoa(t.Year()))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(int(t.Month())))
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(t.Day()))
	b.WriteByte('T')
	b.WriteString(strconv.Itoa(t.Hour()))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(t.Minute()))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(t.Second()))
	return b.String()
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseZone resolves a configured zone name. It accepts IANA names
// ("Europe/Amsterdam"), "UTC", "Local", and fixed offsets written as
// "+01:00", "-0530" or "UTC+01:00".
func ParseZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	switch name {
	case "", "UTC", "Z":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}

	offset := strings.TrimPrefix(strings.TrimPrefix(name, "UTC"), "GMT")
	if offset != "" && (offset[0] == '+' || offset[0] == '-') {
		secs, err := parseOffset(offset)
		if err != nil {
			return nil, fmt.Errorf("timeconv: invalid zone offset %q: %w", name, err)
		}
		return time.FixedZone(name, secs), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("timeconv: unknown zone %q: %w", name, err)
	}
	return loc, nil
}

func parseOffset(s string) (int, error) {
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	s = strings.ReplaceAll(s[1:], ":", "")

	var hh, mm string
	switch len(s) {
	case 1, 2:
		hh = s
	case 4:
		hh, mm = s[:2], s[2:]
	default:
		return 0, errors.New("want ±HH, ±HH:MM or ±HHMM")
	}

	h, err := strconv.Atoi(hh)
	if err != nil || h > 14 {
		return 0, errors.New("hours out of range")
	}
	m := 0
	if mm != "" {
		m, err = strconv.Atoi(mm)
		if err != nil || m > 59 {
			return 0, errors.New("minutes out of range")
		}
	}
	return sign * (h*3600 + m*60), nil
}
