package timeconv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recents/internal/locale"
)

func usCalendar(t *testing.T, loc *time.Location) (Calendar, *locale.Locale) {
	t.Helper()
	l, err := locale.New("en-US", locale.Options{})
	require.NoError(t, err)
	return Calendar{Location: loc, Locale: l}, l
}

// midnight returns 00:00:00 of now's day in loc, shifted by days.
func midnight(now time.Time, loc *time.Location, days int) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, loc)
}

func TestRelativeLabelGivesTimeAfterMidnightToday(t *testing.T) {
	cal, l := usCalendar(t, cet)
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, cet)

	oneSecondAfterMidnight := midnight(now, cet, 0).Add(time.Second)

	got := RelativeLabel(oneSecondAfterMidnight, now, cal)
	assert.Equal(t, l.ShortTime(oneSecondAfterMidnight), got)
	assert.Equal(t, "12:00 AM", got)
}

func TestRelativeLabelGivesYesterdayBeforeMidnight(t *testing.T) {
	cal, _ := usCalendar(t, cet)
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, cet)

	oneSecondBeforeMidnight := midnight(now, cet, 0).Add(-time.Second)

	assert.Equal(t, "yesterday", RelativeLabel(oneSecondBeforeMidnight, now, cal))
}

func TestRelativeLabelGivesDateBeforeYesterday(t *testing.T) {
	cal, l := usCalendar(t, cet)
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, cet)

	dayBeforeYesterday := midnight(now, cet, -1).Add(-time.Second)

	got := RelativeLabel(dayBeforeYesterday, now, cal)
	assert.Equal(t, l.ShortDate(dayBeforeYesterday), got)
	assert.Equal(t, "6/13/16", got)
}

func TestRelativeLabelAtEdgesOfNowsDay(t *testing.T) {
	cal, _ := usCalendar(t, cet)

	// now at the very start and very end of its day.
	for _, now := range []time.Time{
		time.Date(2016, time.June, 15, 0, 0, 0, 0, cet),
		time.Date(2016, time.June, 15, 23, 59, 59, 0, cet),
	} {
		_, b := Label(midnight(now, cet, 0), now, cal)
		assert.Equal(t, BucketTime, b)
		_, b = Label(midnight(now, cet, 0).Add(-time.Second), now, cal)
		assert.Equal(t, BucketYesterday, b)
		_, b = Label(midnight(now, cet, -1), now, cal)
		assert.Equal(t, BucketYesterday, b)
		_, b = Label(midnight(now, cet, -1).Add(-time.Second), now, cal)
		assert.Equal(t, BucketDate, b)
	}
}

func TestFutureInstantsFallIntoDateBucket(t *testing.T) {
	cal, l := usCalendar(t, cet)
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, cet)

	laterToday := now.Add(2 * time.Hour)
	label, b := Label(laterToday, now, cal)
	assert.Equal(t, BucketTime, b)
	assert.Equal(t, l.ShortTime(laterToday), label)

	tomorrow := midnight(now, cet, 1)
	label, b = Label(tomorrow, now, cal)
	assert.Equal(t, BucketDate, b)
	assert.Equal(t, "6/16/16", label)

	nextYear := now.AddDate(1, 0, 0)
	_, b = Label(nextYear, now, cal)
	assert.Equal(t, BucketDate, b)
}

func TestClassifyUsesCalendarLocation(t *testing.T) {
	// 23:30 UTC on the 14th is already the 15th in UTC+01:00.
	instant := time.Date(2016, time.June, 14, 23, 30, 0, 0, time.UTC)
	now := time.Date(2016, time.June, 15, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, BucketYesterday, Classify(instant, now, time.UTC))
	assert.Equal(t, BucketTime, Classify(instant, now, cet))
}

func TestClassifyAcrossMonthAndYearBoundaries(t *testing.T) {
	now := time.Date(2017, time.January, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, BucketYesterday, Classify(time.Date(2016, time.December, 31, 12, 0, 0, 0, time.UTC), now, time.UTC))
	assert.Equal(t, BucketDate, Classify(time.Date(2016, time.December, 30, 23, 59, 59, 0, time.UTC), now, time.UTC))

	now = time.Date(2016, time.March, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, BucketYesterday, Classify(time.Date(2016, time.February, 29, 0, 0, 0, 0, time.UTC), now, time.UTC))
}

func TestClassifyAcrossDSTChange(t *testing.T) {
	ams, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	// 2016-03-27 is a 23h day in Amsterdam.
	now := time.Date(2016, time.March, 28, 0, 30, 0, 0, ams)
	lastSecondOfSunday := time.Date(2016, time.March, 27, 23, 59, 59, 0, ams)
	firstSecondOfSunday := time.Date(2016, time.March, 27, 0, 0, 0, 0, ams)
	lastSecondOfSaturday := time.Date(2016, time.March, 26, 23, 59, 59, 0, ams)

	assert.Equal(t, BucketYesterday, Classify(lastSecondOfSunday, now, ams))
	assert.Equal(t, BucketYesterday, Classify(firstSecondOfSunday, now, ams))
	assert.Equal(t, BucketDate, Classify(lastSecondOfSaturday, now, ams))
}

func TestLabelWithDutchLocale(t *testing.T) {
	l, err := locale.New("nl-NL", locale.Options{})
	require.NoError(t, err)
	cal := Calendar{Location: cet, Locale: l}
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, cet)

	assert.Equal(t, "00:00", RelativeLabel(midnight(now, cet, 0), now, cal))
	assert.Equal(t, "gisteren", RelativeLabel(midnight(now, cet, -1), now, cal))
	assert.Equal(t, "13-06-16", RelativeLabel(midnight(now, cet, -2), now, cal))
}

func TestCalendarWithoutLocale(t *testing.T) {
	now := time.Date(2016, time.June, 15, 10, 30, 0, 0, time.UTC)
	cal := Calendar{Location: time.UTC}

	assert.Equal(t, "09:05", RelativeLabel(time.Date(2016, time.June, 15, 9, 5, 0, 0, time.UTC), now, cal))
	assert.Equal(t, "yesterday", RelativeLabel(time.Date(2016, time.June, 14, 9, 5, 0, 0, time.UTC), now, cal))
	assert.Equal(t, "2016-06-01", RelativeLabel(time.Date(2016, time.June, 1, 9, 5, 0, 0, time.UTC), now, cal))
}

func TestParsedAPITimestampIsLabelled(t *testing.T) {
	cal, _ := usCalendar(t, cet)
	c := NewCodec(cet)
	now := time.Date(2009, time.October, 12, 8, 0, 0, 0, cet)

	at, err := c.Parse("2009-10-11T12:13:14")
	require.NoError(t, err)
	assert.Equal(t, "yesterday", RelativeLabel(at, now, cal))

	at, err = c.Parse("2009-10-12T7:05:00")
	require.NoError(t, err)
	assert.Equal(t, "7:05 AM", RelativeLabel(at, now, cal))
}

func TestBucketString(t *testing.T) {
	assert.Equal(t, "time", BucketTime.String())
	assert.Equal(t, "yesterday", BucketYesterday.String())
	assert.Equal(t, "date", BucketDate.String())
	assert.Equal(t, "unknown", Bucket(9).String())
}
