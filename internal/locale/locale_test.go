package locale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewMatchesSupportedLanguages(t *testing.T) {
	tests := []struct {
		tag      string
		wantTag  language.Tag
		wantDate string
		wantTime string
	}{
		{"", language.AmericanEnglish, "1/2/06", "3:04 PM"},
		{"en-US", language.AmericanEnglish, "1/2/06", "3:04 PM"},
		{"en-GB", language.BritishEnglish, "02/01/2006", "15:04"},
		{"nl-NL", language.Dutch, "02-01-06", "15:04"},
		{"de", language.German, "02.01.06", "15:04"},
		{"ja-JP", language.AmericanEnglish, "1/2/06", "3:04 PM"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			l, err := New(tt.tag, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantTag, l.Tag)
			assert.Equal(t, tt.wantDate, l.DateLayout)
			assert.Equal(t, tt.wantTime, l.TimeLayout)
		})
	}
}

func TestNewRejectsMalformedTag(t *testing.T) {
	_, err := New("not a tag!", Options{})
	assert.Error(t, err)
}

func TestLayoutOverrides(t *testing.T) {
	l, err := New("en-US", Options{DateLayout: "2006-01-02", TimeLayout: "15:04"})
	require.NoError(t, err)

	at := time.Date(2009, time.October, 11, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "2009-10-11", l.ShortDate(at))
	assert.Equal(t, "14:05", l.ShortTime(at))
}

func TestShortRendering(t *testing.T) {
	at := time.Date(2009, time.October, 11, 12, 34, 56, 0, time.UTC)

	us, err := New("en-US", Options{})
	require.NoError(t, err)
	assert.Equal(t, "10/11/09", us.ShortDate(at))
	assert.Equal(t, "12:34 PM", us.ShortTime(at))

	nl, err := New("nl", Options{})
	require.NoError(t, err)
	assert.Equal(t, "11-10-09", nl.ShortDate(at))
	assert.Equal(t, "12:34", nl.ShortTime(at))
}

func TestYesterdayTranslations(t *testing.T) {
	for tag, want := range map[string]string{
		"en-US": "yesterday",
		"nl":    "gisteren",
		"de-DE": "gestern",
		"fr":    "hier",
		"es":    "ayer",
	} {
		l, err := New(tag, Options{})
		require.NoError(t, err, tag)
		assert.Equal(t, want, l.Yesterday(), tag)
	}
}

func TestTextFallsBackToEnglish(t *testing.T) {
	l, err := New("es", Options{})
	require.NoError(t, err)
	// No Spanish entry for this ID.
	assert.Equal(t, "Unknown number", l.Text(MsgUnknownNumber))
	assert.Equal(t, "Llamada perdida", l.Text(MsgCallMissed))
}

func TestNilLocaleUsesDefaults(t *testing.T) {
	var l *Locale
	assert.Equal(t, "yesterday", l.Text(MsgYesterday))
}
