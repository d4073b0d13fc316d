// Package locale supplies the user-facing rendering rules for recents:
// short date and time layouts per language and the translated strings
// shown next to calls.
package locale

import (
	"embed"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	appLog "recents/internal/log"
)

// Message IDs understood by Locale.Text.
const (
	MsgYesterday     = "Yesterday"
	MsgCallIncoming  = "CallIncoming"
	MsgCallOutgoing  = "CallOutgoing"
	MsgCallMissed    = "CallMissed"
	MsgUnknownNumber = "UnknownNumber"
)

var defaults = map[string]string{
	MsgYesterday:     "yesterday",
	MsgCallIncoming:  "Incoming call",
	MsgCallOutgoing:  "Outgoing call",
	MsgCallMissed:    "Missed call",
	MsgUnknownNumber: "Unknown number",
}

//go:embed messages/*.yaml
var messageFS embed.FS

type layouts struct {
	date string
	time string
}

// supported[0] is the fallback for unmatched tags.
var supported = []language.Tag{
	language.AmericanEnglish,
	language.BritishEnglish,
	language.Dutch,
	language.German,
	language.French,
	language.Spanish,
}

var layoutTable = map[language.Tag]layouts{
	language.AmericanEnglish: {date: "1/2/06", time: "3:04 PM"},
	language.BritishEnglish:  {date: "02/01/2006", time: "15:04"},
	language.Dutch:           {date: "02-01-06", time: "15:04"},
	language.German:          {date: "02.01.06", time: "15:04"},
	language.French:          {date: "02/01/2006", time: "15:04"},
	language.Spanish:         {date: "2/1/06", time: "15:04"},
}

var matcher = language.NewMatcher(supported)

var loadBundle = sync.OnceValues(func() (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	paths, err := fs.Glob(messageFS, "messages/*.yaml")
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if _, err := bundle.LoadMessageFileFS(messageFS, p); err != nil {
			return nil, fmt.Errorf("locale: load %s: %w", p, err)
		}
	}
	return bundle, nil
})

// Options overrides the layouts picked for a language. Empty fields keep
// the table value.
type Options struct {
	DateLayout string
	TimeLayout string
}

// Locale renders short dates, short times and translated captions for one
// language. It is immutable after New and safe for concurrent use.
type Locale struct {
	Tag        language.Tag
	DateLayout string
	TimeLayout string

	localizer *i18n.Localizer
}

// New returns the Locale closest to the BCP 47 tag (e.g. "nl-NL"). An
// empty tag selects en-US; an unparsable one is an error.
func New(tag string, opts Options) (*Locale, error) {
	requested := language.AmericanEnglish
	if tag != "" {
		t, err := language.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("locale: parse %q: %w", tag, err)
		}
		requested = t
	}

	_, idx, conf := matcher.Match(requested)
	if conf == language.No {
		appLog.Warn("locale not supported; using fallback", "requested", requested.String(), "fallback", supported[0].String())
		idx = 0
	}
	matched := supported[idx]
	lay := layoutTable[matched]

	l := &Locale{
		Tag:        matched,
		DateLayout: lay.date,
		TimeLayout: lay.time,
	}
	if opts.DateLayout != "" {
		l.DateLayout = opts.DateLayout
	}
	if opts.TimeLayout != "" {
		l.TimeLayout = opts.TimeLayout
	}

	bundle, err := loadBundle()
	if err != nil {
		return nil, err
	}
	l.localizer = i18n.NewLocalizer(bundle, requested.String(), matched.String())

	return l, nil
}

// ShortDate renders t in the locale's short date style. The caller picks
// the zone by converting t beforehand.
func (l *Locale) ShortDate(t time.Time) string {
	return t.Format(l.DateLayout)
}

// ShortTime renders t in the locale's short time style.
func (l *Locale) ShortTime(t time.Time) string {
	return t.Format(l.TimeLayout)
}

// Yesterday returns the translated word for the previous calendar day.
func (l *Locale) Yesterday() string {
	return l.Text(MsgYesterday)
}

// Text returns the translation for a message ID, falling back to English.
func (l *Locale) Text(id string) string {
	def := defaults[id]
	if l == nil || l.localizer == nil {
		return def
	}
	s, err := l.localizer.Localize(&i18n.LocalizeConfig{
		DefaultMessage: &i18n.Message{ID: id, Other: def},
	})
	if s == "" {
		if err != nil {
			appLog.Debug("missing translation", "id", id, "tag", l.Tag.String(), "err", err)
		}
		return def
	}
	return s
}
