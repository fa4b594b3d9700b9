package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// NotAvailable is rendered for values the API left empty.
const NotAvailable = "N/A"

const (
	DefaultLocale   = "en-US"
	DefaultCurrency = "USD"
)

type convention struct {
	decimal string
	group   string
	// minimum integer digits before grouping kicks in (CLDR minimumGroupingDigits + 3)
	minGroupDigits int
	symbolAfter    bool
	percentSpace   bool
	symbols        map[string]string
	longDate       func(t time.Time) string
}

var englishMonths = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var spanishMonths = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var baseSymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
}

var supported = []language.Tag{
	language.AmericanEnglish,
	language.EuropeanSpanish,
	language.MustParse("ja-JP"),
}

var matcher = language.NewMatcher(supported)

var conventions = []convention{
	{
		decimal:        ".",
		group:          ",",
		minGroupDigits: 4,
		symbols:        baseSymbols,
		longDate: func(t time.Time) string {
			return fmt.Sprintf("%s %d, %d", englishMonths[t.Month()-1], t.Day(), t.Year())
		},
	},
	{
		decimal:        ",",
		group:          ".",
		minGroupDigits: 5,
		symbolAfter:    true,
		percentSpace:   true,
		symbols:        map[string]string{"USD": "US$", "EUR": "€", "GBP": "GBP", "JPY": "JPY"},
		longDate: func(t time.Time) string {
			return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
		},
	},
	{
		decimal:        ".",
		group:          ",",
		minGroupDigits: 4,
		symbols:        map[string]string{"USD": "$", "EUR": "€", "GBP": "£", "JPY": "￥"},
		longDate: func(t time.Time) string {
			return fmt.Sprintf("%d年%d月%d日", t.Year(), int(t.Month()), t.Day())
		},
	},
}

// Formatter renders numbers and dates for one locale and currency. It holds no
// mutable state, so a single value can be shared by every screen.
type Formatter struct {
	locale   language.Tag
	conv     convention
	currency currency.Unit
	scale    int32
}

// New builds a Formatter. Unknown locales fall back to en-US; an unknown ISO
// currency code is an error.
func New(locale, cur string) (*Formatter, error) {
	if strings.TrimSpace(cur) == "" {
		cur = DefaultCurrency
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(cur)))
	if err != nil {
		return nil, fmt.Errorf("invalid currency %q: %w", cur, err)
	}

	idx := 0
	if tag, err := language.Parse(strings.TrimSpace(locale)); err == nil {
		if _, i, conf := matcher.Match(tag); conf != language.No {
			idx = i
		}
	}

	scale, _ := currency.Standard.Rounding(unit)
	return &Formatter{
		locale:   supported[idx],
		conv:     conventions[idx],
		currency: unit,
		scale:    int32(scale),
	}, nil
}

// Default returns the en-US / USD formatter.
func Default() *Formatter {
	f, _ := New(DefaultLocale, DefaultCurrency)
	return f
}

// Locale reports the matched locale.
func (f *Formatter) Locale() string { return f.locale.String() }

// Currency formats a price target. nil renders as N/A.
func (f *Formatter) Currency(v *float64) string {
	if v == nil || !finite(*v) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(*v)
	neg := d.IsNegative() && !d.Round(f.scale).IsZero()
	amount := f.number(d.Abs(), f.scale)

	sym, ok := f.conv.symbols[f.currency.String()]
	if !ok {
		sym = f.currency.String()
	}

	var s string
	if f.conv.symbolAfter {
		s = amount + " " + sym
	} else {
		s = sym + amount
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Percentage formats a whole-number percentage (12.345 means 12.345%) with
// exactly two fraction digits.
func (f *Formatter) Percentage(v float64) string {
	if !finite(v) {
		return NotAvailable
	}
	d := decimal.NewFromFloat(v)
	neg := d.IsNegative() && !d.Round(2).IsZero()
	s := f.number(d.Abs(), 2)
	if neg {
		s = "-" + s
	}
	if f.conv.percentSpace {
		return s + " %"
	}
	return s + "%"
}

// Date formats t as a long date in t's own offset.
func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return f.conv.longDate(t)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateString parses an API timestamp and formats it like Date. Input that does
// not parse is returned as-is.
func (f *Formatter) DateString(s string) string {
	t, ok := ParseTime(s)
	if !ok {
		return s
	}
	return f.Date(t)
}

// ParseTime accepts the timestamp shapes the API has been seen to emit.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Score renders a recommendation score with two decimals, rounding half away
// from zero.
func Score(v float64) string {
	if !finite(v) {
		return NotAvailable
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// number renders a non-negative decimal with the locale's separators.
func (f *Formatter) number(d decimal.Decimal, places int32) string {
	fixed := d.StringFixed(places)
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	intPart = group(intPart, f.conv.group, f.conv.minGroupDigits)
	if fracPart == "" {
		return intPart
	}
	return intPart + f.conv.decimal + fracPart
}

func group(digits, sep string, minDigits int) string {
	if len(digits) < minDigits {
		return digits
	}
	var b strings.Builder
	for i, c := range digits {
		if i != 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(c)
	}
	return b.String()
}
