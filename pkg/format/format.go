// Package format turns backend values into display strings.
package format

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is shown for missing values.
const Placeholder = "—"

var (
	isoDate       = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ][\d:.]+)?(Z|[+-]\d{2}:\d{2})?$`)
	isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
)

// Formatter renders values for one locale and time zone.
type Formatter struct {
	Tag      language.Tag
	Location *time.Location
}

var (
	defaultMu        sync.RWMutex
	defaultFormatter = Formatter{Tag: language.AmericanEnglish, Location: time.Local}
)

// Default returns the process-wide formatter.
func Default() Formatter {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultFormatter
}

// SetDefault replaces the process-wide formatter.
func SetDefault(f Formatter) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultFormatter = f
}

// Format renders v with the default formatter.
func Format(v any) string {
	return Default().Format(v)
}

// FormatDateOnly renders v as YYYY-MM-DD with the default formatter.
func FormatDateOnly(v any) string {
	return Default().FormatDateOnly(v)
}

func (f Formatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

// Format never fails. Rules are applied in order: missing, boolean, number,
// time, ISO date string, object, plain string.
func (f Formatter) Format(v any) string {
	if isNil(v) {
		return Placeholder
	}
	switch t := v.(type) {
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case time.Time:
		return f.DateTime(t)
	case *time.Time:
		return f.DateTime(*t)
	case json.Number:
		return f.formatNumberString(t.String())
	case string:
		if IsISODate(t) {
			if d, err := ParseISODate(t, f.location()); err == nil {
				return f.DateTime(d)
			}
		}
		return t
	}

	if n, ok := asFloat(v); ok {
		return f.Number(n)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// FormatDateOnly renders a calendar date as YYYY-MM-DD using UTC fields.
// Anything that is not a date is returned as its plain string form.
func (f Formatter) FormatDateOnly(v any) string {
	if isNil(v) {
		return Placeholder
	}
	switch t := v.(type) {
	case string:
		if isoDatePrefix.MatchString(t) {
			return t[:10]
		}
		return t
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case *time.Time:
		return t.UTC().Format("2006-01-02")
	}
	return plainString(v)
}

// Number renders n with the locale's grouping and at most three fraction
// digits.
func (f Formatter) Number(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "∞"
	case math.IsInf(n, -1):
		return "-∞"
	}
	p := message.NewPrinter(f.Tag)
	return p.Sprint(number.Decimal(n, number.MaxFractionDigits(3)))
}

func (f Formatter) formatNumberString(s string) string {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		p := message.NewPrinter(f.Tag)
		return p.Sprint(number.Decimal(i))
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return f.Number(n)
}

// DateTime renders t in the formatter's zone using the locale's layout.
func (f Formatter) DateTime(t time.Time) string {
	return t.In(f.location()).Format(dateTimeLayout(f.Tag))
}

// IsISODate reports whether s looks like YYYY-MM-DD with an optional time
// and zone.
func IsISODate(s string) bool {
	return isoDate.MatchString(s)
}

// ParseISODate parses strings accepted by IsISODate. A bare date is UTC
// midnight; a date-time without a zone is read in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	if !IsISODate(s) {
		return time.Time{}, fmt.Errorf("not an ISO date: %q", s)
	}
	if loc == nil {
		loc = time.Local
	}
	if len(s) == 10 {
		return time.Parse("2006-01-02", s)
	}

	s = strings.Replace(s, " ", "T", 1)
	zoned := strings.HasSuffix(s, "Z") || strings.LastIndexAny(s, "+-") > 10

	clocks := []string{"15", "15:04", "15:04:05", "15:04:05.999999999"}
	for _, clock := range clocks {
		layout := "2006-01-02T" + clock
		if zoned {
			if t, err := time.Parse(layout+"Z07:00", s); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	if zoned {
		// Date with a zone but no clock, e.g. 2024-03-05Z.
		if t, err := time.Parse("2006-01-02Z07:00", s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func dateTimeLayout(tag language.Tag) string {
	base, _ := tag.Base()
	region, _ := tag.Region()
	switch base.String() {
	case "en":
		switch region.String() {
		case "US", "ZZ", "PH":
			return "1/2/2006, 3:04:05 PM"
		case "IN":
			return "2/1/2006, 3:04:05 pm"
		default:
			return "02/01/2006, 15:04:05"
		}
	case "de":
		return "2.1.2006, 15:04:05"
	case "fr", "es", "it", "pt":
		return "02/01/2006 15:04:05"
	case "ja", "zh":
		return "2006/1/2 15:04:05"
	}
	return "2006-01-02 15:04:05"
}

// LocaleFromEnv picks a language tag from VISITDESK_LOCALE, LC_ALL or LANG,
// falling back to American English.
func LocaleFromEnv() language.Tag {
	for _, name := range []string{"VISITDESK_LOCALE", "LC_ALL", "LANG"} {
		raw := os.Getenv(name)
		if raw == "" || raw == "C" || raw == "POSIX" {
			continue
		}
		if i := strings.IndexAny(raw, ".@"); i >= 0 {
			raw = raw[:i]
		}
		tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
		if err == nil {
			return tag
		}
	}
	return language.AmericanEnglish
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func plainString(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
