package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DateLayouts are the date formats (no time component) recognized by
// inference and parsing, in preference order.
var DateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"01.02.2006",
	"02/01/2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2006/01/02",
	"20060102",
}

// TimestampLayouts are the timestamp formats recognized by inference and
// parsing, in preference order.
var TimestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05 -0700",
}

// TypeTracker infers the narrowest logical type that fits every non-empty
// string it observes. Trackers merge associatively, so partitions of a
// column can be inferred independently and combined.
//
// Candidate order: integer, boolean, real, date/timestamp, string.
type TypeTracker struct {
	NonEmpty int64
	notInt   bool
	notBool  bool
	notReal  bool
	notDate  bool
	anyTime  bool
}

// Observe records one raw value. Empty and whitespace-only values are ignored.
func (t *TypeTracker) Observe(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	t.NonEmpty++
	if !t.notInt && !isInt(s) {
		t.notInt = true
	}
	if !t.notBool && !isBool(s) {
		t.notBool = true
	}
	if !t.notReal && !isReal(s) {
		t.notReal = true
	}
	if !t.notDate {
		ok, hasTime := parseDateOrTimestamp(s)
		if !ok {
			t.notDate = true
		} else if hasTime {
			t.anyTime = true
		}
	}
}

// Merge folds o into t.
func (t *TypeTracker) Merge(o TypeTracker) {
	t.NonEmpty += o.NonEmpty
	t.notInt = t.notInt || o.notInt
	t.notBool = t.notBool || o.notBool
	t.notReal = t.notReal || o.notReal
	t.notDate = t.notDate || o.notDate
	t.anyTime = t.anyTime || o.anyTime
}

// Type returns the inferred type. A tracker that saw no values reports
// TypeString.
func (t TypeTracker) Type() LogicalType {
	switch {
	case t.NonEmpty == 0:
		return TypeString
	case !t.notInt:
		return TypeInteger
	case !t.notBool:
		return TypeBoolean
	case !t.notReal:
		return TypeReal
	case !t.notDate && t.anyTime:
		return TypeTimestamp
	case !t.notDate:
		return TypeDate
	default:
		return TypeString
	}
}

// InferType returns the narrowest logical type for a column sample.
func InferType(values []string) LogicalType {
	var t TypeTracker
	for _, v := range values {
		t.Observe(v)
	}
	return t.Type()
}

// ParseValue converts a raw string into the Go representation of typ.
// Empty input yields nil (null). Whitespace-only input is kept for string
// columns and is null for every other type.
func ParseValue(s string, typ LogicalType) (any, error) {
	if s == "" {
		return nil, nil
	}
	st := strings.TrimSpace(s)
	if st == "" {
		if typ == TypeString {
			return s, nil
		}
		return nil, nil
	}
	switch typ {
	case TypeInteger:
		n, err := strconv.ParseInt(st, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case TypeReal:
		f, err := strconv.ParseFloat(st, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a real number", s)
		}
		return f, nil
	case TypeBoolean:
		switch strings.ToLower(st) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", s)
	case TypeDate:
		for _, layout := range DateLayouts {
			if ts, err := time.Parse(layout, st); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%q is not a date", s)
	case TypeTimestamp:
		for _, layout := range TimestampLayouts {
			if ts, err := time.Parse(layout, st); err == nil {
				return ts, nil
			}
		}
		for _, layout := range DateLayouts {
			if ts, err := time.Parse(layout, st); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("%q is not a timestamp", s)
	case TypeStringList:
		if !strings.HasPrefix(st, "[") || !strings.HasSuffix(st, "]") {
			return nil, fmt.Errorf("%q is not a list", s)
		}
		inner := st[1 : len(st)-1]
		if inner == "" {
			return nil, nil
		}
		return strings.Split(inner, ","), nil
	default:
		return s, nil
	}
}

// Format returns the canonical string form of a value. It is the form used
// for distinct counting, allowed-value lists and text sinks.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339Nano)
	case []string:
		return "[" + strings.Join(t, ",") + "]"
	default:
		return fmt.Sprint(t)
	}
}

// Compare orders two non-null values of the same family (numbers, times or
// strings). ok is false when the values are not comparable.
func Compare(a, b any) (c int, ok bool) {
	if ta, aok := a.(time.Time); aok {
		tb, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		return ta.Compare(tb), true
	}
	fa, aok := toFloat(a)
	fb, bok := toFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// NormalizeName converts arbitrary header text into a lowercase ASCII
// identifier suitable for SQL schemas:
//  1. lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. keep [a-z0-9_]; convert space/dash/dot to underscore; drop others
//  4. fallback to "col" if empty
//  5. cap at 63 bytes (Postgres identifier limit), keeping head and tail
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "col"
	}
	if len(name) > 63 {
		name = name[:10] + name[len(name)-53:]
	}
	return name
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "t", "f", "yes", "no", "y", "n", "1", "0":
		return true
	}
	return false
}

// isReal accepts decimal or scientific notation; integers also qualify so a
// column mixing "1" and "1.5" infers as real.
func isReal(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func parseDateOrTimestamp(s string) (ok bool, hasTime bool) {
	for _, layout := range TimestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, true
		}
	}
	for _, layout := range DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, false
		}
	}
	return false, false
}
