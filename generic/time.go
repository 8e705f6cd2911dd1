package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date (day granularity)
// =============================================================================

// ISODate is the layout every persisted date uses.
const ISODate = "2006-01-02"

// TimePoint is a calendar date. The wrapped time is always midnight UTC so
// that day arithmetic never crosses a DST boundary.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date t falls on in loc. A nil loc means t's
// own location.
func DateOf(t time.Time, loc *time.Location) TimePoint {
	if loc != nil {
		t = t.In(loc)
	}
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return TimePoint{}, &ValidationError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return TimePoint{Time: t}, nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) TimePoint {
	tp, err := ParseDate(s)
	if err != nil {
		panic(fmt.Sprintf("generic: bad date %q", s))
	}
	return tp
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.Time.Before(other.Time) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.Time.Equal(other.Time) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.Time.After(other.Time) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

// String returns the ISO form, e.g. "2026-02-21".
func (tp TimePoint) String() string { return tp.Time.Format(ISODate) }

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the number of whole days from -> to. Negative when to
// precedes from. Both points sit on UTC midnight, so the division is exact.
// Unix seconds are used because time.Duration saturates past ~292 years.
func DaysBetween(from, to TimePoint) int {
	return int((to.Time.Unix() - from.Time.Unix()) / 86400)
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return NewTimePoint(year, month+1, 1).AddDays(-1)
}
