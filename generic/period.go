package generic

import "strings"

// =============================================================================
// PERIOD - The window earnings are grouped and compared over
// =============================================================================

// Period is a closed date interval [Start, End]. Both ends are included.
//
// Examples:
//   - Biweekly pay period: 2026-02-21 .. 2026-03-06
//   - Calendar month: 2026-03-01 .. 2026-03-31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Len is the number of calendar days in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	days := make([]TimePoint, 0, p.Len())
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// DayStrings returns every day of the period in ISO form.
func (p Period) DayStrings() []string {
	return DaysInRange(p.Start, p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// NextPeriod returns the period of the same length following this one.
func (p Period) NextPeriod() Period {
	newStart := p.End.AddDays(1)
	return Period{Start: newStart, End: newStart.AddDays(DaysBetween(p.Start, p.End))}
}

// PreviousPeriod returns the period of the same length before this one.
func (p Period) PreviousPeriod() Period {
	newEnd := p.Start.AddDays(-1)
	return Period{Start: newEnd.AddDays(-DaysBetween(p.Start, p.End)), End: newEnd}
}

// DaysInRange enumerates every calendar date from start to end inclusive,
// ISO formatted. An inverted range yields an empty slice.
func DaysInRange(start, end TimePoint) []string {
	var days []string
	for current := start; current.BeforeOrEqual(end); current = current.AddDays(1) {
		days = append(days, current.String())
	}
	return days
}

// =============================================================================
// PERIOD TYPES
// =============================================================================

// PeriodType selects how a pay period is derived from a reference date.
type PeriodType string

const (
	PeriodBiweekly PeriodType = "biweekly" // 14 days, aligned on an anchor date
	PeriodMonthly  PeriodType = "monthly"  // calendar month
)

// BiweeklyLength is the number of days in a biweekly cycle.
const BiweeklyLength = 14

// DefaultBiweeklyAnchor is the first day of a known pay cycle.
var DefaultBiweeklyAnchor = NewTimePoint(2026, 2, 21)

// ParsePeriodType accepts "biweekly" or "monthly" (case-insensitive). An
// empty selector means biweekly.
func ParsePeriodType(s string) (PeriodType, error) {
	switch PeriodType(strings.ToLower(strings.TrimSpace(s))) {
	case "", PeriodBiweekly:
		return PeriodBiweekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	default:
		return "", &ValidationError{Field: "period", Value: s, Reason: "must be biweekly or monthly"}
	}
}

// PeriodConfig defines how to calculate periods.
type PeriodConfig struct {
	Type PeriodType

	// For biweekly: the start of any one cycle. Zero means DefaultBiweeklyAnchor.
	Anchor TimePoint
}

// =============================================================================
// PERIOD CALCULATOR - Determines which period a date falls into
// =============================================================================

// PeriodFor returns the period that contains the given date
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	switch pc.Type {
	case PeriodMonthly:
		return MonthlyPeriod(date)
	default:
		anchor := pc.Anchor
		if anchor.IsZero() {
			anchor = DefaultBiweeklyAnchor
		}
		return BiweeklyPeriod(anchor, date)
	}
}

// CycleIndex is the number of whole biweekly cycles between anchor and date,
// negative for dates before the anchor.
func CycleIndex(anchor, date TimePoint) int {
	return FloorDiv(DaysBetween(anchor, date), BiweeklyLength)
}

// BiweeklyPeriod returns the 14-day window, aligned on anchor, containing date.
func BiweeklyPeriod(anchor, date TimePoint) Period {
	start := anchor.AddDays(CycleIndex(anchor, date) * BiweeklyLength)
	return Period{Start: start, End: start.AddDays(BiweeklyLength - 1)}
}

// MonthlyPeriod returns the calendar month containing date.
func MonthlyPeriod(date TimePoint) Period {
	return Period{
		Start: StartOfMonth(date.Year(), date.Month()),
		End:   EndOfMonth(date.Year(), date.Month()),
	}
}
