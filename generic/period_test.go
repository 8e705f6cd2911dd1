package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/generic"
)

func date(s string) generic.TimePoint { return generic.MustParseDate(s) }

// =============================================================================
// BIWEEKLY PERIOD TESTS
// =============================================================================

func TestBiweeklyPeriod_InsideAnchorCycle(t *testing.T) {
	// GIVEN: anchor 2026-02-21, reference 2026-02-25
	// THEN: period is the anchor cycle [02-21, 03-06]
	p := generic.BiweeklyPeriod(generic.DefaultBiweeklyAnchor, date("2026-02-25"))

	assert.Equal(t, "2026-02-21", p.Start.String())
	assert.Equal(t, "2026-03-06", p.End.String())
}

func TestBiweeklyPeriod_DayBeforeAnchorIsPreviousCycle(t *testing.T) {
	p := generic.BiweeklyPeriod(generic.DefaultBiweeklyAnchor, date("2026-02-20"))

	assert.Equal(t, "2026-02-07", p.Start.String())
	assert.Equal(t, "2026-02-20", p.End.String())
	assert.Equal(t, -1, generic.CycleIndex(generic.DefaultBiweeklyAnchor, date("2026-02-20")))
}

func TestBiweeklyPeriod_CycleBoundaries(t *testing.T) {
	tests := []struct {
		ref, start, end string
	}{
		{"2026-02-21", "2026-02-21", "2026-03-06"},
		{"2026-03-06", "2026-02-21", "2026-03-06"},
		{"2026-03-07", "2026-03-07", "2026-03-20"},
		{"2026-02-07", "2026-02-07", "2026-02-20"},
		{"2026-02-06", "2026-01-24", "2026-02-06"},
		{"2025-12-31", "2025-12-27", "2026-01-09"},
		{"2027-01-01", "2026-12-26", "2027-01-08"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			p := generic.BiweeklyPeriod(generic.DefaultBiweeklyAnchor, date(tt.ref))
			assert.Equal(t, tt.start, p.Start.String())
			assert.Equal(t, tt.end, p.End.String())
			assert.True(t, p.Contains(date(tt.ref)))
		})
	}
}

func TestBiweeklyPeriod_AlwaysFourteenDaysAndMonotonic(t *testing.T) {
	// GIVEN: every day across two years straddling the anchor
	anchor := generic.DefaultBiweeklyAnchor
	ref := date("2025-06-01")
	prevCycle := generic.CycleIndex(anchor, ref)

	for i := 0; i < 730; i++ {
		p := generic.BiweeklyPeriod(anchor, ref)

		// THEN: end - start is 13 days and the window holds the reference
		require.Equal(t, 13, generic.DaysBetween(p.Start, p.End), "ref %s", ref)
		require.Equal(t, 14, p.Len())
		require.True(t, p.Contains(ref), "ref %s not in %s", ref, p)

		// AND: cycle index never decreases
		cycle := generic.CycleIndex(anchor, ref)
		require.GreaterOrEqual(t, cycle, prevCycle)
		prevCycle = cycle

		ref = ref.AddDays(1)
	}
}

func TestBiweeklyPeriod_FarFromAnchor(t *testing.T) {
	anchor := generic.DefaultBiweeklyAnchor

	for _, ref := range []string{"1700-01-05", "1900-12-31", "2400-06-30", "2999-02-28"} {
		p := generic.BiweeklyPeriod(anchor, date(ref))

		assert.Equal(t, 14, p.Len(), "ref %s", ref)
		assert.True(t, p.Contains(date(ref)), "ref %s not in %s", ref, p)
		assert.Zero(t, generic.DaysBetween(anchor, p.Start)%14, "ref %s", ref)
	}
}

func TestDaysBetween_Centuries(t *testing.T) {
	assert.Equal(t, 146097, generic.DaysBetween(date("2000-01-01"), date("2400-01-01")))
	assert.Equal(t, -146097, generic.DaysBetween(date("2400-01-01"), date("2000-01-01")))
}

func TestPeriodConfig_ZeroAnchorUsesDefault(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodBiweekly}
	p := pc.PeriodFor(date("2026-03-10"))
	assert.Equal(t, "2026-03-07", p.Start.String())
}

func TestPeriodConfig_CustomAnchor(t *testing.T) {
	pc := generic.PeriodConfig{Type: generic.PeriodBiweekly, Anchor: date("2026-01-05")}
	p := pc.PeriodFor(date("2026-01-20"))
	assert.Equal(t, "2026-01-19", p.Start.String())
	assert.Equal(t, "2026-02-01", p.End.String())
}

// =============================================================================
// MONTHLY PERIOD TESTS
// =============================================================================

func TestMonthlyPeriod(t *testing.T) {
	tests := []struct {
		ref, start, end string
	}{
		{"2026-02-14", "2026-02-01", "2026-02-28"},
		{"2028-02-29", "2028-02-01", "2028-02-29"},
		{"2026-12-31", "2026-12-01", "2026-12-31"},
		{"2026-04-01", "2026-04-01", "2026-04-30"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			p := generic.PeriodConfig{Type: generic.PeriodMonthly}.PeriodFor(date(tt.ref))
			assert.Equal(t, tt.start, p.Start.String())
			assert.Equal(t, tt.end, p.End.String())
		})
	}
}

func TestParsePeriodType(t *testing.T) {
	pt, err := generic.ParsePeriodType("")
	require.NoError(t, err)
	assert.Equal(t, generic.PeriodBiweekly, pt)

	pt, err = generic.ParsePeriodType(" Monthly ")
	require.NoError(t, err)
	assert.Equal(t, generic.PeriodMonthly, pt)

	_, err = generic.ParsePeriodType("weekly")
	assert.ErrorIs(t, err, generic.ErrValidation)
}

// =============================================================================
// DAYS IN RANGE TESTS
// =============================================================================

func TestDaysInRange(t *testing.T) {
	days := generic.DaysInRange(date("2026-02-26"), date("2026-03-02"))

	assert.Equal(t, []string{"2026-02-26", "2026-02-27", "2026-02-28", "2026-03-01", "2026-03-02"}, days)
}

func TestDaysInRange_LengthMatchesSpan(t *testing.T) {
	start := date("2026-01-01")
	for span := 0; span < 70; span++ {
		end := start.AddDays(span)
		days := generic.DaysInRange(start, end)

		require.Len(t, days, generic.DaysBetween(start, end)+1)
		assert.Equal(t, start.String(), days[0])
		assert.Equal(t, end.String(), days[len(days)-1])
	}
}

func TestDaysInRange_InvertedIsEmpty(t *testing.T) {
	assert.Empty(t, generic.DaysInRange(date("2026-03-02"), date("2026-03-01")))
	assert.Equal(t, 0, generic.Period{Start: date("2026-03-02"), End: date("2026-03-01")}.Len())
}

func TestDaysInRange_Restartable(t *testing.T) {
	p := generic.MonthlyPeriod(date("2026-03-15"))
	assert.Equal(t, p.DayStrings(), p.DayStrings())
	assert.Len(t, p.Days(), 31)
}

func TestPeriod_NextAndPrevious(t *testing.T) {
	p := generic.BiweeklyPeriod(generic.DefaultBiweeklyAnchor, date("2026-02-25"))

	assert.Equal(t, "[2026-03-07, 2026-03-20]", p.NextPeriod().String())
	assert.Equal(t, "[2026-02-07, 2026-02-20]", p.PreviousPeriod().String())
}

// =============================================================================
// TIME POINT TESTS
// =============================================================================

func TestDateOf_UsesLocationCalendarDay(t *testing.T) {
	// 2026-03-01 03:00 UTC is still Feb 28 in New York
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	instant := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-02-28", generic.DateOf(instant, ny).String())
	assert.Equal(t, "2026-03-01", generic.DateOf(instant, time.UTC).String())
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	assert.Equal(t, 1, generic.DaysBetween(date("2026-03-07"), date("2026-03-08")))
	assert.Equal(t, 31, generic.DaysBetween(date("2026-03-01"), date("2026-04-01")))
	assert.Equal(t, -14, generic.DaysBetween(date("2026-02-21"), date("2026-02-07")))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 0, generic.FloorDiv(13, 14))
	assert.Equal(t, 1, generic.FloorDiv(14, 14))
	assert.Equal(t, -1, generic.FloorDiv(-1, 14))
	assert.Equal(t, -1, generic.FloorDiv(-14, 14))
	assert.Equal(t, -2, generic.FloorDiv(-15, 14))
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := generic.ParseDate("2026/02/21")
	var verr *generic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "date", verr.Field)
}
