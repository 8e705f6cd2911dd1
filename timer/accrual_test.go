package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/timer"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(rate string) *timer.Engine {
	state := timer.DefaultState()
	state.RatePerMinute = dec(rate)
	state.LastResetDate = generic.DateOf(t0, time.UTC)
	return timer.NewEngine(state, time.UTC)
}

// =============================================================================
// ACCRUAL
// =============================================================================

func TestEngine_TenMinuteCallAtDefaultRate(t *testing.T) {
	// GIVEN: rate 0.11/min, idle
	e := newEngine("0.11")

	// WHEN: a call runs 600 seconds
	require.True(t, e.Start(t0))
	session, ok := e.Stop(t0.Add(600 * time.Second))

	// THEN: the call earned 1.10 and the day holds 600 seconds
	require.True(t, ok)
	assert.True(t, session.Earnings.Value.Equal(dec("1.1")), "got %s", session.Earnings.Value)
	assert.True(t, session.ElapsedSeconds.Equal(dec("600")))

	r := e.Tick(t0.Add(601 * time.Second))
	assert.Equal(t, timer.PhaseIdle, r.Phase)
	assert.True(t, r.TotalToday.Value.Equal(dec("1.1")))
	assert.True(t, r.SecondsToday.Equal(dec("600")))
}

func TestEngine_TickDuringCallIncludesInitialBalance(t *testing.T) {
	// GIVEN: initial balance 2, rate 0.60/min (1 cent per second)
	e := newEngine("0.60")
	require.NoError(t, e.SetInitialBalance(dec("2")))
	e.Start(t0)

	// WHEN: 30 seconds in
	r := e.Tick(t0.Add(30 * time.Second))

	// THEN: total = 2 + 0 + 0.30
	assert.True(t, r.InCall())
	assert.True(t, r.SessionEarnings.Value.Equal(dec("0.3")))
	assert.True(t, r.TotalToday.Value.Equal(dec("2.3")))
	assert.True(t, r.SecondsToday.Equal(dec("30")))
	assert.Equal(t, t0, r.CallStart)
}

func TestEngine_FractionalSecondsAreNotFloored(t *testing.T) {
	e := newEngine("0.60")
	e.Start(t0)

	r := e.Tick(t0.Add(1500 * time.Millisecond))

	assert.True(t, r.ElapsedSeconds.Equal(dec("1.5")))
	assert.True(t, r.SessionEarnings.Value.Equal(dec("0.015")))
}

func TestEngine_TickIsIdempotent(t *testing.T) {
	e := newEngine("0.11")
	e.Start(t0)
	at := t0.Add(42 * time.Second)

	first := e.Tick(at)
	second := e.Tick(at)

	assert.Equal(t, first, second)
}

func TestEngine_StartTwiceKeepsOriginalStart(t *testing.T) {
	e := newEngine("0.11")
	require.True(t, e.Start(t0))

	assert.False(t, e.Start(t0.Add(time.Minute)))
	assert.Equal(t, t0, e.Tick(t0.Add(2*time.Minute)).CallStart)
}

func TestEngine_StopWhenIdleIsNoop(t *testing.T) {
	e := newEngine("0.11")
	e.Start(t0)
	_, ok := e.Stop(t0.Add(time.Minute))
	require.True(t, ok)
	before := e.Snapshot()

	// WHEN: stop again
	_, ok = e.Stop(t0.Add(2 * time.Minute))

	// THEN: nothing changes
	assert.False(t, ok)
	assert.Equal(t, before, e.Snapshot())
}

func TestEngine_ClockSteppedBackwardsCountsAsZero(t *testing.T) {
	e := newEngine("0.11")
	e.Start(t0)

	session, ok := e.Stop(t0.Add(-time.Minute))

	require.True(t, ok)
	assert.True(t, session.ElapsedSeconds.IsZero())
	assert.True(t, session.Earnings.IsZero())
}

func TestEngine_Toggle(t *testing.T) {
	e := newEngine("0.60")

	phase, _ := e.Toggle(t0)
	assert.Equal(t, timer.PhaseInCall, phase)
	assert.Equal(t, timer.PhaseInCall, e.Phase())

	phase, session := e.Toggle(t0.Add(10 * time.Second))
	assert.Equal(t, timer.PhaseIdle, phase)
	assert.True(t, session.Earnings.Value.Equal(dec("0.1")))
	assert.Equal(t, timer.PhaseIdle, e.Phase())
}

// =============================================================================
// RATE CHANGES
// =============================================================================

func TestEngine_RateChangeIsProspective(t *testing.T) {
	// GIVEN: one committed minute at 0.60
	e := newEngine("0.60")
	e.Start(t0)
	e.Stop(t0.Add(time.Minute))

	// WHEN: the rate doubles and another minute runs
	require.NoError(t, e.SetRate(dec("1.20")))
	e.Start(t0.Add(2 * time.Minute))
	e.Stop(t0.Add(3 * time.Minute))

	// THEN: the first minute keeps its rate
	assert.True(t, e.Snapshot().SavedEarnings.Equal(dec("1.8")))
}

func TestEngine_RejectsInvalidRateAndBalance(t *testing.T) {
	e := newEngine("0.11")

	err := e.SetRate(dec("0"))
	assert.ErrorIs(t, err, generic.ErrValidation)
	err = e.SetRate(dec("-1"))
	assert.ErrorIs(t, err, generic.ErrValidation)
	err = e.SetInitialBalance(dec("-0.01"))
	assert.ErrorIs(t, err, generic.ErrValidation)

	assert.NoError(t, e.SetInitialBalance(decimal.Zero))
	assert.True(t, e.Snapshot().RatePerMinute.Equal(dec("0.11")))
}

func TestNewEngine_NonPositiveRateFallsBackToDefault(t *testing.T) {
	e := timer.NewEngine(timer.State{}, time.UTC)

	assert.True(t, e.Snapshot().RatePerMinute.Equal(timer.DefaultRatePerMinute))
}

// =============================================================================
// DAILY ROLLOVER
// =============================================================================

func TestEngine_RolloverClearsDayOnce(t *testing.T) {
	// GIVEN: a committed call yesterday
	e := newEngine("0.60")
	require.NoError(t, e.SetInitialBalance(dec("5")))
	e.Start(t0)
	e.Stop(t0.Add(time.Minute))

	// WHEN: the date changes
	tomorrow := t0.Add(24 * time.Hour)
	assert.True(t, e.Rollover(tomorrow))
	assert.False(t, e.Rollover(tomorrow.Add(time.Hour)))

	// THEN: accumulators cleared, initial balance kept
	s := e.Snapshot()
	assert.True(t, s.SavedEarnings.IsZero())
	assert.True(t, s.SavedSecondsToday.IsZero())
	assert.True(t, s.InitialBalance.Equal(dec("5")))
	assert.Equal(t, "2026-03-03", s.LastResetDate.String())
}

func TestEngine_RolloverSameDayIsNoop(t *testing.T) {
	e := newEngine("0.60")
	e.Start(t0)
	e.Stop(t0.Add(time.Minute))

	assert.False(t, e.Rollover(t0.Add(2*time.Hour)))
	assert.True(t, e.Snapshot().SavedEarnings.Equal(dec("0.6")))
}

func TestEngine_RolloverUsesConfiguredLocation(t *testing.T) {
	// GIVEN: a New York engine last reset on 2026-03-01 local
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	state := timer.DefaultState()
	state.LastResetDate = generic.MustParseDate("2026-03-01")
	e := timer.NewEngine(state, ny)

	// WHEN: 02:00 UTC on 03-02, which is still 03-01 in New York
	changed := e.Rollover(time.Date(2026, time.March, 2, 2, 0, 0, 0, time.UTC))

	// THEN: no reset
	assert.False(t, changed)
}

func TestEngine_CallAcrossMidnightCommitsIntoNewDay(t *testing.T) {
	e := newEngine("0.60")
	start := time.Date(2026, time.March, 2, 23, 59, 0, 0, time.UTC)
	e.Start(start)

	require.True(t, e.Rollover(start.Add(2*time.Minute)))
	assert.Equal(t, timer.PhaseInCall, e.Phase())

	e.Stop(start.Add(2 * time.Minute))
	assert.True(t, e.Snapshot().SavedEarnings.Equal(dec("1.2")))
}

func TestEngine_StopAfterMidnightWithoutRolloverKeepsSession(t *testing.T) {
	e := newEngine("0.60")
	start := time.Date(2026, time.March, 2, 23, 55, 0, 0, time.UTC)

	// GIVEN: a call started before midnight and no rollover in between
	e.Start(start)

	// WHEN: it stops ten minutes later, on the next day
	session, ok := e.Stop(start.Add(10 * time.Minute))

	// THEN: the whole session lands in the new day
	require.True(t, ok)
	assert.True(t, session.Earnings.Value.Equal(dec("6")))
	s := e.Snapshot()
	assert.True(t, s.SavedEarnings.Equal(dec("6")))
	assert.True(t, s.SavedSecondsToday.Equal(dec("600")))
	assert.Equal(t, "2026-03-03", s.LastResetDate.String())

	// AND: a later rollover on the same day keeps it
	assert.False(t, e.Rollover(start.Add(20*time.Minute)))
	assert.True(t, e.Snapshot().SavedEarnings.Equal(dec("6")))
}

// =============================================================================
// RESET
// =============================================================================

func TestEngine_ResetAbandonsCall(t *testing.T) {
	e := newEngine("0.60")
	require.NoError(t, e.SetInitialBalance(dec("3")))
	e.Start(t0)
	e.Stop(t0.Add(time.Minute))
	e.Start(t0.Add(2 * time.Minute))

	e.Reset()

	s := e.Snapshot()
	assert.Equal(t, timer.PhaseIdle, e.Phase())
	assert.True(t, s.SavedEarnings.IsZero())
	assert.True(t, s.SavedSecondsToday.IsZero())
	assert.True(t, s.InitialBalance.IsZero())
	assert.True(t, s.RatePerMinute.Equal(dec("0.60")))
	assert.True(t, e.Tick(t0.Add(5*time.Minute)).TotalToday.IsZero())
}

// =============================================================================
// WATCH
// =============================================================================

func TestEngine_WatchClosedWhenIdle(t *testing.T) {
	e := newEngine("0.11")

	ch := e.Watch(context.Background(), generic.NewManualClock(t0), time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
}

func TestEngine_WatchEmitsUntilStop(t *testing.T) {
	clock := generic.NewManualClock(t0)
	e := newEngine("0.60")
	e.Start(t0)
	clock.Advance(10 * time.Second)

	ch := e.Watch(context.Background(), clock, time.Millisecond)

	r, open := <-ch
	require.True(t, open)
	assert.True(t, r.InCall())
	assert.True(t, r.SessionEarnings.Value.Equal(dec("0.1")))

	e.Stop(clock.Now())
	assert.Eventually(t, func() bool {
		for range ch {
		}
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestEngine_WatchStopsOnContextCancel(t *testing.T) {
	e := newEngine("0.11")
	e.Start(t0)
	ctx, cancel := context.WithCancel(context.Background())

	ch := e.Watch(ctx, generic.NewManualClock(t0), time.Millisecond)
	cancel()

	assert.Eventually(t, func() bool {
		for range ch {
		}
		return true
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, timer.PhaseInCall, e.Phase())
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00", timer.FormatClock(decimal.Zero))
	assert.Equal(t, "00:10:00", timer.FormatClock(dec("600")))
	assert.Equal(t, "01:01:01", timer.FormatClock(dec("3661.9")))
	assert.Equal(t, "00:00:00", timer.FormatClock(dec("-5")))
}
