package timer

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

var (
	sixty       = decimal.NewFromInt(60)
	nanosPerS   = decimal.NewFromInt(int64(time.Second))
	zeroSeconds = decimal.Zero
)

// ElapsedSeconds converts a duration to fractional seconds. Negative
// durations (clock stepped backwards) count as zero.
func ElapsedSeconds(d time.Duration) decimal.Decimal {
	if d <= 0 {
		return zeroSeconds
	}
	return decimal.NewFromInt(int64(d)).Div(nanosPerS)
}

// SessionEarnings is elapsedSeconds/60 * ratePerMinute.
func SessionEarnings(elapsedSeconds, ratePerMinute decimal.Decimal) generic.Amount {
	return generic.NewAmountFromDecimal(elapsedSeconds.Mul(ratePerMinute).Div(sixty), generic.UnitDollars)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the call timer. It is safe for concurrent use; every method
// that depends on the current time takes it as an argument so callers
// decide which clock drives it.
type Engine struct {
	mu  sync.Mutex
	loc *time.Location

	state State

	inCall    bool
	callStart time.Time
	callEnded chan struct{} // closed when the current call stops or resets
}

// NewEngine builds an engine from persisted state. Calendar days are
// evaluated in loc (nil means time.Local).
func NewEngine(state State, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	if !state.RatePerMinute.IsPositive() {
		state.RatePerMinute = DefaultRatePerMinute
	}
	state.Goals = append([]Goal(nil), state.Goals...)
	return &Engine{state: state, loc: loc}
}

// Location is the time zone calendar days are evaluated in.
func (e *Engine) Location() *time.Location { return e.loc }

// Start begins a call at now. It returns false if a call is already running.
func (e *Engine) Start(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLocked(now)
}

// Tick returns the live reading at now. It never mutates the engine, so
// repeated calls with the same now return the same reading.
func (e *Engine) Tick(now time.Time) Reading {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readingLocked(now)
}

// TotalToday is initialBalance + savedEarnings, plus the running session.
func (e *Engine) TotalToday(now time.Time) generic.Amount {
	return e.Tick(now).TotalToday
}

// SecondsToday is the committed call time plus the running call.
func (e *Engine) SecondsToday(now time.Time) decimal.Decimal {
	return e.Tick(now).SecondsToday
}

// Stop ends the running call at now and commits it to the day's totals.
// It returns false, and changes nothing, when no call is running.
func (e *Engine) Stop(now time.Time) (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked(now)
}

// Toggle stops a running call or starts a new one.
func (e *Engine) Toggle(now time.Time) (Phase, Session) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if session, stopped := e.stopLocked(now); stopped {
		return PhaseIdle, session
	}
	e.startLocked(now)
	return PhaseInCall, Session{}
}

// Rollover resets the daily accumulators when now falls on a different
// calendar day than the last reset. A running call is left alone; its
// Stop commits into the new day. Returns true when a reset happened.
func (e *Engine) Rollover(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rolloverLocked(now)
}

func (e *Engine) rolloverLocked(now time.Time) bool {
	today := generic.DateOf(now, e.loc)
	if e.state.LastResetDate.Equal(today) {
		return false
	}
	e.state.SavedEarnings = decimal.Zero
	e.state.SavedSecondsToday = decimal.Zero
	e.state.LastResetDate = today
	return true
}

// Reset abandons any running call without committing it and clears the
// day's totals and the initial balance.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.inCall {
		e.endCallLocked()
	}
	e.state.SavedEarnings = decimal.Zero
	e.state.SavedSecondsToday = decimal.Zero
	e.state.InitialBalance = decimal.Zero
}

// SetRate changes the per-minute rate. Committed earnings keep the rate
// they were earned at.
func (e *Engine) SetRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return &generic.ValidationError{Field: "rate", Value: rate.String(), Reason: "must be positive"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.RatePerMinute = rate
	return nil
}

// SetInitialBalance sets the day-starting offset.
func (e *Engine) SetInitialBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return &generic.ValidationError{Field: "initial balance", Value: balance.String(), Reason: "must not be negative"}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.InitialBalance = balance
	return nil
}

// Snapshot returns a copy of the durable state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.state
	s.Goals = append([]Goal(nil), e.state.Goals...)
	return s
}

// Phase returns Idle or InCall.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inCall {
		return PhaseInCall
	}
	return PhaseIdle
}

// Watch emits a reading every interval while the current call runs. The
// channel is closed when the call stops, the engine is reset or ctx is
// done, so the refresh loop can never outlive the call. When no call is
// running the returned channel is already closed.
func (e *Engine) Watch(ctx context.Context, clock generic.Clock, interval time.Duration) <-chan Reading {
	out := make(chan Reading)

	e.mu.Lock()
	ended := e.callEnded
	inCall := e.inCall
	e.mu.Unlock()

	if !inCall {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ended:
				return
			case <-ticker.C:
				r := e.Tick(clock.Now())
				if !r.InCall() {
					return
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				case <-ended:
					return
				}
			}
		}
	}()
	return out
}

func (e *Engine) startLocked(now time.Time) bool {
	if e.inCall {
		return false
	}
	e.inCall = true
	e.callStart = now
	e.callEnded = make(chan struct{})
	return true
}

func (e *Engine) stopLocked(now time.Time) (Session, bool) {
	if !e.inCall {
		return Session{}, false
	}

	// A stop on a later day commits into that day, never into the one a
	// pending rollover is about to clear.
	e.rolloverLocked(now)

	elapsed := ElapsedSeconds(now.Sub(e.callStart))
	session := Session{
		Start:          e.callStart,
		End:            now,
		ElapsedSeconds: elapsed,
		Earnings:       SessionEarnings(elapsed, e.state.RatePerMinute),
	}

	e.state.SavedEarnings = e.state.SavedEarnings.Add(session.Earnings.Value)
	e.state.SavedSecondsToday = e.state.SavedSecondsToday.Add(elapsed)
	e.endCallLocked()
	return session, true
}

func (e *Engine) endCallLocked() {
	e.inCall = false
	e.callStart = time.Time{}
	if e.callEnded != nil {
		close(e.callEnded)
		e.callEnded = nil
	}
}

func (e *Engine) readingLocked(now time.Time) Reading {
	r := Reading{
		At:              now,
		Phase:           PhaseIdle,
		ElapsedSeconds:  decimal.Zero,
		SessionEarnings: generic.NewAmountFromDecimal(decimal.Zero, generic.UnitDollars),
		SavedEarnings:   generic.NewAmountFromDecimal(e.state.SavedEarnings, generic.UnitDollars),
		RatePerMinute:   e.state.RatePerMinute,
		InitialBalance:  generic.NewAmountFromDecimal(e.state.InitialBalance, generic.UnitDollars),
		SecondsToday:    e.state.SavedSecondsToday,
	}
	if e.inCall {
		r.Phase = PhaseInCall
		r.CallStart = e.callStart
		r.ElapsedSeconds = ElapsedSeconds(now.Sub(e.callStart))
		r.SessionEarnings = SessionEarnings(r.ElapsedSeconds, e.state.RatePerMinute)
		r.SecondsToday = r.SecondsToday.Add(r.ElapsedSeconds)
	}
	r.TotalToday = r.InitialBalance.Add(r.SavedEarnings).Add(r.SessionEarnings)
	return r
}
