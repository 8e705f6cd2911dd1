/*
Package timer implements the call timer: the accrual engine that turns
time spent on calls into earnings at a per-minute rate.

PURPOSE:
  A worker presses start when a call begins and stop when it ends. While
  a call is running the engine reports a live reading; on stop the call's
  earnings are committed to the day's accumulator. The accumulator resets
  when the local calendar date changes.

STATES:
  Idle   -- Start -->  InCall
  InCall -- Stop  -->  Idle   (commits elapsed seconds and earnings)
  InCall -- Reset -->  Idle   (abandons the call, commits nothing)

  Start while InCall and Stop while Idle are no-ops.

ACCRUAL:
  elapsedSeconds  = now - callStart        (fractional, never floored)
  sessionEarnings = elapsedSeconds/60 * ratePerMinute
  totalToday      = initialBalance + savedEarnings + sessionEarnings (InCall only)

  Rate changes apply to future readings only; committed earnings are
  never rescaled.

PERSISTENCE:
  The engine itself is in-memory. persist.go loads and saves the durable
  part (State) through generic.Settings. The call start is deliberately
  not persisted: a restart during a call loses that call.

SEE ALSO:
  - accrual.go: Engine
  - goals.go: Savings goals and sequential funding
  - persist.go: Settings keys
*/
package timer

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

// DefaultRatePerMinute is used until the worker configures a rate.
var DefaultRatePerMinute = decimal.RequireFromString("0.11")

// Phase is the engine's state machine position.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseInCall Phase = "in_call"
)

// State is the durable part of the local timer.
type State struct {
	RatePerMinute     decimal.Decimal
	InitialBalance    decimal.Decimal
	SavedEarnings     decimal.Decimal
	SavedSecondsToday decimal.Decimal
	LastResetDate     generic.TimePoint
	Goals             []Goal
}

// DefaultState is the state of a device that has never been configured.
func DefaultState() State {
	return State{RatePerMinute: DefaultRatePerMinute}
}

// Goal is a user-defined savings target.
type Goal struct {
	ID   string          `json:"id"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// Reading is a point-in-time view of the engine. Producing one never
// changes engine state.
type Reading struct {
	At              time.Time
	Phase           Phase
	CallStart       time.Time       // zero when idle
	ElapsedSeconds  decimal.Decimal // current call, zero when idle
	SessionEarnings generic.Amount  // current call, zero when idle
	SavedEarnings   generic.Amount
	TotalToday      generic.Amount
	SecondsToday    decimal.Decimal
	RatePerMinute   decimal.Decimal
	InitialBalance  generic.Amount
}

// InCall reports whether the reading was taken during a call.
func (r Reading) InCall() bool { return r.Phase == PhaseInCall }

// Session is the result of a committed call.
type Session struct {
	Start          time.Time
	End            time.Time
	ElapsedSeconds decimal.Decimal
	Earnings       generic.Amount
}
