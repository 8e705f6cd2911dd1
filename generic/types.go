/*
Package generic provides the domain-agnostic building blocks of the tracker.

PURPOSE:
  This package holds the pieces that both the call timer and the
  leaderboard/statistics views depend on, without knowing about either:
  calendar dates, pay periods, money amounts, the collaborator contracts
  (document store, settings, clock) and the shared error taxonomy.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal money quantity tagged with its unit
  - Nickname: The public identifier a worker appears under

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never float64 arithmetic
  2. Determinism: Periods are pure functions of a reference date
  3. Injection: Store, settings and clock are interfaces handed in by callers

USAGE:
  earned := generic.NewAmountFromDecimal(decimal.RequireFromString("1.10"), generic.UnitDollars)
  total := balance.Add(earned)
  fmt.Println(total.StringFixed(2))

SEE ALSO:
  - period.go: Biweekly and monthly pay periods
  - store.go: Document store and settings contracts
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

type Unit string

const UnitDollars Unit = "dollars"

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool       { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) Float64() float64          { f, _ := a.Value.Float64(); return f }

// StringFixed renders the value rounded to places decimals ("1.10").
func (a Amount) StringFixed(places int32) string { return a.Value.StringFixed(places) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Nickname is the leaderboard identity of a worker. Stored nicknames are
// canonical (trimmed, lower-case); see cloud.NormalizeNickname.
type Nickname string
