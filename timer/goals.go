package timer

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

// =============================================================================
// GOALS - Savings targets funded from today's total
// =============================================================================

// NewGoal validates name and cost and assigns a fresh id.
func NewGoal(name string, cost decimal.Decimal) (Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Goal{}, &generic.ValidationError{Field: "goal name", Value: name, Reason: "must not be empty"}
	}
	if !cost.IsPositive() {
		return Goal{}, &generic.ValidationError{Field: "goal cost", Value: cost.String(), Reason: "must be positive"}
	}
	return Goal{ID: uuid.NewString(), Name: name, Cost: cost}, nil
}

// AddGoal appends a goal. Goals keep insertion order.
func (e *Engine) AddGoal(name string, cost decimal.Decimal) (Goal, error) {
	g, err := NewGoal(name, cost)
	if err != nil {
		return Goal{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Goals = append(e.state.Goals, g)
	return g, nil
}

// DeleteGoal removes the goal with id.
func (e *Engine) DeleteGoal(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, g := range e.state.Goals {
		if g.ID == id {
			e.state.Goals = append(e.state.Goals[:i:i], e.state.Goals[i+1:]...)
			return nil
		}
	}
	return generic.ErrGoalNotFound
}

// Goals returns the goals in insertion order.
func (e *Engine) Goals() []Goal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Goal(nil), e.state.Goals...)
}

// GoalProgress is how much of a goal today's total covers.
type GoalProgress struct {
	Goal
	Funded    generic.Amount
	Percent   decimal.Decimal // 0..100
	Completed bool
}

var hundred = decimal.NewFromInt(100)

// FundGoals pours total into goals in order: each goal takes
// max(0, min(remaining, cost)) and passes the rest on.
func FundGoals(goals []Goal, total generic.Amount) []GoalProgress {
	remaining := total.Value
	progress := make([]GoalProgress, 0, len(goals))

	for _, g := range goals {
		funded := decimal.Max(decimal.Zero, decimal.Min(remaining, g.Cost))
		remaining = remaining.Sub(funded)

		percent := decimal.Zero
		if g.Cost.IsPositive() {
			percent = decimal.Min(hundred, funded.Div(g.Cost).Mul(hundred))
		}
		progress = append(progress, GoalProgress{
			Goal:      g,
			Funded:    generic.NewAmountFromDecimal(funded, generic.UnitDollars),
			Percent:   percent,
			Completed: percent.GreaterThanOrEqual(hundred),
		})
	}
	return progress
}

// =============================================================================
// INPUT PARSING
// =============================================================================

// ParseRate parses a per-minute rate; it must be a positive number.
func ParseRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &generic.ValidationError{Field: "rate", Value: s, Reason: "must be a positive number"}
	}
	return d, nil
}

// ParseBalance parses an initial balance; it must be zero or more.
func ParseBalance(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero, &generic.ValidationError{Field: "initial balance", Value: s, Reason: "must be a number >= 0"}
	}
	return d, nil
}

// ParseCost parses a goal cost; it must be a positive number.
func ParseCost(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, &generic.ValidationError{Field: "goal cost", Value: s, Reason: "must be a positive number"}
	}
	return d, nil
}
