package timer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

// Settings keys. Values are plain strings; goals are a JSON list.
const (
	KeyRatePerMinute     = "ratePerMinute"
	KeyInitialBalance    = "initialBalance"
	KeySavedEarnings     = "savedEarnings"
	KeySavedSecondsToday = "savedSecondsToday"
	KeyLastResetDate     = "lastResetDate"
	KeyGoals             = "goals"
	KeyNickname          = "nickname"
	KeyLastSyncTime      = "lastSyncTime"
)

// LoadState reads the durable timer state. Missing or unreadable values
// fall back to their defaults so a damaged setting never blocks startup.
func LoadState(ctx context.Context, settings generic.Settings) (State, error) {
	state := DefaultState()

	get := func(key string) (string, bool, error) {
		v, ok, err := settings.Get(ctx, key)
		if err != nil {
			return "", false, fmt.Errorf("read setting %s: %w", key, err)
		}
		return v, ok && v != "", nil
	}

	if v, ok, err := get(KeyRatePerMinute); err != nil {
		return State{}, err
	} else if ok {
		if d, err := decimal.NewFromString(v); err == nil && d.IsPositive() {
			state.RatePerMinute = d
		}
	}

	for key, dst := range map[string]*decimal.Decimal{
		KeyInitialBalance:    &state.InitialBalance,
		KeySavedEarnings:     &state.SavedEarnings,
		KeySavedSecondsToday: &state.SavedSecondsToday,
	} {
		v, ok, err := get(key)
		if err != nil {
			return State{}, err
		}
		if !ok {
			continue
		}
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			*dst = d
		}
	}

	if v, ok, err := get(KeyLastResetDate); err != nil {
		return State{}, err
	} else if ok {
		if tp, err := generic.ParseDate(v); err == nil {
			state.LastResetDate = tp
		}
	}

	if v, ok, err := get(KeyGoals); err != nil {
		return State{}, err
	} else if ok {
		var goals []Goal
		if err := json.Unmarshal([]byte(v), &goals); err == nil {
			state.Goals = goals
		}
	}

	return state, nil
}

// SaveState writes every durable field.
func SaveState(ctx context.Context, settings generic.Settings, state State) error {
	goals := state.Goals
	if goals == nil {
		goals = []Goal{}
	}
	goalsJSON, err := json.Marshal(goals)
	if err != nil {
		return fmt.Errorf("encode goals: %w", err)
	}

	lastReset := ""
	if !state.LastResetDate.IsZero() {
		lastReset = state.LastResetDate.String()
	}

	values := []struct{ key, value string }{
		{KeyRatePerMinute, state.RatePerMinute.String()},
		{KeyInitialBalance, state.InitialBalance.String()},
		{KeySavedEarnings, state.SavedEarnings.String()},
		{KeySavedSecondsToday, state.SavedSecondsToday.String()},
		{KeyLastResetDate, lastReset},
		{KeyGoals, string(goalsJSON)},
	}
	for _, kv := range values {
		if err := settings.Set(ctx, kv.key, kv.value); err != nil {
			return fmt.Errorf("write setting %s: %w", kv.key, err)
		}
	}
	return nil
}
