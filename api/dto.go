/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. The cli
  package decodes the same types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts are sent as JSON numbers (float64) for display. Requests accept
  numbers or numeric strings and are parsed as decimals.

SEE ALSO:
  - handlers.go: Uses these types
  - cli/client.go: Decodes these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/earnings"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/timer"
)

// =============================================================================
// TIMER
// =============================================================================

// TodayDTO is the live view of the local timer.
type TodayDTO struct {
	Date            string            `json:"date"`
	Phase           string            `json:"phase"`
	CallStart       string            `json:"call_start,omitempty"`
	ElapsedSeconds  float64           `json:"elapsed_seconds"`
	SessionEarnings float64           `json:"session_earnings"`
	SavedEarnings   float64           `json:"saved_earnings"`
	InitialBalance  float64           `json:"initial_balance"`
	TotalToday      float64           `json:"total_today"`
	SecondsToday    float64           `json:"seconds_today"`
	Clock           string            `json:"clock"` // HH:MM:SS of SecondsToday
	RatePerMinute   float64           `json:"rate_per_minute"`
	Goals           []GoalProgressDTO `json:"goals"`
	Nickname        string            `json:"nickname,omitempty"`
	SyncStatus      string            `json:"sync_status,omitempty"`
	SyncError       string            `json:"sync_error,omitempty"`
	LastSyncTime    string            `json:"last_sync_time,omitempty"`
}

// ReadingDTO is one frame of the live call stream.
type ReadingDTO struct {
	At              string  `json:"at"`
	Phase           string  `json:"phase"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	SessionEarnings float64 `json:"session_earnings"`
	TotalToday      float64 `json:"total_today"`
	SecondsToday    float64 `json:"seconds_today"`
	Clock           string  `json:"clock"`
}

// SessionDTO is a committed call.
type SessionDTO struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Earnings       float64 `json:"earnings"`
}

// CallResponse is returned by start/stop/toggle.
type CallResponse struct {
	Changed bool        `json:"changed"`
	Session *SessionDTO `json:"session,omitempty"`
	Today   TodayDTO    `json:"today"`
}

// UpdateSettingsRequest changes the rate and/or initial balance.
type UpdateSettingsRequest struct {
	RatePerMinute  *decimal.Decimal `json:"rate_per_minute,omitempty"`
	InitialBalance *decimal.Decimal `json:"initial_balance,omitempty"`
}

// =============================================================================
// GOALS
// =============================================================================

// GoalDTO is a savings goal.
type GoalDTO struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// GoalProgressDTO is a goal with how much of it today's total covers.
type GoalProgressDTO struct {
	GoalDTO
	Funded    float64 `json:"funded"`
	Percent   float64 `json:"percent"`
	Completed bool    `json:"completed"`
}

// CreateGoalRequest adds a goal.
type CreateGoalRequest struct {
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

// =============================================================================
// SHARED RECORDS
// =============================================================================

// RecordDTO is a daily earnings record.
type RecordDTO struct {
	Nickname         string  `json:"nickname"`
	Date             string  `json:"date"`
	AutoMinutes      float64 `json:"auto_minutes"`
	AutoEarnings     float64 `json:"auto_earnings"`
	AdjustmentAmount float64 `json:"adjustment_amount"`
	AdjustmentNote   string  `json:"adjustment_note,omitempty"`
	TotalEarnings    float64 `json:"total_earnings"`
	UpdatedAt        string  `json:"updated_at,omitempty"`
}

// SyncResponse is returned by POST /sync.
type SyncResponse struct {
	Synced       bool       `json:"synced"`
	Reason       string     `json:"reason,omitempty"`
	Record       *RecordDTO `json:"record,omitempty"`
	LastSyncTime string     `json:"last_sync_time,omitempty"`
}

// AdjustmentRequest overrides today's shared total.
type AdjustmentRequest struct {
	CorrectedTotal decimal.Decimal `json:"corrected_total"`
	Note           string          `json:"note,omitempty"`
}

// NicknameDTO carries a nickname both ways.
type NicknameDTO struct {
	Nickname string `json:"nickname"`
}

// =============================================================================
// STATS AND LEADERBOARD
// =============================================================================

// PeriodDTO is a pay period.
type PeriodDTO struct {
	Type  string   `json:"type"`
	Start string   `json:"start"`
	End   string   `json:"end"`
	Days  []string `json:"days"`
}

// DayValueDTO is one bar of the personal chart.
type DayValueDTO struct {
	Day      string  `json:"day"`
	Earnings float64 `json:"earnings"`
	Minutes  float64 `json:"minutes"`
}

// StatsDTO is the personal period summary.
type StatsDTO struct {
	Nickname      string        `json:"nickname"`
	Period        PeriodDTO     `json:"period"`
	TotalEarnings float64       `json:"total_earnings"`
	TotalMinutes  float64       `json:"total_minutes"`
	DaysWithData  int           `json:"days_with_data"`
	DaysInPeriod  int           `json:"days_in_period"`
	AvgEarnings   float64       `json:"avg_earnings"`
	AvgMinutes    float64       `json:"avg_minutes"`
	ActivePercent float64       `json:"active_percent"`
	Daily         []DayValueDTO `json:"daily"`
	DailyMax      float64       `json:"daily_max"`
}

// StandingDTO is a leaderboard row.
type StandingDTO struct {
	Position       int       `json:"position"`
	Nickname       string    `json:"nickname"`
	Total          float64   `json:"total"`
	TotalMinutes   float64   `json:"total_minutes"`
	DiffToPrevious float64   `json:"diff_to_previous"`
	Share          float64   `json:"share"`
	Color          string    `json:"color"`
	IsYou          bool      `json:"is_you,omitempty"`
	Series         []float64 `json:"series"`
}

// LeaderboardDTO is the shared period ranking.
type LeaderboardDTO struct {
	Period      PeriodDTO     `json:"period"`
	Standings   []StandingDTO `json:"standings"`
	ChartMax    float64       `json:"chart_max"`
	Adjustments []RecordDTO   `json:"recent_adjustments"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toReadingDTO(r timer.Reading) ReadingDTO {
	return ReadingDTO{
		At:              r.At.Format(time.RFC3339Nano),
		Phase:           string(r.Phase),
		ElapsedSeconds:  r.ElapsedSeconds.InexactFloat64(),
		SessionEarnings: r.SessionEarnings.Float64(),
		TotalToday:      r.TotalToday.Float64(),
		SecondsToday:    r.SecondsToday.InexactFloat64(),
		Clock:           timer.FormatClock(r.SecondsToday),
	}
}

func toSessionDTO(s timer.Session) *SessionDTO {
	return &SessionDTO{
		Start:          s.Start.Format(time.RFC3339Nano),
		End:            s.End.Format(time.RFC3339Nano),
		ElapsedSeconds: s.ElapsedSeconds.InexactFloat64(),
		Earnings:       s.Earnings.Float64(),
	}
}

func toGoalDTO(g timer.Goal) GoalDTO {
	return GoalDTO{ID: g.ID, Name: g.Name, Cost: g.Cost.InexactFloat64()}
}

func toGoalProgressDTOs(progress []timer.GoalProgress) []GoalProgressDTO {
	out := make([]GoalProgressDTO, 0, len(progress))
	for _, p := range progress {
		out = append(out, GoalProgressDTO{
			GoalDTO:   toGoalDTO(p.Goal),
			Funded:    p.Funded.Float64(),
			Percent:   p.Percent.InexactFloat64(),
			Completed: p.Completed,
		})
	}
	return out
}

func toRecordDTO(r earnings.Record) RecordDTO {
	dto := RecordDTO{
		Nickname:         r.Nickname,
		Date:             r.Date,
		AutoMinutes:      r.AutoMinutes.InexactFloat64(),
		AutoEarnings:     r.AutoEarnings.InexactFloat64(),
		AdjustmentAmount: r.AdjustmentAmount.InexactFloat64(),
		AdjustmentNote:   r.AdjustmentNote,
		TotalEarnings:    r.TotalEarnings.InexactFloat64(),
	}
	if !r.UpdatedAt.IsZero() {
		dto.UpdatedAt = r.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toPeriodDTO(t generic.PeriodType, p generic.Period) PeriodDTO {
	return PeriodDTO{
		Type:  string(t),
		Start: p.Start.String(),
		End:   p.End.String(),
		Days:  p.DayStrings(),
	}
}

func floats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.InexactFloat64()
	}
	return out
}
