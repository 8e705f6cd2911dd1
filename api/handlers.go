/*
handlers.go - HTTP API handlers for the call earnings tracker

PURPOSE:
  Exposes the local call timer and the shared earnings records via REST.
  Handles HTTP request/response, JSON serialization, and delegates to the
  timer engine and the cloud client.

ENDPOINTS:
  Timer:
    GET    /api/today              Live totals, goals, sync status
    POST   /api/call/start         Start a call
    POST   /api/call/stop          Stop the call and commit its earnings
    POST   /api/call/toggle        Start or stop
    GET    /api/call/stream        Server-sent readings while in a call
    PUT    /api/settings           Rate and initial balance
    POST   /api/reset              Clear today's earnings

  Goals:
    GET    /api/goals              Goals with funding progress
    POST   /api/goals              Add a goal
    DELETE /api/goals/{id}         Remove a goal

  Shared records:
    POST   /api/sync               Push today's totals
    GET    /api/nickname           Current nickname
    PUT    /api/nickname           Claim or rename
    POST   /api/adjustments        Override today's shared total
    GET    /api/stats              Personal period summary (?period=)
    GET    /api/leaderboard        Period ranking (?period=)

ARCHITECTURE:
  Handler holds all dependencies:
  - Engine: the in-memory call timer
  - Settings: durable local state (timer.SaveState after every change)
  - Cloud: commit boundary to the shared document store
  - Status: transient manual-sync indicator

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 202: No identity yet; the remote write was skipped
  - 400: Validation errors, missing nickname
  - 404: Goal not found
  - 409: Nickname taken
  - 502: Shared store failure
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - stream.go: Live call stream
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/cloud"
	"github.com/warp/calltracker/earnings"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/timer"
)

// DefaultStreamInterval is the live reading cadence.
const DefaultStreamInterval = 100 * time.Millisecond

var sixty = decimal.NewFromInt(60)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine   *timer.Engine
	Settings generic.Settings
	Cloud    *cloud.Client
	Status   *cloud.StatusTracker
	Clock    generic.Clock
	Log      *log.Logger

	// Anchor is the first day of a biweekly pay period.
	Anchor         generic.TimePoint
	StreamInterval time.Duration

	persistMu sync.Mutex
}

// NewHandler creates a handler. A nil clock uses the system clock and a
// nil logger discards output.
func NewHandler(engine *timer.Engine, settings generic.Settings, client *cloud.Client, clock generic.Clock, logger *log.Logger) *Handler {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{
		Engine:         engine,
		Settings:       settings,
		Cloud:          client,
		Status:         cloud.NewStatusTracker(clock, cloud.DefaultStatusWindow),
		Clock:          clock,
		Log:            logger.WithPrefix("api"),
		Anchor:         generic.DefaultBiweeklyAnchor,
		StreamInterval: DefaultStreamInterval,
	}
}

// persist writes the engine's durable state. Writes are serialized so an
// older snapshot never lands after a newer one.
func (h *Handler) persist(ctx context.Context) error {
	h.persistMu.Lock()
	defer h.persistMu.Unlock()
	return timer.SaveState(ctx, h.Settings, h.Engine.Snapshot())
}

// Rollover resets the day's accumulators when the calendar day changed and
// persists the result. It reports whether a reset happened.
func (h *Handler) Rollover(ctx context.Context) (bool, error) {
	if !h.Engine.Rollover(h.Clock.Now()) {
		return false, nil
	}
	if err := h.persist(ctx); err != nil {
		return true, err
	}
	h.Log.Info("new day, accumulators reset", "date", generic.DateOf(h.Clock.Now(), h.Engine.Location()).String())
	return true, nil
}

func (h *Handler) nickname(ctx context.Context) (string, error) {
	nick, _, err := h.Settings.Get(ctx, timer.KeyNickname)
	return nick, err
}

func (h *Handler) today() generic.TimePoint {
	return generic.DateOf(h.Clock.Now(), h.Engine.Location())
}

func (h *Handler) periodFor(r *http.Request) (generic.PeriodType, generic.Period, error) {
	pt, err := generic.ParsePeriodType(r.URL.Query().Get("period"))
	if err != nil {
		return "", generic.Period{}, err
	}
	cfg := generic.PeriodConfig{Type: pt, Anchor: h.Anchor}
	return pt, cfg.PeriodFor(h.today()), nil
}

// =============================================================================
// TIMER HANDLERS
// =============================================================================

// GetToday returns the live view of the local timer.
// GET /api/today
func (h *Handler) GetToday(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Rollover(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	dto, err := h.todayDTO(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) todayDTO(ctx context.Context) (TodayDTO, error) {
	now := h.Clock.Now()
	reading := h.Engine.Tick(now)

	dto := TodayDTO{
		Date:            generic.DateOf(now, h.Engine.Location()).String(),
		Phase:           string(reading.Phase),
		ElapsedSeconds:  reading.ElapsedSeconds.InexactFloat64(),
		SessionEarnings: reading.SessionEarnings.Float64(),
		SavedEarnings:   reading.SavedEarnings.Float64(),
		InitialBalance:  reading.InitialBalance.Float64(),
		TotalToday:      reading.TotalToday.Float64(),
		SecondsToday:    reading.SecondsToday.InexactFloat64(),
		Clock:           timer.FormatClock(reading.SecondsToday),
		RatePerMinute:   reading.RatePerMinute.InexactFloat64(),
		Goals:           toGoalProgressDTOs(timer.FundGoals(h.Engine.Goals(), reading.TotalToday)),
	}
	if reading.InCall() {
		dto.CallStart = reading.CallStart.Format(time.RFC3339Nano)
	}

	nick, err := h.nickname(ctx)
	if err != nil {
		return TodayDTO{}, err
	}
	dto.Nickname = nick

	status, statusErr := h.Status.Current()
	dto.SyncStatus = string(status)
	if statusErr != nil {
		dto.SyncError = statusErr.Error()
	}

	last, _, err := h.Settings.Get(ctx, timer.KeyLastSyncTime)
	if err != nil {
		return TodayDTO{}, err
	}
	dto.LastSyncTime = last
	return dto, nil
}

// StartCall begins a call.
// POST /api/call/start
func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Rollover(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	changed := h.Engine.Start(h.Clock.Now())
	if changed {
		h.Log.Debug("call started")
	}
	h.writeCall(w, r, changed, nil)
}

// StopCall ends the running call and commits its earnings.
// POST /api/call/stop
func (h *Handler) StopCall(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Rollover(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	session, stopped := h.Engine.Stop(h.Clock.Now())
	if !stopped {
		h.writeCall(w, r, false, nil)
		return
	}
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	h.Log.Info("call committed", "seconds", session.ElapsedSeconds.StringFixed(1), "earnings", session.Earnings.StringFixed(4))
	h.writeCall(w, r, true, toSessionDTO(session))
}

// ToggleCall starts a call when idle and stops it otherwise.
// POST /api/call/toggle
func (h *Handler) ToggleCall(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Rollover(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	phase, session := h.Engine.Toggle(h.Clock.Now())
	if phase == timer.PhaseInCall {
		h.writeCall(w, r, true, nil)
		return
	}
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	h.Log.Info("call committed", "seconds", session.ElapsedSeconds.StringFixed(1), "earnings", session.Earnings.StringFixed(4))
	h.writeCall(w, r, true, toSessionDTO(session))
}

func (h *Handler) writeCall(w http.ResponseWriter, r *http.Request, changed bool, session *SessionDTO) {
	today, err := h.todayDTO(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, CallResponse{Changed: changed, Session: session, Today: today})
}

// UpdateSettings changes the rate and/or the initial balance.
// PUT /api/settings
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RatePerMinute == nil && req.InitialBalance == nil {
		writeError(w, http.StatusBadRequest, "Nothing to update", nil)
		return
	}

	// Validate both before applying either.
	if req.RatePerMinute != nil && !req.RatePerMinute.IsPositive() {
		writeDomainError(w, "Invalid rate", &generic.ValidationError{Field: "rate", Value: req.RatePerMinute.String(), Reason: "must be positive"})
		return
	}
	if req.InitialBalance != nil && req.InitialBalance.IsNegative() {
		writeDomainError(w, "Invalid initial balance", &generic.ValidationError{Field: "initial balance", Value: req.InitialBalance.String(), Reason: "must not be negative"})
		return
	}
	if req.RatePerMinute != nil {
		if err := h.Engine.SetRate(*req.RatePerMinute); err != nil {
			writeDomainError(w, "Invalid rate", err)
			return
		}
	}
	if req.InitialBalance != nil {
		if err := h.Engine.SetInitialBalance(*req.InitialBalance); err != nil {
			writeDomainError(w, "Invalid initial balance", err)
			return
		}
	}
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	h.GetToday(w, r)
}

// ResetEarnings abandons any running call and clears the day's totals.
// POST /api/reset
func (h *Handler) ResetEarnings(w http.ResponseWriter, r *http.Request) {
	h.Engine.Reset()
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	h.Log.Info("earnings reset")
	h.GetToday(w, r)
}

// =============================================================================
// GOAL HANDLERS
// =============================================================================

// ListGoals returns every goal with its funding progress.
// GET /api/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	total := h.Engine.TotalToday(h.Clock.Now())
	writeJSON(w, http.StatusOK, toGoalProgressDTOs(timer.FundGoals(h.Engine.Goals(), total)))
}

// CreateGoal adds a goal.
// POST /api/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req CreateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	goal, err := h.Engine.AddGoal(req.Name, req.Cost)
	if err != nil {
		writeDomainError(w, "Invalid goal", err)
		return
	}
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGoalDTO(goal))
}

// DeleteGoal removes a goal.
// DELETE /api/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.DeleteGoal(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete goal", err)
		return
	}
	if err := h.persist(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SHARED RECORD HANDLERS
// =============================================================================

// Sync pushes today's committed totals to the shared store. The running
// call is not included; it is synced after it stops.
// POST /api/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := h.Rollover(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	nick, err := h.nickname(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	if nick == "" {
		writeDomainError(w, "Set a nickname before syncing", generic.ErrNicknameRequired)
		return
	}

	state := h.Engine.Snapshot()
	autoEarnings := state.InitialBalance.Add(state.SavedEarnings)
	autoMinutes := state.SavedSecondsToday.Div(sixty)

	h.Status.Begin()
	rec, err := h.Cloud.SyncDay(ctx, nick, h.today(), autoMinutes, autoEarnings)
	if generic.IsNotAuthenticated(err) {
		h.Status.Clear()
		writeJSON(w, http.StatusAccepted, SyncResponse{Synced: false, Reason: err.Error()})
		return
	}
	h.Status.Finish(err)
	if err != nil {
		h.Log.Error("sync failed", "nickname", nick, "err", err)
		writeDomainError(w, "Sync failed", err)
		return
	}

	last := h.Clock.Now().UTC().Format(time.RFC3339)
	if err := h.Settings.Set(ctx, timer.KeyLastSyncTime, last); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}
	dto := toRecordDTO(rec)
	writeJSON(w, http.StatusOK, SyncResponse{Synced: true, Record: &dto, LastSyncTime: last})
}

// GetNickname returns the current nickname, empty when unset.
// GET /api/nickname
func (h *Handler) GetNickname(w http.ResponseWriter, r *http.Request) {
	nick, err := h.nickname(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	writeJSON(w, http.StatusOK, NicknameDTO{Nickname: nick})
}

// SetNickname claims a nickname, moving history when renaming.
// PUT /api/nickname
func (h *Handler) SetNickname(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req NicknameDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	current, err := h.nickname(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}

	nick, err := h.Cloud.ClaimNickname(ctx, current, req.Nickname)
	if err != nil {
		writeDomainError(w, "Failed to set nickname", err)
		return
	}
	if nick != current {
		if err := h.Settings.Set(ctx, timer.KeyNickname, nick); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, NicknameDTO{Nickname: nick})
}

// CreateAdjustment overrides today's shared total with a corrected value.
// POST /api/adjustments
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CorrectedTotal.IsNegative() {
		writeDomainError(w, "Invalid corrected total", &generic.ValidationError{Field: "corrected total", Value: req.CorrectedTotal.String(), Reason: "must not be negative"})
		return
	}
	nick, err := h.nickname(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	if nick == "" {
		writeDomainError(w, "Set a nickname before adjusting", generic.ErrNicknameRequired)
		return
	}

	state := h.Engine.Snapshot()
	rec, err := h.Cloud.SaveAdjustment(ctx, nick, h.today(), req.CorrectedTotal, req.Note,
		state.SavedSecondsToday.Div(sixty), state.InitialBalance.Add(state.SavedEarnings))
	if generic.IsNotAuthenticated(err) {
		writeJSON(w, http.StatusAccepted, SyncResponse{Synced: false, Reason: err.Error()})
		return
	}
	if err != nil {
		writeDomainError(w, "Failed to save adjustment", err)
		return
	}
	dto := toRecordDTO(rec)
	writeJSON(w, http.StatusOK, SyncResponse{Synced: true, Record: &dto})
}

// GetStats returns the caller's summary for the current period.
// GET /api/stats?period=biweekly|monthly
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pt, period, err := h.periodFor(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	nick, err := h.nickname(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}
	if nick == "" {
		writeDomainError(w, "Set a nickname to see stats", generic.ErrNicknameRequired)
		return
	}

	records, err := h.Cloud.FetchUserPeriod(ctx, nick, period)
	if err != nil {
		writeDomainError(w, "Failed to load records", err)
		return
	}

	days := period.DayStrings()
	stats := earnings.SelfStats(records, days)
	daily := earnings.DailyValues(records, days)

	dto := StatsDTO{
		Nickname:      nick,
		Period:        toPeriodDTO(pt, period),
		TotalEarnings: stats.TotalEarnings.InexactFloat64(),
		TotalMinutes:  stats.TotalMinutes.InexactFloat64(),
		DaysWithData:  stats.DaysWithData,
		DaysInPeriod:  stats.DaysInPeriod,
		AvgEarnings:   stats.AvgEarnings.InexactFloat64(),
		AvgMinutes:    stats.AvgMinutes.InexactFloat64(),
		ActivePercent: stats.ActivePercent.InexactFloat64(),
		Daily:         make([]DayValueDTO, 0, len(daily)),
		DailyMax:      earnings.DailyMax(daily).InexactFloat64(),
	}
	for _, d := range daily {
		dto.Daily = append(dto.Daily, DayValueDTO{
			Day:      d.Day,
			Earnings: d.Earnings.InexactFloat64(),
			Minutes:  d.Minutes.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetLeaderboard ranks every worker for the current period.
// GET /api/leaderboard?period=biweekly|monthly
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pt, period, err := h.periodFor(r)
	if err != nil {
		writeDomainError(w, "Invalid period", err)
		return
	}
	nick, err := h.nickname(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read settings", err)
		return
	}

	records, err := h.Cloud.FetchPeriod(ctx, period)
	if err != nil {
		writeDomainError(w, "Failed to load records", err)
		return
	}

	days := period.DayStrings()
	standings := earnings.Standings(records, days)
	users := make([]earnings.UserTotals, len(standings))

	dto := LeaderboardDTO{
		Period:      toPeriodDTO(pt, period),
		Standings:   make([]StandingDTO, 0, len(standings)),
		Adjustments: []RecordDTO{},
	}
	for i, s := range standings {
		users[i] = s.UserTotals
		dto.Standings = append(dto.Standings, StandingDTO{
			Position:       s.Position,
			Nickname:       s.Nickname,
			Total:          s.Total.InexactFloat64(),
			TotalMinutes:   s.TotalMinutes.InexactFloat64(),
			DiffToPrevious: s.DiffToPrevious.InexactFloat64(),
			Share:          s.Share.InexactFloat64(),
			Color:          s.Color,
			IsYou:          nick != "" && s.Nickname == nick,
			Series:         floats(earnings.CumulativeSeries(s.UserTotals, days)),
		})
	}
	dto.ChartMax = earnings.ChartMax(users, days).InexactFloat64()
	for _, rec := range earnings.RecentAdjustments(records, earnings.DefaultRecentAdjustments) {
		dto.Adjustments = append(dto.Adjustments, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status and code.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, generic.ErrNameConflict):
		return http.StatusConflict, "nickname_taken"
	case errors.Is(err, generic.ErrGoalNotFound):
		return http.StatusNotFound, "goal_not_found"
	case errors.Is(err, generic.ErrNicknameRequired):
		return http.StatusBadRequest, "nickname_required"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "validation"
	case generic.IsNotAuthenticated(err):
		return http.StatusAccepted, "not_authenticated"
	case generic.IsRemote(err):
		return http.StatusBadGateway, "remote_unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
