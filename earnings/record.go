/*
Package earnings models the shared daily earnings records and the
read-side aggregation used by the stats and leaderboard views.

PURPOSE:
  Each worker publishes at most one record per calendar day, keyed by
  "{nickname}_{date}". This package builds those records (sync and manual
  adjustment) and folds a period's worth of them into rankings, per-day
  cumulative series and personal statistics.

RECORD WRITES:
  sync:        totalEarnings = autoEarnings + adjustmentAmount (carried forward)
  adjustment:  adjustmentAmount = corrected - autoEarnings on file
               totalEarnings    = corrected (authoritative, never recomputed)

AGGREGATION:
  All folds are pure functions of their inputs and independent of input
  order. Ranking is by total descending, ties by nickname ascending.

SEE ALSO:
  - aggregate.go: Grouping, ranking, series, stats
  - color.go: Avatar palette
  - ../cloud: Reads and writes records through a generic.DocumentStore
*/
package earnings

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/generic"
)

// Record is one worker's earnings for one calendar day.
type Record struct {
	Nickname         string          `json:"nickname"`
	Date             string          `json:"date"`
	AutoMinutes      decimal.Decimal `json:"autoMinutes"`
	AutoEarnings     decimal.Decimal `json:"autoEarnings"`
	AdjustmentAmount decimal.Decimal `json:"adjustmentAmount"`
	AdjustmentNote   string          `json:"adjustmentNote"`
	TotalEarnings    decimal.Decimal `json:"totalEarnings"`

	// UpdatedAt is assigned by the document store on every write.
	UpdatedAt time.Time `json:"-"`
}

// Key is the document key of the record for nickname on date.
func Key(nickname, date string) string {
	return nickname + "_" + date
}

// Key returns the record's document key.
func (r Record) Key() string { return Key(r.Nickname, r.Date) }

// FromDocument decodes a dailyLogs document.
func FromDocument(doc generic.Document) (Record, error) {
	var r Record
	if err := doc.Decode(&r); err != nil {
		return Record{}, err
	}
	r.UpdatedAt = doc.UpdatedAt
	return r, nil
}

// HasAdjustment reports a non-zero manual correction.
func (r Record) HasAdjustment() bool { return !r.AdjustmentAmount.IsZero() }

// ApplySync builds the record written by a sync. Only the adjustment of
// existing (nil when absent) is carried forward; everything else is
// replaced.
func ApplySync(existing *Record, nickname, date string, autoMinutes, autoEarnings decimal.Decimal) Record {
	r := Record{
		Nickname:         nickname,
		Date:             date,
		AutoMinutes:      autoMinutes,
		AutoEarnings:     autoEarnings,
		AdjustmentAmount: decimal.Zero,
	}
	if existing != nil {
		r.AdjustmentAmount = existing.AdjustmentAmount
		r.AdjustmentNote = existing.AdjustmentNote
	}
	r.TotalEarnings = r.AutoEarnings.Add(r.AdjustmentAmount)
	return r
}

// ApplyAdjustment builds the record written by a manual correction. The
// auto values on file win; the fallbacks are used only when there is no
// record yet. TotalEarnings is exactly corrected.
func ApplyAdjustment(existing *Record, nickname, date string, corrected decimal.Decimal, note string, fallbackMinutes, fallbackEarnings decimal.Decimal) Record {
	r := Record{
		Nickname:       nickname,
		Date:           date,
		AutoMinutes:    fallbackMinutes,
		AutoEarnings:   fallbackEarnings,
		AdjustmentNote: strings.TrimSpace(note),
		TotalEarnings:  corrected,
	}
	if existing != nil {
		r.AutoMinutes = existing.AutoMinutes
		r.AutoEarnings = existing.AutoEarnings
	}
	r.AdjustmentAmount = corrected.Sub(r.AutoEarnings)
	return r
}

// FilterNickname keeps the records of nickname, compared case-folded.
func FilterNickname(records []Record, nickname string) []Record {
	var out []Record
	for _, r := range records {
		if strings.EqualFold(r.Nickname, nickname) {
			out = append(out, r)
		}
	}
	return out
}
