/*
Package cloud is the one-way commit boundary between the local timer and
the shared document store.

PURPOSE:
  The timer never reads remote state. It pushes its daily totals here,
  and the stats and leaderboard views read the shared records back. Every
  write waits for the identity provider first; if no identity can be
  established the write is skipped and ErrNotAuthenticated returned so
  callers can treat it as a silent no-op.

WRITES:
  SyncDay:        dailyLogs/{nick}_{date}, carries the prior adjustment
  SaveAdjustment: dailyLogs/{nick}_{date}, corrected total is authoritative
  ClaimNickname:  users/{nick}, migrates history on rename

FAILURE HANDLING:
  Store failures come back as *generic.RemoteError. Nothing is retried;
  the local state is already durable and the next sync overwrites the
  whole record anyway.

SEE ALSO:
  - nickname.go: Validation and rename migration
  - status.go: Transient sync status
  - ../earnings: Record construction and aggregation
*/
package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/warp/calltracker/earnings"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/identity"
)

// DefaultIdentityWait bounds how long a write waits for sign-in.
const DefaultIdentityWait = 10 * time.Second

// Client reads and writes the shared collections.
type Client struct {
	Store        generic.DocumentStore
	Identity     identity.Provider
	Clock        generic.Clock
	Log          *log.Logger
	IdentityWait time.Duration
}

// NewClient wires a client. A nil logger discards output.
func NewClient(store generic.DocumentStore, ident identity.Provider, clock generic.Clock, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if clock == nil {
		clock = generic.SystemClock{}
	}
	return &Client{
		Store:        store,
		Identity:     ident,
		Clock:        clock,
		Log:          logger.WithPrefix("cloud"),
		IdentityWait: DefaultIdentityWait,
	}
}

// authenticate waits for the identity, bounded by IdentityWait.
func (c *Client) authenticate(ctx context.Context) (identity.Identity, error) {
	wait := c.IdentityWait
	if wait <= 0 {
		wait = DefaultIdentityWait
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	id, err := c.Identity.Ready(ctx)
	if err != nil {
		if errors.Is(err, generic.ErrNotAuthenticated) {
			return identity.Identity{}, err
		}
		return identity.Identity{}, fmt.Errorf("%w: %v", generic.ErrNotAuthenticated, err)
	}
	return id, nil
}

// =============================================================================
// DAILY RECORDS
// =============================================================================

// SyncDay publishes today's auto totals for nickname. The adjustment
// already on file is carried forward.
func (c *Client) SyncDay(ctx context.Context, nickname string, date generic.TimePoint, autoMinutes, autoEarnings decimal.Decimal) (earnings.Record, error) {
	if nickname == "" {
		return earnings.Record{}, generic.ErrNicknameRequired
	}
	if _, err := c.authenticate(ctx); err != nil {
		c.Log.Debug("sync skipped", "reason", err)
		return earnings.Record{}, err
	}

	existing, err := c.getRecord(ctx, nickname, date.String())
	if err != nil {
		return earnings.Record{}, err
	}
	rec := earnings.ApplySync(existing, nickname, date.String(), autoMinutes, autoEarnings)
	if err := c.putRecord(ctx, rec); err != nil {
		return earnings.Record{}, err
	}

	c.Log.Info("day synced", "key", rec.Key(), "auto", rec.AutoEarnings.StringFixed(2), "total", rec.TotalEarnings.StringFixed(2))
	return rec, nil
}

// SaveAdjustment overrides the day's total with corrected. The fallbacks
// are today's locally computed auto values, used only when the day has
// no record yet.
func (c *Client) SaveAdjustment(ctx context.Context, nickname string, date generic.TimePoint, corrected decimal.Decimal, note string, fallbackMinutes, fallbackEarnings decimal.Decimal) (earnings.Record, error) {
	if nickname == "" {
		return earnings.Record{}, generic.ErrNicknameRequired
	}
	if _, err := c.authenticate(ctx); err != nil {
		c.Log.Debug("adjustment skipped", "reason", err)
		return earnings.Record{}, err
	}

	existing, err := c.getRecord(ctx, nickname, date.String())
	if err != nil {
		return earnings.Record{}, err
	}
	rec := earnings.ApplyAdjustment(existing, nickname, date.String(), corrected, note, fallbackMinutes, fallbackEarnings)
	if err := c.putRecord(ctx, rec); err != nil {
		return earnings.Record{}, err
	}

	c.Log.Info("adjustment saved", "key", rec.Key(), "delta", rec.AdjustmentAmount.StringFixed(2), "total", rec.TotalEarnings.StringFixed(2))
	return rec, nil
}

// FetchPeriod returns every worker's records dated inside period, ordered
// by date.
func (c *Client) FetchPeriod(ctx context.Context, period generic.Period) ([]earnings.Record, error) {
	docs, err := c.Store.QueryRange(ctx, generic.CollectionDailyLogs, "date", period.Start.String(), period.End.String())
	if err != nil {
		return nil, &generic.RemoteError{Op: "query", Collection: generic.CollectionDailyLogs, Err: err}
	}

	records := make([]earnings.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := earnings.FromDocument(doc)
		if err != nil {
			c.Log.Warn("skipping unreadable record", "key", doc.Key, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// FetchUserPeriod is FetchPeriod narrowed to nickname, compared
// case-folded.
func (c *Client) FetchUserPeriod(ctx context.Context, nickname string, period generic.Period) ([]earnings.Record, error) {
	records, err := c.FetchPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return earnings.FilterNickname(records, nickname), nil
}

func (c *Client) getRecord(ctx context.Context, nickname, date string) (*earnings.Record, error) {
	key := earnings.Key(nickname, date)
	doc, err := c.Store.Get(ctx, generic.CollectionDailyLogs, key)
	if err != nil {
		return nil, &generic.RemoteError{Op: "get", Collection: generic.CollectionDailyLogs, Key: key, Err: err}
	}
	if doc == nil {
		return nil, nil
	}
	rec, err := earnings.FromDocument(*doc)
	if err != nil {
		c.Log.Warn("existing record unreadable, overwriting", "key", key, "error", err)
		return nil, nil
	}
	return &rec, nil
}

func (c *Client) putRecord(ctx context.Context, rec earnings.Record) error {
	return c.put(ctx, generic.CollectionDailyLogs, rec.Key(), rec)
}

func (c *Client) put(ctx context.Context, collection, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	if err := c.Store.Put(ctx, collection, key, body); err != nil {
		return &generic.RemoteError{Op: "put", Collection: collection, Key: key, Err: err}
	}
	return nil
}

func (c *Client) delete(ctx context.Context, collection, key string) error {
	if err := c.Store.Delete(ctx, collection, key); err != nil {
		return &generic.RemoteError{Op: "delete", Collection: collection, Key: key, Err: err}
	}
	return nil
}
