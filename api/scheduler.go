/*
scheduler.go - Automated day rollover

PURPOSE:
  Periodically checks whether the local calendar day has changed and, if
  so, resets the day's accumulators and persists them. Requests also
  roll over on demand; the scheduler covers a server left idle across
  midnight so the stored totals never belong to yesterday.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks once immediately on start
  - A running call is left alone; its stop commits into the new day

USAGE:
  scheduler := NewRolloverScheduler(handler, time.Minute)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Handler.Rollover
  - timer/accrual.go: Engine.Rollover
*/
package api

import (
	"context"
	"sync"
	"time"
)

// DefaultRolloverInterval is how often the scheduler checks the date.
const DefaultRolloverInterval = time.Minute

// RolloverScheduler runs the daily rollover check on a ticker.
type RolloverScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRolloverScheduler creates a new scheduler. A non-positive interval
// uses DefaultRolloverInterval.
func NewRolloverScheduler(handler *Handler, interval time.Duration) *RolloverScheduler {
	if interval <= 0 {
		interval = DefaultRolloverInterval
	}
	return &RolloverScheduler{
		Handler:       handler,
		CheckInterval: interval,
		Enabled:       true,
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (rs *RolloverScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Handler.Log.Info("rollover scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run(rs.ticker, rs.stop)

	rs.Handler.Log.Info("rollover scheduler started", "interval", rs.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight check.
func (rs *RolloverScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Handler.Log.Info("rollover scheduler stopped")
	}
}

func (rs *RolloverScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunNow()

	for {
		select {
		case <-ticker.C:
			rs.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one check and reports whether the day rolled over.
func (rs *RolloverScheduler) RunNow() bool {
	rolled, err := rs.Handler.Rollover(context.Background())
	if err != nil {
		rs.Handler.Log.Error("rollover failed", "err", err)
	}
	return rolled
}

// NextRunTime returns when the next scheduled check will occur.
func (rs *RolloverScheduler) NextRunTime() time.Time {
	return rs.Handler.Clock.Now().Add(rs.CheckInterval)
}
