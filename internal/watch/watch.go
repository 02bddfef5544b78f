// Package watch polls the account on a cron schedule and logs a snapshot
// of the balance and MEP quotes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/neboloop/cocosbot/internal/browser"
	"github.com/neboloop/cocosbot/internal/logging"
	"github.com/neboloop/cocosbot/internal/market"
)

// Source is what a snapshot reads. *client.Client implements it.
type Source interface {
	PortfolioBalance(ctx context.Context) (float64, error)
	MEPPrices(ctx context.Context) (*market.MEPPrices, error)
}

// Snapshot is one poll result. Fields whose fetch found no data are nil.
type Snapshot struct {
	At      time.Time
	Balance *float64
	MEP     *market.MEPPrices
}

// Summary renders the snapshot as one line for notifications.
func (s Snapshot) Summary() string {
	balance := "n/a"
	if s.Balance != nil {
		balance = fmt.Sprintf("%.2f", *s.Balance)
	}
	mep := "n/a"
	if s.MEP != nil {
		mep = fmt.Sprintf("%v/%v", s.MEP.Open.Bid, s.MEP.Open.Ask)
	}
	return fmt.Sprintf("balance %s, MEP bid/ask %s", balance, mep)
}

// Parser accepts five-field specs with optional seconds and @descriptors
// such as "@every 15m".
var Parser = cronlib.NewParser(cronlib.SecondOptional | cronlib.Minute | cronlib.Hour |
	cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor)

// Watcher runs snapshots on a schedule. Overlapping runs are skipped.
type Watcher struct {
	src      Source
	schedule cronlib.Schedule
	spec     string
	timeout  time.Duration
	onSnap   func(Snapshot)
	log      *logging.Entry

	mu      sync.Mutex
	running bool
}

// New parses spec and returns a watcher over src. onSnap, if not nil,
// receives every snapshot.
func New(src Source, spec string, timeout time.Duration, onSnap func(Snapshot)) (*Watcher, error) {
	sched, err := Parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", spec, err)
	}
	return &Watcher{
		src:      src,
		schedule: sched,
		spec:     spec,
		timeout:  timeout,
		onSnap:   onSnap,
		log:      logging.WithComponent("watch"),
	}, nil
}

// Next returns the first run time after t.
func (w *Watcher) Next(t time.Time) time.Time {
	return w.schedule.Next(t)
}

// Poll takes one snapshot. No-data results leave the field nil; any other
// failure is returned.
func (w *Watcher) Poll(ctx context.Context) (Snapshot, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	snap := Snapshot{At: time.Now()}

	balance, err := w.src.PortfolioBalance(ctx)
	switch {
	case err == nil:
		snap.Balance = &balance
	case !errors.Is(err, browser.ErrNoData):
		return snap, fmt.Errorf("balance: %w", err)
	}

	prices, err := w.src.MEPPrices(ctx)
	switch {
	case err == nil:
		snap.MEP = prices
	case !errors.Is(err, browser.ErrNoData):
		return snap, fmt.Errorf("mep: %w", err)
	}
	return snap, nil
}

func (w *Watcher) tick(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.log.Warn("previous snapshot still running, skipping")
		return
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	snap, err := w.Poll(ctx)
	if err != nil {
		w.log.WithError(err).Error("snapshot failed")
		return
	}
	entry := w.log.WithField("at", snap.At.Format(time.RFC3339))
	if snap.Balance != nil {
		entry = entry.WithField("balance", *snap.Balance)
	}
	if snap.MEP != nil {
		entry = entry.WithField("mep_open_ask", snap.MEP.Open.Ask).WithField("mep_open_bid", snap.MEP.Open.Bid)
	}
	entry.Info("snapshot")
	if w.onSnap != nil {
		w.onSnap(snap)
	}
}

// Run polls on the schedule until ctx is cancelled, then waits for a
// running snapshot to finish.
func (w *Watcher) Run(ctx context.Context) error {
	c := cronlib.New(cronlib.WithParser(Parser))
	c.Schedule(w.schedule, cronlib.FuncJob(func() { w.tick(ctx) }))
	c.Start()
	w.log.Infof("watching on %q, next run %s", w.spec, w.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
