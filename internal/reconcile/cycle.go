// Package reconcile implements the poll-detect-notify-acknowledge cycle: scan
// the card table page by page, announce every allocated-but-unposted card,
// then commit posted=true for all successfully announced records in one
// batched update.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"stampbot/internal/airtable"
	"stampbot/internal/transport"
	"stampbot/pkg/logx"
)

// ErrCycleRunning is returned by TryRun when a previous cycle is still in
// flight. The scheduled trigger treats it as "skip this tick".
var ErrCycleRunning = errors.New("reconcile: cycle already running")

// Pager produces successive pages of card records; see airtable.Pager.
type Pager interface {
	NextPage(ctx context.Context) (records []airtable.Record, done bool, err error)
}

// Recorder journals cycle outcomes. Best-effort: implementations must not
// let journaling failures surface as cycle failures.
type Recorder interface {
	RecordDispatch(ctx context.Context, recordID string, kind PayloadKind)
	RecordCycle(ctx context.Context, sum Summary, runErr error)
}

type Deps struct {
	// Scan opens a fresh full-table scan. Called once per cycle.
	Scan func() Pager
	// Commit flips posted=true for the given record ids in one batch.
	Commit func(ctx context.Context, ids []string) error

	Sender   transport.Sender
	Recorder Recorder // optional
	Log      logx.Logger
}

// Summary describes one finished cycle.
type Summary struct {
	Started   time.Time
	Took      time.Duration
	Pages     int
	Scanned   int
	Eligible  int
	Notified  int // records whose payloads all dispatched (incl. zero-payload records)
	Committed int
	// ScanAborted is set when a page fetch failed and the remaining pages
	// were skipped. Already-collected ids are still committed.
	ScanAborted bool
}

type Reconciler struct {
	scan     func() Pager
	commit   func(ctx context.Context, ids []string) error
	sender   transport.Sender
	recorder Recorder
	log      logx.Logger

	running atomic.Bool
}

func New(d Deps) (*Reconciler, error) {
	if d.Scan == nil {
		return nil, errors.New("reconcile: scan is required")
	}
	if d.Commit == nil {
		return nil, errors.New("reconcile: commit is required")
	}
	if d.Sender == nil {
		return nil, errors.New("reconcile: sender is required")
	}
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reconciler{
		scan:     d.Scan,
		commit:   d.Commit,
		sender:   d.Sender,
		recorder: d.Recorder,
		log:      log.With(logx.String("comp", "reconcile")),
	}, nil
}

// TryRun runs one cycle unless one is already in flight. Overlapping
// schedule ticks would otherwise observe the same posted=false records and
// announce them twice.
func (r *Reconciler) TryRun(ctx context.Context) (Summary, error) {
	if !r.running.CompareAndSwap(false, true) {
		return Summary{}, ErrCycleRunning
	}
	defer r.running.Store(false)
	return r.Run(ctx)
}

// Run executes one full scan-detect-notify-commit pass. Per-record dispatch
// failures are isolated: the record stays posted=false and is retried next
// cycle. A page-fetch failure aborts the scan but not the commit of ids
// collected so far (their notifications are already out; withholding the
// commit would guarantee duplicates next cycle).
func (r *Reconciler) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Started: time.Now()}
	var pending []string
	var scanErr error

	pager := r.scan()
	for {
		records, done, err := pager.NextPage(ctx)
		if err != nil {
			scanErr = fmt.Errorf("fetch page %d: %w", sum.Pages+1, err)
			sum.ScanAborted = true
			r.log.Error("scan aborted", logx.Err(err), logx.Int("pages_done", sum.Pages))
			break
		}
		sum.Pages++
		for _, rec := range records {
			sum.Scanned++
			if !Eligible(rec.Fields) {
				continue
			}
			sum.Eligible++
			if err := r.dispatch(ctx, rec); err != nil {
				r.log.Error("dispatch failed, record retries next cycle",
					logx.String("record", rec.ID), logx.Err(err))
				continue
			}
			sum.Notified++
			pending = append(pending, rec.ID)
		}
		if done {
			break
		}
	}

	var commitErr error
	if len(pending) > 0 {
		if err := r.commit(ctx, pending); err != nil {
			// Accepted at-least-once window: these records were announced but
			// stay posted=false, so the next cycle announces them again.
			commitErr = fmt.Errorf("commit %d records: %w", len(pending), err)
			r.log.Error("batch commit failed", logx.Int("records", len(pending)), logx.Err(err))
		} else {
			sum.Committed = len(pending)
		}
	}

	sum.Took = time.Since(sum.Started)

	runErr := scanErr
	if runErr == nil {
		runErr = commitErr
	}
	if r.recorder != nil {
		r.recorder.RecordCycle(ctx, sum, runErr)
	}

	r.log.Info("cycle finished",
		logx.Int("pages", sum.Pages),
		logx.Int("scanned", sum.Scanned),
		logx.Int("eligible", sum.Eligible),
		logx.Int("notified", sum.Notified),
		logx.Int("committed", sum.Committed),
		logx.Bool("scan_aborted", sum.ScanAborted),
		logx.Duration("took", sum.Took),
	)
	return sum, runErr
}

// dispatch sends every payload of one record in order, stamp announcement
// first. A record with zero payloads counts as processed: it satisfied the
// eligibility predicate but had nothing renderable.
func (r *Reconciler) dispatch(ctx context.Context, rec airtable.Record) error {
	for _, p := range Compose(rec.Fields) {
		var err error
		switch p.Kind {
		case KindPhoto:
			err = r.sender.SendPhoto(ctx, p.URL, p.Text)
		default:
			err = r.sender.SendText(ctx, p.Text)
		}
		if err != nil {
			return fmt.Errorf("send %s: %w", p.Kind, err)
		}
		if r.recorder != nil {
			r.recorder.RecordDispatch(ctx, rec.ID, p.Kind)
		}
	}
	return nil
}
