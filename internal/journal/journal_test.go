package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stampbot/internal/reconcile"
	"stampbot/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		BusyTimeout: time.Second,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st == nil {
		t.Fatal("Open returned nil store for sqlite driver")
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Driver: "none"}, logx.Nop())
	if err != nil || st != nil {
		t.Fatalf("Open(none) = %v, %v", st, err)
	}
	// Nil store methods must be safe no-ops.
	st.RecordDispatch(context.Background(), "recA", reconcile.KindText)
	st.RecordCycle(context.Background(), reconcile.Summary{}, nil)
	if err := st.Close(); err != nil {
		t.Fatalf("Close on nil store: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres", Path: "x"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCycleRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	st.RecordCycle(ctx, reconcile.Summary{
		Started:  time.Now().Add(-time.Minute),
		Took:     1200 * time.Millisecond,
		Pages:    2,
		Scanned:  40,
		Eligible: 3,
		Notified: 2,
	}, errors.New("fetch page 3: boom"))
	st.RecordCycle(ctx, reconcile.Summary{
		Started:   time.Now(),
		Pages:     3,
		Scanned:   60,
		Eligible:  1,
		Notified:  1,
		Committed: 1,
	}, nil)

	got, err := st.RecentCycles(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCycles: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("cycles = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].Committed != 1 || got[0].Err != "" {
		t.Fatalf("newest cycle = %+v", got[0])
	}
	if got[1].Err != "fetch page 3: boom" || got[1].Notified != 2 {
		t.Fatalf("older cycle = %+v", got[1])
	}
	if got[1].Took != 1200*time.Millisecond {
		t.Fatalf("took = %v", got[1].Took)
	}
}

func TestDispatchCount(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	st.RecordDispatch(ctx, "recA", reconcile.KindPhoto)
	st.RecordDispatch(ctx, "recA", reconcile.KindText)
	st.RecordDispatch(ctx, "recB", reconcile.KindPhoto)

	n, err := st.DispatchCount(ctx, "recA")
	if err != nil {
		t.Fatalf("DispatchCount: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}
	if n, _ := st.DispatchCount(ctx, "recZ"); n != 0 {
		t.Fatalf("count for unknown record = %d", n)
	}
}
