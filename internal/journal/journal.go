// Package journal keeps a local, best-effort record of reconciliation cycles
// and dispatched notifications for diagnostics. The external table's posted
// flag stays the sole de-duplication key; losing the journal loses history,
// never correctness.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stampbot/internal/reconcile"
	"stampbot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Config configures the journal.
//
// Driver values: "sqlite" (or "sqlite3"). Empty or "none" disables the
// journal; Open then returns (nil, nil) and callers pass no Recorder.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if driver != "sqlite" && driver != "sqlite3" {
		return nil, errors.New("unknown journal driver: " + driver)
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("journal path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log.With(logx.String("comp", "journal"))}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordDispatch implements reconcile.Recorder. Failures are logged only.
func (s *Store) RecordDispatch(ctx context.Context, recordID string, kind reconcile.PayloadKind) {
	if s == nil || s.db == nil {
		return
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatches(at, record_id, kind) VALUES(?,?,?)`,
		time.Now().Format(time.RFC3339Nano), recordID, string(kind),
	)
	if err != nil {
		s.log.Warn("journal dispatch insert failed", logx.String("record", recordID), logx.Err(err))
	}
}

// RecordCycle implements reconcile.Recorder. Failures are logged only.
func (s *Store) RecordCycle(ctx context.Context, sum reconcile.Summary, runErr error) {
	if s == nil || s.db == nil {
		return
	}
	errStr := ""
	if runErr != nil {
		errStr = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles(started_at, took_ms, pages, scanned, eligible, notified, committed, scan_aborted, err)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		sum.Started.Format(time.RFC3339Nano), sum.Took.Milliseconds(),
		sum.Pages, sum.Scanned, sum.Eligible, sum.Notified, sum.Committed,
		boolInt(sum.ScanAborted), nullStr(errStr),
	)
	if err != nil {
		s.log.Warn("journal cycle insert failed", logx.Err(err))
	}
}

// CycleEntry is one journaled cycle, newest first from RecentCycles.
type CycleEntry struct {
	StartedAt   time.Time
	Took        time.Duration
	Pages       int
	Scanned     int
	Eligible    int
	Notified    int
	Committed   int
	ScanAborted bool
	Err         string
}

func (s *Store) RecentCycles(ctx context.Context, limit int) ([]CycleEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT started_at, took_ms, pages, scanned, eligible, notified, committed, scan_aborted, COALESCE(err, '')
		 FROM cycles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CycleEntry
	for rows.Next() {
		var e CycleEntry
		var started string
		var tookMS int64
		var aborted int
		if err := rows.Scan(&started, &tookMS, &e.Pages, &e.Scanned, &e.Eligible,
			&e.Notified, &e.Committed, &aborted, &e.Err); err != nil {
			return nil, err
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		e.Took = time.Duration(tookMS) * time.Millisecond
		e.ScanAborted = aborted != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// DispatchCount reports how many notifications were journaled for a record.
func (s *Store) DispatchCount(ctx context.Context, recordID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dispatches WHERE record_id = ?`, recordID).Scan(&n)
	return n, err
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
