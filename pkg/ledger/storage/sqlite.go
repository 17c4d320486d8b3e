package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/quaestor/pkg/ledger"
	"mercator-hq/quaestor/pkg/pricing"
)

// SQLiteStore implements ledger.Store on a single SQLite file.
//
// The store opens one connection (SQLite supports a single writer) in WAL
// mode, which serializes usage commits by construction. A background
// goroutine runs passive WAL checkpoints so the log does not grow without
// bound between restarts.
type SQLiteStore struct {
	db                 *sql.DB
	path               string
	checkpointInterval time.Duration
	lock               *FileLock
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	appendStmt    *sql.Stmt
	sumStmt       *sql.Stmt
	pairStmt      *sql.Stmt
	recentStmt    *sql.Stmt
	getPeriodStmt *sql.Stmt
	putPeriodStmt *sql.Stmt
	pruneStmt     *sql.Stmt
}

// Config configures the SQLite store.
type Config struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long in-database lock waits may block before
	// failing. Default: 5 seconds.
	BusyTimeout time.Duration

	// LockTimeout is how long to wait for the advisory process lock.
	// Default: 5 seconds.
	LockTimeout time.Duration

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes.
	CheckpointInterval time.Duration

	// DisableLock skips the advisory lock file (tests only).
	DisableLock bool
}

// Open opens (creating if necessary) the ledger database at cfg.Path.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, ledger.NewStorageError("open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 5 * time.Second
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}

	var lock *FileLock
	if !cfg.DisableLock {
		var err error
		lock, err = AcquireLock(lockPath(cfg.Path), cfg.LockTimeout)
		if err != nil {
			return nil, ledger.NewStorageError("lock", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		releaseIf(lock)
		return nil, ledger.NewStorageError("open", err)
	}

	// Single writer connection; SQLite serializes commits through it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:                 db,
		path:               cfg.Path,
		checkpointInterval: cfg.CheckpointInterval,
		lock:               lock,
		done:               make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		releaseIf(lock)
		return nil, ledger.NewStorageError("init schema", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		releaseIf(lock)
		return nil, ledger.NewStorageError("prepare statements", err)
	}

	go s.checkpointLoop()

	return s, nil
}

// OpenReadOnly opens an existing ledger database for reading only. It
// takes no advisory lock and runs no checkpoints, so it can run beside a
// live proxy holding the write lock. Write calls fail with a storage
// error.
func OpenReadOnly(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, ledger.NewStorageError("open", fmt.Errorf("db path cannot be empty"))
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, ledger.NewStorageError("open read-only", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{
		db:   db,
		path: cfg.Path,
		done: make(chan struct{}),
	}

	// Preparing the read statements is also the existence check: a
	// missing database file surfaces here, not on first query.
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, ledger.NewStorageError("open read-only", err)
	}

	return s, nil
}

func lockPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".lock")
}

func releaseIf(l *FileLock) {
	if l != nil {
		l.Release()
	}
}

// initSchema creates tables and indexes if they don't exist.
// Timestamps are unix milliseconds UTC; money columns are micro-EUR.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS usage (
		id TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		tier TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		cost INTEGER NOT NULL,
		routed_by TEXT,
		query_preview TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_usage_timestamp ON usage(timestamp);

	CREATE TABLE IF NOT EXISTS budget_periods (
		kind TEXT NOT NULL,
		period_start INTEGER NOT NULL,
		period_end INTEGER NOT NULL,
		budget INTEGER NOT NULL,
		rollover_in INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (kind, period_start)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO usage (id, timestamp, tier, model, input_tokens, output_tokens, cost, routed_by, query_preview)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}

	s.sumStmt, err = s.db.Prepare(`
		SELECT COALESCE(SUM(cost), 0) FROM usage
		WHERE timestamp >= ? AND timestamp < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sum statement: %w", err)
	}

	s.pairStmt, err = s.db.Prepare(`
		SELECT
			COALESCE(SUM(CASE WHEN timestamp >= ? AND timestamp < ? THEN cost END), 0),
			COALESCE(SUM(CASE WHEN timestamp >= ? AND timestamp < ? THEN cost END), 0)
		FROM usage
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare pair sum statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(`
		SELECT id, timestamp, tier, model, input_tokens, output_tokens, cost, routed_by, query_preview
		FROM usage
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare recent statement: %w", err)
	}

	s.getPeriodStmt, err = s.db.Prepare(`
		SELECT kind, period_start, period_end, budget, rollover_in
		FROM budget_periods
		WHERE kind = ? AND period_start = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get period statement: %w", err)
	}

	s.putPeriodStmt, err = s.db.Prepare(`
		INSERT INTO budget_periods (kind, period_start, period_end, budget, rollover_in)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (kind, period_start) DO UPDATE SET
			period_end = excluded.period_end,
			budget = excluded.budget,
			rollover_in = excluded.rollover_in
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put period statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM usage WHERE timestamp < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// AppendUsage appends one usage record.
func (s *SQLiteStore) AppendUsage(ctx context.Context, rec *ledger.UsageRecord) error {
	if rec == nil {
		return ledger.NewStorageError("append", fmt.Errorf("record cannot be nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.appendStmt.ExecContext(ctx,
		rec.ID,
		rec.Timestamp.UTC().UnixMilli(),
		string(rec.Tier),
		rec.Model,
		rec.InputTokens,
		rec.OutputTokens,
		int64(rec.Cost),
		rec.RoutedBy,
		rec.QueryPreview,
	)
	if err != nil {
		return ledger.NewStorageError("append", err)
	}
	return nil
}

// SumCost returns the total cost of records inside w.
func (s *SQLiteStore) SumCost(ctx context.Context, w ledger.Window) (pricing.MicroEUR, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	err := s.sumStmt.QueryRowContext(ctx, w.Start.UnixMilli(), w.End.UnixMilli()).Scan(&sum)
	if err != nil {
		return 0, ledger.NewStorageError("sum", err)
	}
	return pricing.MicroEUR(sum), nil
}

// SpentInWindows sums two windows in one query, so both totals come from
// the same point in time.
func (s *SQLiteStore) SpentInWindows(ctx context.Context, daily, monthly ledger.Window) (pricing.MicroEUR, pricing.MicroEUR, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var d, m int64
	err := s.pairStmt.QueryRowContext(ctx,
		daily.Start.UnixMilli(), daily.End.UnixMilli(),
		monthly.Start.UnixMilli(), monthly.End.UnixMilli(),
	).Scan(&d, &m)
	if err != nil {
		return 0, 0, ledger.NewStorageError("sum windows", err)
	}
	return pricing.MicroEUR(d), pricing.MicroEUR(m), nil
}

// RecentUsage returns up to limit records, newest first.
func (s *SQLiteStore) RecentUsage(ctx context.Context, limit int) ([]*ledger.UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, ledger.NewStorageError("recent", err)
	}
	defer rows.Close()

	var records []*ledger.UsageRecord
	for rows.Next() {
		var (
			rec      ledger.UsageRecord
			ts       int64
			tier     string
			cost     int64
			routedBy sql.NullString
			preview  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &tier, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &cost, &routedBy, &preview); err != nil {
			return nil, ledger.NewStorageError("recent scan", err)
		}
		rec.Timestamp = time.UnixMilli(ts).UTC()
		rec.Tier = pricing.Tier(tier)
		rec.Cost = pricing.MicroEUR(cost)
		rec.RoutedBy = routedBy.String
		rec.QueryPreview = preview.String
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.NewStorageError("recent rows", err)
	}
	return records, nil
}

// GetPeriod returns the period row for (kind, start), nil when absent.
func (s *SQLiteStore) GetPeriod(ctx context.Context, kind ledger.PeriodKind, start time.Time) (*ledger.BudgetPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		k          string
		startMs    int64
		endMs      int64
		budget     int64
		rolloverIn int64
	)
	err := s.getPeriodStmt.QueryRowContext(ctx, string(kind), start.UTC().UnixMilli()).
		Scan(&k, &startMs, &endMs, &budget, &rolloverIn)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, ledger.NewStorageError("get period", err)
	}

	return &ledger.BudgetPeriod{
		Kind:       ledger.PeriodKind(k),
		Start:      time.UnixMilli(startMs).UTC(),
		End:        time.UnixMilli(endMs).UTC(),
		Limit:      pricing.MicroEUR(budget),
		RolloverIn: pricing.MicroEUR(rolloverIn),
	}, nil
}

// PutPeriod inserts or replaces a period row.
func (s *SQLiteStore) PutPeriod(ctx context.Context, p *ledger.BudgetPeriod) error {
	if p == nil {
		return ledger.NewStorageError("put period", fmt.Errorf("period cannot be nil"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.putPeriodStmt.ExecContext(ctx,
		string(p.Kind),
		p.Start.UTC().UnixMilli(),
		p.End.UTC().UnixMilli(),
		int64(p.Limit),
		int64(p.RolloverIn),
	)
	if err != nil {
		return ledger.NewStorageError("put period", err)
	}
	return nil
}

// PruneUsageBefore deletes records older than cutoff.
func (s *SQLiteStore) PruneUsageBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.pruneStmt.ExecContext(ctx, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, ledger.NewStorageError("prune", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, ledger.NewStorageError("prune", err)
	}
	return deleted, nil
}

// Close stops the checkpoint loop, checkpoints once more and closes the
// database. Idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		for _, stmt := range []*sql.Stmt{
			s.appendStmt, s.sumStmt, s.pairStmt, s.recentStmt,
			s.getPeriodStmt, s.putPeriodStmt, s.pruneStmt,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}

		releaseIf(s.lock)
	})

	if closeErr != nil {
		return ledger.NewStorageError("close", closeErr)
	}
	return nil
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteStore) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
