package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/okian/fundora/internal/domain/model"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements EventStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection serialises writers; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Timestamps are stored as unix nanoseconds so range filters compare numerically.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS interaction_claims (
	claim_key  TEXT PRIMARY KEY,
	ref        TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interaction_events (
	id          TEXT PRIMARY KEY,
	claim_key   TEXT NOT NULL REFERENCES interaction_claims(claim_key),
	actor_id    TEXT NOT NULL,
	subject_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	group_id    TEXT NOT NULL DEFAULT '',
	occurred_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_actor_kind ON interaction_events(actor_id, kind, occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_subject_kind ON interaction_events(subject_id, kind, occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_claim_key ON interaction_events(claim_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Insert(ctx context.Context, claim Claim, events []model.InteractionEvent) (err error) {
	defer func(start time.Time) { observe(DriverSQLite, "insert", start, err) }(time.Now())
	if err := validInsert(claim, events); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx,
		`INSERT INTO interaction_claims (claim_key, ref, created_at) VALUES (?, ?, ?) ON CONFLICT(claim_key) DO NOTHING`,
		claim.Key, claim.Ref, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert claim")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrConflict
	}

	for _, e := range events {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO interaction_events (id, claim_key, actor_id, subject_id, kind, group_id, occurred_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, claim.Key, e.ActorID, e.SubjectID, string(e.Kind), e.GroupID, e.OccurredAt.UTC().UnixNano(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert event %s", e.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) FindRecent(ctx context.Context, q Query) (_ []model.InteractionEvent, err error) {
	defer func(start time.Time) { observe(DriverSQLite, "find_recent", start, err) }(time.Now())

	query := `SELECT id, actor_id, subject_id, kind, group_id, occurred_at FROM interaction_events
		WHERE actor_id = ? AND kind = ? AND occurred_at >= ?`
	args := []any{q.ActorID, string(q.Kind), q.Since.UTC().UnixNano()}
	if q.SubjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, q.SubjectID)
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find recent")
	}
	defer rows.Close()
	return scanSQLiteEvents(rows)
}

func (s *SQLiteStore) FindByClaim(ctx context.Context, key string) (_ []model.InteractionEvent, err error) {
	defer func(start time.Time) { observe(DriverSQLite, "find_by_claim", start, err) }(time.Now())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, actor_id, subject_id, kind, group_id, occurred_at FROM interaction_events WHERE claim_key = ? ORDER BY subject_id`,
		key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find by claim")
	}
	defer rows.Close()

	events, err := scanSQLiteEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrClaimNotFound
	}
	return events, nil
}

func (s *SQLiteStore) Counts(ctx context.Context, subjectID string, kind model.InteractionKind, since time.Time) (_ model.InteractionCounts, err error) {
	defer func(start time.Time) { observe(DriverSQLite, "counts", start, err) }(time.Now())

	var total, distinct, recent int64
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT actor_id), COALESCE(SUM(CASE WHEN occurred_at >= ? THEN 1 ELSE 0 END), 0)
		FROM interaction_events WHERE subject_id = ? AND kind = ?`,
		since.UTC().UnixNano(), subjectID, string(kind),
	).Scan(&total, &distinct, &recent)
	if err != nil {
		return model.InteractionCounts{}, eris.Wrap(err, "sqlite: counts")
	}
	return model.InteractionCounts{Total: int(total), DistinctActors: int(distinct), Recent: int(recent)}, nil
}

func scanSQLiteEvents(rows *sql.Rows) ([]model.InteractionEvent, error) {
	var out []model.InteractionEvent
	for rows.Next() {
		var (
			e    model.InteractionEvent
			kind string
			at   int64
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.SubjectID, &kind, &e.GroupID, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		e.Kind = model.InteractionKind(kind)
		e.OccurredAt = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate events")
}
