package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/fundora/internal/domain/model"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PostgresStore implements EventStore using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

const uniqueViolation = "23505"

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS interaction_claims (
	claim_key  TEXT PRIMARY KEY,
	ref        TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS interaction_events (
	id          TEXT PRIMARY KEY,
	claim_key   TEXT NOT NULL REFERENCES interaction_claims(claim_key),
	actor_id    TEXT NOT NULL,
	subject_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	group_id    TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_actor_kind ON interaction_events(actor_id, kind, occurred_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_subject_kind ON interaction_events(subject_id, kind, occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_claim_key ON interaction_events(claim_key);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, claim Claim, events []model.InteractionEvent) (err error) {
	defer func(start time.Time) { observe(DriverPostgres, "insert", start, err) }(time.Now())
	if err := validInsert(claim, events); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	rollback := func() { _ = tx.Rollback(ctx) }

	tag, err := tx.Exec(ctx,
		`INSERT INTO interaction_claims (claim_key, ref) VALUES ($1, $2) ON CONFLICT (claim_key) DO NOTHING`,
		claim.Key, claim.Ref,
	)
	if err != nil {
		rollback()
		return wrapPg(err, "postgres: insert claim")
	}
	if tag.RowsAffected() == 0 {
		rollback()
		return ErrConflict
	}

	for _, e := range events {
		if _, err := tx.Exec(ctx,
			`INSERT INTO interaction_events (id, claim_key, actor_id, subject_id, kind, group_id, occurred_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, claim.Key, e.ActorID, e.SubjectID, string(e.Kind), e.GroupID, e.OccurredAt.UTC(),
		); err != nil {
			rollback()
			return wrapPg(err, "postgres: insert event")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapPg(err, "postgres: commit")
	}
	return nil
}

func (s *PostgresStore) FindRecent(ctx context.Context, q Query) (_ []model.InteractionEvent, err error) {
	defer func(start time.Time) { observe(DriverPostgres, "find_recent", start, err) }(time.Now())

	query := `SELECT id, actor_id, subject_id, kind, group_id, occurred_at FROM interaction_events
		WHERE actor_id = $1 AND kind = $2 AND occurred_at >= $3`
	args := []any{q.ActorID, string(q.Kind), q.Since.UTC()}
	if q.SubjectID != "" {
		query += ` AND subject_id = $4`
		args = append(args, q.SubjectID)
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find recent")
	}
	defer rows.Close()
	return scanPgEvents(rows)
}

func (s *PostgresStore) FindByClaim(ctx context.Context, key string) (_ []model.InteractionEvent, err error) {
	defer func(start time.Time) { observe(DriverPostgres, "find_by_claim", start, err) }(time.Now())

	rows, err := s.pool.Query(ctx,
		`SELECT id, actor_id, subject_id, kind, group_id, occurred_at FROM interaction_events WHERE claim_key = $1 ORDER BY subject_id`,
		key,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find by claim")
	}
	defer rows.Close()

	events, err := scanPgEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrClaimNotFound
	}
	return events, nil
}

func (s *PostgresStore) Counts(ctx context.Context, subjectID string, kind model.InteractionKind, since time.Time) (_ model.InteractionCounts, err error) {
	defer func(start time.Time) { observe(DriverPostgres, "counts", start, err) }(time.Now())

	var total, distinct, recent int64
	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT actor_id), COUNT(*) FILTER (WHERE occurred_at >= $3)
		FROM interaction_events WHERE subject_id = $1 AND kind = $2`,
		subjectID, string(kind), since.UTC(),
	).Scan(&total, &distinct, &recent)
	if err != nil {
		return model.InteractionCounts{}, eris.Wrap(err, "postgres: counts")
	}
	return model.InteractionCounts{Total: int(total), DistinctActors: int(distinct), Recent: int(recent)}, nil
}

func scanPgEvents(rows pgx.Rows) ([]model.InteractionEvent, error) {
	var out []model.InteractionEvent
	for rows.Next() {
		var (
			e    model.InteractionEvent
			kind string
		)
		if err := rows.Scan(&e.ID, &e.ActorID, &e.SubjectID, &kind, &e.GroupID, &e.OccurredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		e.Kind = model.InteractionKind(kind)
		e.OccurredAt = e.OccurredAt.UTC()
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate events")
}

// wrapPg maps unique violations to ErrConflict and wraps everything else.
func wrapPg(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return eris.Wrap(err, msg)
}
