// Package postgres is the PostgreSQL event store.  It mirrors the MySQL
// store in the parent package: one row per (owner, name), snapshot
// overwrite guarded by a version column.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/repository"
	"github.com/iliyamo/event-ticket-vault/internal/snapshot"
)

// Schema creates the event_snapshots table.
const Schema = `CREATE TABLE IF NOT EXISTS event_snapshots (
    owner          TEXT        NOT NULL,
    name           TEXT        NOT NULL,
    version        BIGINT      NOT NULL,
    schema_version INT         NOT NULL,
    snapshot       BYTEA       NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (owner, name)
)`

type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create event_snapshots: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, owner string, ev *model.Event) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrWriteFailure, err)
	}
	const query = `
INSERT INTO event_snapshots (owner, name, version, schema_version, snapshot)
VALUES ($1, $2, 1, $3, $4)`
	if _, err := r.pool.Exec(ctx, query, owner, ev.Name, snapshot.SchemaVersion, data); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEventExists
		}
		return fmt.Errorf("%w: insert event: %v", repository.ErrWriteFailure, err)
	}
	return nil
}

func (r *EventRepository) Load(ctx context.Context, owner, name string) (*model.Event, uint64, error) {
	const query = `SELECT snapshot, version FROM event_snapshots WHERE owner = $1 AND name = $2`
	var (
		data    []byte
		version int64
	)
	err := r.pool.QueryRow(ctx, query, owner, name).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, repository.ErrEventNotFound
		}
		return nil, 0, fmt.Errorf("%w: get event: %v", repository.ErrReadFailure, err)
	}
	ev, err := snapshot.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", repository.ErrEventNotFound, err)
	}
	return ev, uint64(version), nil
}

func (r *EventRepository) Save(ctx context.Context, owner string, ev *model.Event, version uint64) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrWriteFailure, err)
	}
	const query = `
UPDATE event_snapshots
SET snapshot = $1, schema_version = $2, version = version + 1, updated_at = NOW()
WHERE owner = $3 AND name = $4 AND version = $5`
	tag, err := r.pool.Exec(ctx, query, data, snapshot.SchemaVersion, owner, ev.Name, int64(version))
	if err != nil {
		return fmt.Errorf("%w: update event: %v", repository.ErrWriteFailure, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_snapshots WHERE owner = $1 AND name = $2)`,
		owner, ev.Name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: check event: %v", repository.ErrReadFailure, err)
	}
	if !exists {
		return repository.ErrEventNotFound
	}
	return repository.ErrVersionConflict
}

func (r *EventRepository) Delete(ctx context.Context, owner, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_snapshots WHERE owner = $1 AND name = $2`, owner, name)
	if err != nil {
		return fmt.Errorf("%w: delete event: %v", repository.ErrWriteFailure, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, owner string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM event_snapshots WHERE owner = $1 ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list events: %v", repository.ErrReadFailure, err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: scan events: %v", repository.ErrReadFailure, err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
