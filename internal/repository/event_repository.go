package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/snapshot"
)

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// EventSchemaMySQL creates the event_snapshots table.  One row per
// (owner, name); the snapshot column holds the encoded event and
// version is bumped on every successful save.  The key columns use a
// binary collation so "Concert" and "concert" are distinct events.
const EventSchemaMySQL = `CREATE TABLE IF NOT EXISTS event_snapshots (
    owner          VARCHAR(191)    CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
    name           VARCHAR(191)    CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
    version        BIGINT UNSIGNED NOT NULL,
    schema_version INT             NOT NULL,
    snapshot       LONGBLOB        NOT NULL,
    created_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (owner, name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// eventKeyCollationMySQL brings a table created with the server's default
// (case-insensitive) collation in line with EventSchemaMySQL.
const eventKeyCollationMySQL = `ALTER TABLE event_snapshots
    MODIFY owner VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
    MODIFY name  VARCHAR(191) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`

// EventRepo stores event snapshots in MySQL.  Each Save is a single
// UPDATE guarded by the version column, so a snapshot is replaced
// atomically or not at all.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for callers that need to manage the
// schema or health checks.
func (r *EventRepo) DB() *sql.DB { return r.db }

// EnsureSchema creates the snapshot table when it does not exist and
// makes its key columns case-sensitive.
func (r *EventRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, EventSchemaMySQL); err != nil {
		return fmt.Errorf("create event_snapshots: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, eventKeyCollationMySQL); err != nil {
		return fmt.Errorf("collate event_snapshots keys: %w", err)
	}
	return nil
}

// Create inserts a new event at version 1.  It returns ErrEventExists
// when the owner already has an event with the same name.
func (r *EventRepo) Create(ctx context.Context, owner string, ev *model.Event) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	const q = `INSERT INTO event_snapshots (owner, name, version, schema_version, snapshot) VALUES (?, ?, 1, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, owner, ev.Name, snapshot.SchemaVersion, data); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrEventExists
		}
		return fmt.Errorf("%w: insert %s/%s: %v", ErrWriteFailure, owner, ev.Name, err)
	}
	return nil
}

// Load reads and decodes the snapshot for (owner, name).  A record that
// cannot be decoded is reported as ErrEventNotFound.
func (r *EventRepo) Load(ctx context.Context, owner, name string) (*model.Event, uint64, error) {
	const q = `SELECT snapshot, version FROM event_snapshots WHERE owner = ? AND name = ?`
	var (
		data    []byte
		version uint64
	)
	err := r.db.QueryRowContext(ctx, q, owner, name).Scan(&data, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrEventNotFound
		}
		return nil, 0, fmt.Errorf("%w: select %s/%s: %v", ErrReadFailure, owner, name, err)
	}
	ev, err := snapshot.Decode(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrEventNotFound, err)
	}
	return ev, version, nil
}

// Save overwrites the snapshot when the stored version equals version
// and bumps it by one.  ErrVersionConflict means another writer saved
// first; ErrEventNotFound means the row was deleted meanwhile.
func (r *EventRepo) Save(ctx context.Context, owner string, ev *model.Event, version uint64) error {
	data, err := snapshot.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailure, err)
	}
	const q = `UPDATE event_snapshots
               SET snapshot = ?, schema_version = ?, version = version + 1
               WHERE owner = ? AND name = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, q, data, snapshot.SchemaVersion, owner, ev.Name, version)
	if err != nil {
		return fmt.Errorf("%w: update %s/%s: %v", ErrWriteFailure, owner, ev.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrWriteFailure, err)
	}
	if n == 1 {
		return nil
	}
	return r.missOrConflict(ctx, owner, ev.Name)
}

func (r *EventRepo) missOrConflict(ctx context.Context, owner, name string) error {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM event_snapshots WHERE owner = ? AND name = ?`, owner, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: select %s/%s: %v", ErrReadFailure, owner, name, err)
	}
	return ErrVersionConflict
}

// Delete removes the record for (owner, name).
func (r *EventRepo) Delete(ctx context.Context, owner, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_snapshots WHERE owner = ? AND name = ?`, owner, name)
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", ErrWriteFailure, owner, name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// List returns the names of the owner's events ordered by name.
func (r *EventRepo) List(ctx context.Context, owner string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM event_snapshots WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrReadFailure, owner, err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrReadFailure, err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return names, nil
}
