// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/parley/pkg/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	conversation    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_conversation_timestamp
	ON records (conversation_id, timestamp);
`

// Driver implements storage.Driver on a SQLite database.
type Driver struct {
	db *sql.DB
}

// NewDriver opens or creates the database at dbPath and applies the schema.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(ctx context.Context, dbPath string) (*Driver, error) {
	// Open the database using the github.com/mattn/go-sqlite3 driver (registered as "sqlite3")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put inserts a new row; the autoincrement id keeps replays apart.
func (d *Driver) Put(ctx context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO records (conversation_id, timestamp, conversation) VALUES (?, ?, ?)`,
		record.ConversationID, record.Timestamp, record.Conversation,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// List returns a conversation's records ordered by timestamp, then insertion.
func (d *Driver) List(ctx context.Context, conversationID string) ([]*storage.Record, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT conversation_id, timestamp, conversation FROM records
		 WHERE conversation_id = ? ORDER BY timestamp ASC, id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*storage.Record{}
	for rows.Next() {
		r := &storage.Record{}
		if err := rows.Scan(&r.ConversationID, &r.Timestamp, &r.Conversation); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// Latest returns the newest record of a conversation.
func (d *Driver) Latest(ctx context.Context, conversationID string) (*storage.Record, error) {
	r := &storage.Record{}
	err := d.db.QueryRowContext(ctx,
		`SELECT conversation_id, timestamp, conversation FROM records
		 WHERE conversation_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		conversationID,
	).Scan(&r.ConversationID, &r.Timestamp, &r.Conversation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest record: %w", err)
	}

	return r, nil
}

// Close closes the database.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ storage.Driver = (*Driver)(nil)
