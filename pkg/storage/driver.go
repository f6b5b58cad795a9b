// Package storage defines the durable record store for conversation
// snapshots.
package storage

import "context"

// Driver persists conversation records. Records are never overwritten: a
// second Put for the same conversation and timestamp stores a second record.
type Driver interface {
	// Put stores a new record.
	Put(ctx context.Context, record *Record) error

	// List returns every record for a conversation in ascending timestamp
	// order. An unknown conversation yields an empty slice.
	List(ctx context.Context, conversationID string) ([]*Record, error)

	// Latest returns the newest record for a conversation, or a
	// NotFoundError.
	Latest(ctx context.Context, conversationID string) (*Record, error)

	// Close closes the store and releases any resources.
	Close() error
}
