// Package bolt provides an embedded bbolt-backed storage driver. Each
// conversation is a bucket whose keys sort by timestamp.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/papercomputeco/parley/pkg/storage"
)

var rootBucket = []byte("conversations")

// Driver implements storage.Driver on a bbolt file.
type Driver struct {
	db *bolt.DB
}

// NewDriver opens or creates the database file at path.
func NewDriver(path string) (*Driver, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create root bucket: %w", err)
	}

	return &Driver{db: db}, nil
}

// Put appends the record under timestamp#sequence.
func (d *Driver) Put(_ context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return d.db.Update(func(tx *bolt.Tx) error {
		conv, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(record.ConversationID))
		if err != nil {
			return err
		}

		seq, err := conv.NextSequence()
		if err != nil {
			return err
		}

		return conv.Put([]byte(storage.SortKey(record.Timestamp, seq)), value)
	})
}

// List scans the conversation bucket in key order.
func (d *Driver) List(_ context.Context, conversationID string) ([]*storage.Record, error) {
	records := []*storage.Record{}

	err := d.db.View(func(tx *bolt.Tx) error {
		conv := tx.Bucket(rootBucket).Bucket([]byte(conversationID))
		if conv == nil {
			return nil
		}

		return conv.ForEach(func(_, v []byte) error {
			r := &storage.Record{}
			if err := json.Unmarshal(v, r); err != nil {
				return err
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// Latest reads the last key of the conversation bucket.
func (d *Driver) Latest(_ context.Context, conversationID string) (*storage.Record, error) {
	var record *storage.Record

	err := d.db.View(func(tx *bolt.Tx) error {
		conv := tx.Bucket(rootBucket).Bucket([]byte(conversationID))
		if conv == nil {
			return nil
		}

		_, v := conv.Cursor().Last()
		if v == nil {
			return nil
		}

		record = &storage.Record{}
		return json.Unmarshal(v, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read latest record: %w", err)
	}
	if record == nil {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}

	return record, nil
}

// Close closes the database file.
func (d *Driver) Close() error {
	return d.db.Close()
}

var _ storage.Driver = (*Driver)(nil)
