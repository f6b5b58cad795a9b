// Package inmemory provides a process-local storage.Driver for tests and
// development.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/papercomputeco/parley/pkg/storage"
)

// Driver implements storage.Driver with a map of per-conversation slices.
type Driver struct {
	// mu guards records
	mu sync.RWMutex

	// records holds each conversation's records in insertion order
	records map[string][]*storage.Record
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string][]*storage.Record),
	}
}

// Put stores a copy of record.
func (d *Driver) Put(_ context.Context, record *storage.Record) error {
	if err := record.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	stored := *record
	d.records[record.ConversationID] = append(d.records[record.ConversationID], &stored)
	return nil
}

// List returns copies of a conversation's records ordered by timestamp.
// Records with equal timestamps keep insertion order.
func (d *Driver) List(_ context.Context, conversationID string) ([]*storage.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stored := d.records[conversationID]
	result := make([]*storage.Record, 0, len(stored))
	for _, r := range stored {
		cp := *r
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

// Latest returns the newest record of a conversation.
func (d *Driver) Latest(ctx context.Context, conversationID string) (*storage.Record, error) {
	records, err := d.List(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}

	return records[len(records)-1], nil
}

// Count returns the total number of stored records.
func (d *Driver) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n := 0
	for _, rs := range d.records {
		n += len(rs)
	}
	return n
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
