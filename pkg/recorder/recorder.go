// Package recorder writes conversation snapshots to durable storage and
// announces each write on the event stream.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/papercomputeco/parley/pkg/eventstream"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/storage"
	"github.com/papercomputeco/parley/pkg/transcript"
	"github.com/papercomputeco/parley/pkg/worker"
)

// maxConflictRetries bounds how often a write is re-stamped when a backend
// keyed on the timestamp already holds the key.
const maxConflictRetries = 3

// Enqueuer accepts event jobs without blocking. *worker.Pool satisfies it.
type Enqueuer interface {
	Enqueue(job worker.Job) bool
}

// Config is the configuration for a Writer.
type Config struct {
	// Driver is the record store. Required.
	Driver storage.Driver

	// Events is optional. When set, every successful write enqueues a
	// conversation recorded event.
	Events Enqueuer

	// Source is stamped on emitted events.
	Source eventstream.EventSource

	// Now defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Writer persists full transcript snapshots. It never mutates the
// transcript it is given and is safe for concurrent use.
type Writer struct {
	driver storage.Driver
	events Enqueuer
	source eventstream.EventSource
	now    func() time.Time
	logger *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(c *Config) (*Writer, error) {
	if c.Driver == nil {
		return nil, errors.New("recorder requires a storage driver")
	}

	w := &Writer{
		driver: c.Driver,
		events: c.Events,
		source: c.Source,
		now:    c.Now,
		logger: c.Logger,
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.logger == nil {
		w.logger = logger.Nop()
	}

	return w, nil
}

type recordOptions struct {
	degraded bool
}

// RecordOption annotates a write.
type RecordOption func(*recordOptions)

// WithDegraded marks the snapshot as ending in a placeholder reply.
func WithDegraded(degraded bool) RecordOption {
	return func(o *recordOptions) {
		o.degraded = degraded
	}
}

// Record stores the whole transcript as a new record under conversationID,
// stamped with the current UTC time. Replays produce additional records.
// Failures are returned as *PersistenceError.
func (w *Writer) Record(ctx context.Context, conversationID string, t transcript.Transcript, opts ...RecordOption) (*storage.Record, error) {
	o := &recordOptions{}
	for _, opt := range opts {
		opt(o)
	}

	snapshot := t.Clone()
	conversation, err := snapshot.Encode()
	if err != nil {
		return nil, &PersistenceError{ConversationID: conversationID, Err: err}
	}

	stamp := w.now()
	record := &storage.Record{ConversationID: conversationID, Conversation: conversation}

	for attempt := 0; ; attempt++ {
		record.Timestamp = storage.FormatTimestamp(stamp)

		err = w.driver.Put(ctx, record)
		if !errors.Is(err, storage.ErrConflict) || attempt == maxConflictRetries {
			break
		}

		w.logger.Debug("record key taken, re-stamping",
			"conversation_id", conversationID,
			"timestamp", record.Timestamp,
		)
		stamp = stamp.Add(time.Microsecond)
	}
	if err != nil {
		return nil, &PersistenceError{ConversationID: conversationID, Err: err}
	}

	w.logger.Debug("conversation recorded",
		"conversation_id", conversationID,
		"timestamp", record.Timestamp,
		"turns", snapshot.Len(),
	)

	if w.events != nil {
		event := eventstream.NewConversationRecordedEvent(w.source, conversationID, record.Timestamp, snapshot, o.degraded, w.now())
		w.events.Enqueue(worker.Job{Event: event})
	}

	return record, nil
}

// Rehydrate loads the newest persisted transcript for conversationID. It
// satisfies session.Rehydrator.
func (w *Writer) Rehydrate(ctx context.Context, conversationID string) (transcript.Transcript, bool, error) {
	record, err := w.driver.Latest(ctx, conversationID)
	if storage.IsNotFound(err) {
		return transcript.Transcript{}, false, nil
	}
	if err != nil {
		return transcript.Transcript{}, false, err
	}

	t, err := transcript.Decode(record.Conversation)
	if err != nil {
		return transcript.Transcript{}, false, err
	}
	return t, true, nil
}
