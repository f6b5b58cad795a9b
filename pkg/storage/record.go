package storage

import (
	"fmt"
	"time"
)

// TimestampLayout is an ISO-8601 UTC layout with a fixed microsecond field,
// so lexicographic order matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Record is one persisted snapshot of a conversation.
type Record struct {
	ConversationID string `json:"conversation_id" dynamodbav:"conversation_id"`
	Timestamp      string `json:"timestamp" dynamodbav:"timestamp"`

	// Conversation is the full transcript serialized as a JSON array of
	// {role, message} objects.
	Conversation string `json:"conversation" dynamodbav:"conversation"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// Validate checks that r can be stored.
func (r *Record) Validate() error {
	switch {
	case r == nil:
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	case r.ConversationID == "":
		return fmt.Errorf("%w: missing conversation id", ErrInvalidRecord)
	case r.Timestamp == "":
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	return nil
}

// SortKey is the key used by ordered backends: the timestamp followed by a
// zero-padded insertion sequence that keeps equal timestamps apart.
func SortKey(timestamp string, seq uint64) string {
	return fmt.Sprintf("%s#%020d", timestamp, seq)
}
