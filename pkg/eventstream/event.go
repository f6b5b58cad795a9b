// Package eventstream defines the events parley emits after durable writes
// and the publishers that ship them.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/parley/pkg/transcript"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeConversationRecorded is emitted after a conversation snapshot
	// is persisted.
	EventTypeConversationRecorded = "parley.conversation.recorded"
)

// ConversationRecordedEvent is a transport-neutral payload describing one
// persisted snapshot. It carries the newest turn, not the full transcript.
type ConversationRecordedEvent struct {
	SchemaVersion   int             `json:"schema_version"`
	EventType       string          `json:"event_type"`
	EventID         string          `json:"event_id"`
	EmittedAt       time.Time       `json:"emitted_at"`
	Source          EventSource     `json:"source"`
	ConversationID  string          `json:"conversation_id"`
	RecordTimestamp string          `json:"record_timestamp"`
	TurnCount       int             `json:"turn_count"`
	Degraded        bool            `json:"degraded"`
	LastTurn        transcript.Turn `json:"last_turn"`
}

// EventSource identifies the emitting service.
type EventSource struct {
	Service  string `json:"service"`
	Provider string `json:"provider,omitempty"`
	ModelID  string `json:"model_id,omitempty"`
}

// NewConversationRecordedEvent stamps a v1 event with a fresh id.
func NewConversationRecordedEvent(source EventSource, conversationID, recordTimestamp string, t transcript.Transcript, degraded bool, now time.Time) *ConversationRecordedEvent {
	last, _ := t.Last()

	return &ConversationRecordedEvent{
		SchemaVersion:   SchemaVersionV1,
		EventType:       EventTypeConversationRecorded,
		EventID:         uuid.NewString(),
		EmittedAt:       now.UTC(),
		Source:          source,
		ConversationID:  conversationID,
		RecordTimestamp: recordTimestamp,
		TurnCount:       t.Len(),
		Degraded:        degraded,
		LastTurn:        last,
	}
}
