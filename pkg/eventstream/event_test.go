package eventstream_test

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/eventstream"
	"github.com/papercomputeco/parley/pkg/transcript"
)

var _ = Describe("Event", func() {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t := transcript.New(
		transcript.Turn{Role: transcript.RoleUser, Message: "hello"},
		transcript.Turn{Role: transcript.RoleModel, Message: "Error occurred"},
	)

	It("builds a v1 recorded event", func() {
		event := eventstream.NewConversationRecordedEvent(
			eventstream.EventSource{Service: "parley", Provider: "bedrock"},
			"conv-1", "2026-01-01T00:00:00.000000Z", t, true, now,
		)

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal("parley.conversation.recorded"))
		Expect(uuid.Validate(event.EventID)).To(Succeed())
		Expect(event.TurnCount).To(Equal(2))
		Expect(event.Degraded).To(BeTrue())
		Expect(event.LastTurn.Message).To(Equal("Error occurred"))
	})

	It("marshals with the expected top-level keys", func() {
		event := eventstream.NewConversationRecordedEvent(eventstream.EventSource{Service: "parley"}, "conv-1", "ts", t, false, now)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		for _, key := range []string{
			"schema_version", "event_type", "event_id", "emitted_at", "source",
			"conversation_id", "record_timestamp", "turn_count", "degraded", "last_turn",
		} {
			Expect(got).To(HaveKey(key))
		}
		Expect(got["last_turn"]).To(HaveKeyWithValue("role", "model"))
	})
})
