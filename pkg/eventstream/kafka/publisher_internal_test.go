package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/parley/pkg/eventstream"
)

type recordingWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *Publisher
	)

	BeforeEach(func() {
		writer = &recordingWriter{}
		publisher = &Publisher{writer: writer}
	})

	It("requires brokers", func() {
		_, err := NewPublisher(Config{})
		Expect(err).To(HaveOccurred())
	})

	It("configures a hash-balanced writer on the default topic", func() {
		p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}})
		Expect(err).NotTo(HaveOccurred())

		w, ok := p.writer.(*kafkago.Writer)
		Expect(ok).To(BeTrue())
		Expect(w.Topic).To(Equal(DefaultTopic))
		Expect(w.Balancer).To(BeAssignableToTypeOf(&kafkago.Hash{}))
	})

	It("rejects nil events", func() {
		Expect(publisher.Publish(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(writer.messages).To(BeEmpty())
	})

	It("keys messages by conversation id", func() {
		event := &eventstream.ConversationRecordedEvent{
			SchemaVersion:  eventstream.SchemaVersionV1,
			EventType:      eventstream.EventTypeConversationRecorded,
			EventID:        "evt-1",
			ConversationID: "conv-1",
			TurnCount:      2,
		}

		Expect(publisher.Publish(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("conv-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("parley.conversation.recorded")}))

		var decoded eventstream.ConversationRecordedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.TurnCount).To(Equal(2))
	})

	It("wraps write failures", func() {
		writer.err = errors.New("broker unavailable")
		err := publisher.Publish(context.Background(), &eventstream.ConversationRecordedEvent{ConversationID: "c"})
		Expect(err).To(MatchError(ContainSubstring("broker unavailable")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})
