package storage_test

import (
	"sort"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/storage"
)

var _ = Describe("Record", func() {
	Describe("FormatTimestamp", func() {
		It("renders fixed-width UTC microseconds", func() {
			loc := time.FixedZone("UTC+2", 2*60*60)
			t := time.Date(2026, 3, 4, 12, 0, 0, 0, loc)
			Expect(storage.FormatTimestamp(t)).To(Equal("2026-03-04T10:00:00.000000Z"))
		})

		It("sorts lexicographically in chronological order", func() {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			times := []time.Time{
				base.Add(time.Second),
				base.Add(10 * time.Microsecond),
				base,
				base.Add(time.Hour),
			}

			formatted := make([]string, len(times))
			for i, t := range times {
				formatted[i] = storage.FormatTimestamp(t)
			}
			sort.Strings(formatted)

			Expect(formatted).To(Equal([]string{
				"2026-01-01T00:00:00.000000Z",
				"2026-01-01T00:00:00.000010Z",
				"2026-01-01T00:00:01.000000Z",
				"2026-01-01T01:00:00.000000Z",
			}))
		})

		It("round trips through ParseTimestamp", func() {
			t := time.Date(2026, 5, 6, 7, 8, 9, 123456000, time.UTC)
			parsed, err := storage.ParseTimestamp(storage.FormatTimestamp(t))
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed.Equal(t)).To(BeTrue())
		})
	})

	Describe("SortKey", func() {
		It("orders equal timestamps by sequence", func() {
			a := storage.SortKey("2026-01-01T00:00:00.000000Z", 9)
			b := storage.SortKey("2026-01-01T00:00:00.000000Z", 10)
			Expect(a < b).To(BeTrue())
			Expect(a).To(Equal("2026-01-01T00:00:00.000000Z#00000000000000000009"))
		})
	})

	Describe("Validate", func() {
		It("accepts a complete record", func() {
			r := &storage.Record{ConversationID: "c", Timestamp: "2026-01-01T00:00:00.000000Z"}
			Expect(r.Validate()).To(Succeed())
		})

		It("rejects a missing timestamp", func() {
			r := &storage.Record{ConversationID: "c"}
			Expect(r.Validate()).To(MatchError(storage.ErrInvalidRecord))
		})
	})

	Describe("NotFoundError", func() {
		It("names the conversation", func() {
			err := storage.NotFoundError{ConversationID: "abc"}
			Expect(err.Error()).To(Equal("conversation not found: abc"))
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})
})
