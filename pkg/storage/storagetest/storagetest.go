// Package storagetest holds the shared ginkgo behaviors every
// storage.Driver must satisfy.
package storagetest

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/storage"
)

// Record builds a record with a conversation body derived from body.
func Record(conversationID, timestamp, body string) *storage.Record {
	return &storage.Record{
		ConversationID: conversationID,
		Timestamp:      timestamp,
		Conversation:   fmt.Sprintf(`[{"role":"user","message":%q}]`, body),
	}
}

// DriverBehaviors registers the driver contract specs. newDriver is called
// before each test; the returned driver is closed afterwards.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver()
		DeferCleanup(driver.Close)
	})

	Describe("Put", func() {
		It("rejects a nil record", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrInvalidRecord))
		})

		It("rejects a record without a conversation id", func() {
			err := driver.Put(ctx, Record("", "2026-01-01T00:00:00.000000Z", "x"))
			Expect(err).To(MatchError(storage.ErrInvalidRecord))
		})
	})

	Describe("List", func() {
		It("returns an empty slice for an unknown conversation", func() {
			records, err := driver.List(ctx, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("returns records in ascending timestamp order", func() {
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:02.000000Z", "second"))).To(Succeed())
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:01.000000Z", "first"))).To(Succeed())
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:03.000000Z", "third"))).To(Succeed())

			records, err := driver.List(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].Timestamp).To(Equal("2026-01-01T00:00:01.000000Z"))
			Expect(records[1].Timestamp).To(Equal("2026-01-01T00:00:02.000000Z"))
			Expect(records[2].Timestamp).To(Equal("2026-01-01T00:00:03.000000Z"))
			Expect(records[0].Conversation).To(ContainSubstring("first"))
		})

		It("keeps conversations apart", func() {
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:01.000000Z", "a"))).To(Succeed())
			Expect(driver.Put(ctx, Record("c2", "2026-01-01T00:00:01.000000Z", "b"))).To(Succeed())

			records, err := driver.List(ctx, "c2")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ConversationID).To(Equal("c2"))
		})
	})

	Describe("Latest", func() {
		It("returns a NotFoundError for an unknown conversation", func() {
			_, err := driver.Latest(ctx, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("returns the newest record", func() {
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:01.000000Z", "old"))).To(Succeed())
			Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:09.000000Z", "new"))).To(Succeed())

			latest, err := driver.Latest(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Timestamp).To(Equal("2026-01-01T00:00:09.000000Z"))
			Expect(latest.Conversation).To(ContainSubstring("new"))
		})
	})
}

// DuplicateBehaviors registers specs for backends that keep two records
// written under the same conversation id and timestamp.
func DuplicateBehaviors(newDriver func() storage.Driver) {
	It("stores replays as separate records", func() {
		ctx := context.Background()
		driver := newDriver()
		DeferCleanup(driver.Close)

		Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:01.000000Z", "one"))).To(Succeed())
		Expect(driver.Put(ctx, Record("c1", "2026-01-01T00:00:01.000000Z", "two"))).To(Succeed())

		records, err := driver.List(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(2))

		latest, err := driver.Latest(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(latest.Conversation).To(ContainSubstring("two"))
	})
}
