package storageutils_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/storage/bolt"
	"github.com/papercomputeco/parley/pkg/storage/inmemory"
	"github.com/papercomputeco/parley/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/parley/pkg/storage/utils"
)

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("defaults to in-memory storage", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("opens SQLite", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: "sqlite",
			SQLitePath:   filepath.Join(GinkgoT().TempDir(), "parley.db"),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
	})

	It("opens bolt", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: "bolt",
			BoltPath:     filepath.Join(GinkgoT().TempDir(), "parley.bolt"),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(d.Close)
		Expect(d).To(BeAssignableToTypeOf(&bolt.Driver{}))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "cassandra"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})
})
