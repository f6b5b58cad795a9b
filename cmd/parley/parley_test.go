package parleycmder_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	parleycmder "github.com/papercomputeco/parley/cmd/parley"
)

var _ = Describe("NewParleyCmd", func() {
	It("wires every subcommand and the global flags", func() {
		cmd := parleycmder.NewParleyCmd()
		Expect(cmd.Use).To(Equal("parley"))

		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("serve", "chat", "history", "config", "version"))

		Expect(cmd.PersistentFlags().Lookup("debug")).NotTo(BeNil())
		Expect(cmd.PersistentFlags().Lookup("config-dir")).NotTo(BeNil())
	})
})
