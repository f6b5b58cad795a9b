package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/parley/cmd/parley/config"
	"github.com/papercomputeco/parley/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("has set, get, list and preset subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))

		names := make([]string, 0, len(cmd.Commands()))
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ContainElements("set", "get", "list", "preset"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	execute := func(args ...string) error {
		root := &cobra.Command{Use: "parley", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(configcmder.NewConfigCmd())
		root.SetOut(out)
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(append([]string{"--config-dir", tmpDir, "config"}, args...))
		return root.Execute()
	}

	load := func() *config.Config {
		cfger, err := config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set subcommand", func() {
		It("sets a config value and creates the file", func() {
			Expect(execute("set", "inference.provider", "ollama")).To(Succeed())
			Expect(filepath.Join(tmpDir, "config.toml")).To(BeAnExistingFile())
			Expect(load().Inference.Provider).To(Equal("ollama"))
			Expect(out.String()).To(ContainSubstring("Set"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("set", "proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects invalid typed values", func() {
			Expect(execute("set", "session.max_turns", "lots")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(execute("set", "inference.provider")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(execute("set", "storage.provider", "bolt")).To(Succeed())
			out.Reset()

			Expect(execute("get", "storage.provider")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("bolt"))
		})

		It("marks unset keys", func() {
			Expect(execute("get", "storage.postgres_dsn")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(execute("get", "nope")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(execute("list")).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
			Expect(out.String()).To(ContainSubstring(`"amazon.titan-text-express-v1"`))
		})

		It("rejects any arguments", func() {
			Expect(execute("list", "extra")).To(HaveOccurred())
		})
	})

	Describe("preset subcommand", func() {
		It("writes the preset", func() {
			Expect(execute("preset", "ollama")).To(Succeed())
			cfg := load()
			Expect(cfg.Inference.Provider).To(Equal("ollama"))
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		})

		It("rejects unknown presets without touching the file", func() {
			Expect(execute("preset", "openai")).To(HaveOccurred())
			_, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
