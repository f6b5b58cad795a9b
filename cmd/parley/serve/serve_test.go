package servecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/conversation"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the serve flags with config defaults", func() {
		cmd := NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))

		for _, key := range serveFlags {
			Expect(cmd.Flags().Lookup(config.Flags[key].Name)).NotTo(BeNil(), key)
		}
		Expect(cmd.Flags().Lookup("listen").DefValue).To(Equal(":8080"))
		Expect(cmd.Flags().Lookup("provider").DefValue).To(Equal("bedrock"))
		Expect(cmd.Flags().Lookup("storage").DefValue).To(Equal("inmemory"))
	})

	It("resolves flags over env over file in PreRunE", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`[server]
listen = ":7000"
request_timeout = "30s"

[inference]
provider = "ollama"
`), 0o600)).To(Succeed())
		GinkgoT().Setenv("PARLEY_SERVER_LISTEN", ":7001")

		cmd, cmder := newServeCmd()
		cmd.Flags().String("config-dir", "", "")
		Expect(cmd.ParseFlags([]string{"--config-dir", dir, "--storage", "bolt", "--dynamodb-endpoint", "http://localhost:8000"})).To(Succeed())
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		Expect(cmder.configDir).To(Equal(dir))
		Expect(cmder.cfg.Server.Listen).To(Equal(":7001"))
		Expect(cmder.cfg.Server.RequestTimeout).To(Equal("30s"))
		Expect(cmder.cfg.Inference.Provider).To(Equal("ollama"))
		Expect(cmder.cfg.Storage.Provider).To(Equal("bolt"))
		Expect(cmder.cfg.Storage.DynamoDBEndpoint).To(Equal("http://localhost:8000"))
		Expect(cmder.cfg.Inference.MaxTokens).To(Equal(uint(4096)))
	})
})

var _ = Describe("effectiveModelID", func() {
	It("swaps the bedrock default for ollama", func() {
		Expect(effectiveModelID(config.InferenceConfig{Provider: "ollama", ModelID: "amazon.titan-text-express-v1"})).To(Equal("llama3.2"))
		Expect(effectiveModelID(config.InferenceConfig{Provider: "ollama", ModelID: "mistral"})).To(Equal("mistral"))
		Expect(effectiveModelID(config.InferenceConfig{Provider: "bedrock", ModelID: "amazon.titan-text-express-v1"})).To(Equal("amazon.titan-text-express-v1"))
	})
})

var _ = Describe("resolvePaths", func() {
	It("places file stores and telemetry under the config dir", func() {
		dir := GinkgoT().TempDir()

		cfg := config.NewDefaultConfig()
		cfg.Storage.Provider = "sqlite"
		cfg.Telemetry.Enabled = true
		Expect(resolvePaths(cfg, dir)).To(Succeed())
		Expect(cfg.Storage.SQLitePath).To(Equal(filepath.Join(dir, "parley.db")))
		Expect(cfg.Telemetry.Dir).To(Equal(filepath.Join(dir, "telemetry")))

		cfg = config.NewDefaultConfig()
		cfg.Storage.Provider = "bolt"
		cfg.Storage.BoltPath = "/explicit/parley.bolt"
		Expect(resolvePaths(cfg, dir)).To(Succeed())
		Expect(cfg.Storage.BoltPath).To(Equal("/explicit/parley.bolt"))
		Expect(cfg.Telemetry.Dir).To(BeEmpty())
	})
})

var _ = Describe("newLogger", func() {
	It("writes JSON to the console when requested", func() {
		var console bytes.Buffer
		log, closer, err := newLogger(config.LogConfig{JSON: true}, &console)
		Expect(err).NotTo(HaveOccurred())
		defer closer.Close()

		log.Info("hello", "k", "v")
		var line map[string]any
		Expect(json.Unmarshal(console.Bytes(), &line)).To(Succeed())
		Expect(line["msg"]).To(Equal("hello"))
	})

	It("also writes to a rotated file", func() {
		var console bytes.Buffer
		path := filepath.Join(GinkgoT().TempDir(), "logs", "parley.log")
		log, closer, err := newLogger(config.LogConfig{File: path}, &console)
		Expect(err).NotTo(HaveOccurred())

		log.Info("to both")
		Expect(closer.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"to both"`))
		Expect(console.String()).To(ContainSubstring("to both"))
	})
})

var _ = Describe("newStack", func() {
	var (
		ollama  *httptest.Server
		prompts []string
		cfg     *config.Config
		dir     string
	)

	BeforeEach(func() {
		prompts = nil
		ollama = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Prompt string `json:"prompt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			prompts = append(prompts, body.Prompt)
			_ = json.NewEncoder(w).Encode(map[string]any{"response": "hi there", "done": true})
		}))
		DeferCleanup(ollama.Close)

		dir = GinkgoT().TempDir()
		cfg = config.NewDefaultConfig()
		cfg.Inference.Provider = "ollama"
		cfg.Inference.Endpoint = ollama.URL
		cfg.Storage.Provider = "sqlite"
	})

	It("wires a working chat cycle onto the configured store", func() {
		st, err := newStack(context.Background(), cfg, dir, newTestLogger())
		Expect(err).NotTo(HaveOccurred())
		defer st.Close()

		reply, err := st.orchestrator.Chat(context.Background(), conversation.Request{Prompt: "hello"})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.Text).To(Equal("hi there"))
		Expect(reply.Warning).NotTo(HaveOccurred())
		Expect(prompts).To(Equal([]string{"user: hello"}))

		records, err := st.driver.List(context.Background(), reply.SessionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(filepath.Join(dir, "parley.db")).To(BeAnExistingFile())
	})

	It("rejects an invalid request timeout", func() {
		cfg.Server.RequestTimeout = "soon"
		_, err := newStack(context.Background(), cfg, dir, newTestLogger())
		Expect(err).To(MatchError(ContainSubstring("server.request_timeout")))
	})

	It("rejects an unknown failure policy", func() {
		cfg.Inference.FailurePolicy = "ignore"
		_, err := newStack(context.Background(), cfg, dir, newTestLogger())
		Expect(err).To(MatchError(ContainSubstring("unknown failure policy")))
	})

	It("rejects an unknown storage provider", func() {
		cfg.Storage.Provider = "cassandra"
		_, err := newStack(context.Background(), cfg, dir, newTestLogger())
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider")))
	})
})
