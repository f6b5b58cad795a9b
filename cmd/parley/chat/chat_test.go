package chatcmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/api"
	chatcmder "github.com/papercomputeco/parley/cmd/parley/chat"
	"github.com/papercomputeco/parley/pkg/dotdir"
)

// fakeServer answers /chat, assigning "sess-<n>" to new sessions.
type fakeServer struct {
	mu       sync.Mutex
	sessions []string
	prompts  []string
	created  int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var req api.ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	sid := r.Header.Get(api.SessionHeader)
	if sid == "" {
		f.created++
		sid = "sess-" + strings.Repeat("x", f.created)
	}
	f.sessions = append(f.sessions, r.Header.Get(api.SessionHeader))
	f.prompts = append(f.prompts, req.Prompt)

	_ = json.NewEncoder(w).Encode(api.ChatResponse{GeneratedText: "echo " + req.Prompt, SessionID: sid})
}

var _ = Describe("NewChatCmd", func() {
	It("creates a command with the correct use string and flags", func() {
		cmd := chatcmder.NewChatCmd()
		Expect(cmd.Use).To(Equal("chat"))

		target := cmd.Flags().Lookup("target")
		Expect(target).NotTo(BeNil())
		Expect(target.DefValue).To(Equal("http://localhost:8080"))
		Expect(cmd.Flags().Lookup("new")).NotTo(BeNil())
	})
})

var _ = Describe("chat REPL", func() {
	var (
		fake   *fakeServer
		srv    *httptest.Server
		dir    string
		output *bytes.Buffer
	)

	BeforeEach(func() {
		fake = &fakeServer{}
		srv = httptest.NewServer(fake)
		DeferCleanup(srv.Close)
		dir = GinkgoT().TempDir()
		output = &bytes.Buffer{}
	})

	runChat := func(input string, extra ...string) {
		cmd := chatcmder.NewChatCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetIn(strings.NewReader(input))
		cmd.SetOut(output)
		cmd.SetArgs(append([]string{"--config-dir", dir, "--target", srv.URL}, extra...))
		Expect(cmd.Execute()).To(Succeed())
	}

	It("keeps the session id across turns and prints replies", func() {
		runChat("hello\n\nagain\n/exit\n")

		Expect(fake.prompts).To(Equal([]string{"hello", "again"}))
		Expect(fake.sessions).To(Equal([]string{"", "sess-x"}))
		Expect(output.String()).To(ContainSubstring("echo hello"))
		Expect(output.String()).To(ContainSubstring("echo again"))
	})

	It("resumes the remembered session on the next run", func() {
		runChat("hello\n")
		runChat("back\n")

		Expect(fake.sessions).To(Equal([]string{"", "sess-x"}))
		Expect(output.String()).To(ContainSubstring("Resuming session"))

		state, err := dotdir.NewManager().LoadChatState(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.SessionID).To(Equal("sess-x"))
		Expect(state.Target).To(Equal(srv.URL))
	})

	It("starts over with --new and /new", func() {
		runChat("hello\n")
		runChat("fresh\n/new\nagain\n", "--new")

		Expect(fake.sessions).To(Equal([]string{"", "", ""}))
	})

	It("does not resume a session from another server", func() {
		Expect(dotdir.NewManager().SaveChatState(&dotdir.ChatState{
			SessionID: "elsewhere",
			Target:    "http://other:8080",
		}, dir)).To(Succeed())

		runChat("hello\n")
		Expect(fake.sessions).To(Equal([]string{""}))
	})
})
