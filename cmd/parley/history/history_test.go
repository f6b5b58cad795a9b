package historycmder_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/api"
	historycmder "github.com/papercomputeco/parley/cmd/parley/history"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/transcript"
)

var _ = Describe("history command", func() {
	var (
		srv    *httptest.Server
		dir    string
		output *bytes.Buffer
	)

	first := api.RecordResponse{
		ConversationID: "c1",
		Timestamp:      "2026-01-01T00:00:00.000001Z",
		Turns: []transcript.Turn{
			{Role: transcript.RoleUser, Message: "hello"},
			{Role: transcript.RoleModel, Message: "hi"},
		},
	}
	second := api.RecordResponse{
		ConversationID: "c1",
		Timestamp:      "2026-01-01T00:00:05.000001Z",
		Turns: append(first.Turns,
			transcript.Turn{Role: transcript.RoleUser, Message: "how are you"},
			transcript.Turn{Role: transcript.RoleModel, Message: "fine"},
		),
	}

	BeforeEach(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/conversations/c1", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(api.RecordsResponse{ConversationID: "c1", Count: 2, Records: []api.RecordResponse{first, second}})
		})
		mux.HandleFunc("/conversations/c1/latest", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(second)
		})
		srv = httptest.NewServer(mux)
		DeferCleanup(srv.Close)

		dir = GinkgoT().TempDir()
		output = &bytes.Buffer{}
	})

	run := func(args ...string) error {
		cmd := historycmder.NewHistoryCmd()
		cmd.Flags().String("config-dir", "", "")
		cmd.SetOut(output)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--config-dir", dir, "--target", srv.URL}, args...))
		return cmd.Execute()
	}

	It("prints every snapshot in order", func() {
		Expect(run("c1")).To(Succeed())

		out := output.String()
		Expect(out).To(ContainSubstring("(2 snapshots)"))
		Expect(out).To(ContainSubstring("how are you"))
		Expect(bytes.Index(output.Bytes(), []byte(first.Timestamp))).To(BeNumerically("<", bytes.Index(output.Bytes(), []byte(second.Timestamp))))
	})

	It("prints only the latest snapshot as JSON", func() {
		Expect(run("c1", "--latest", "--json")).To(Succeed())

		var records []api.RecordResponse
		Expect(json.Unmarshal(output.Bytes(), &records)).To(Succeed())
		Expect(records).To(Equal([]api.RecordResponse{second}))
	})

	It("falls back to the remembered chat session", func() {
		Expect(dotdir.NewManager().SaveChatState(&dotdir.ChatState{SessionID: "c1"}, dir)).To(Succeed())
		Expect(run()).To(Succeed())
		Expect(output.String()).To(ContainSubstring("c1"))
	})

	It("fails without an id or remembered session", func() {
		Expect(run()).To(MatchError(ContainSubstring("no conversation id")))
	})

	It("reports unknown conversations", func() {
		Expect(run("missing")).To(MatchError(ContainSubstring("conversation not found")))
	})
})
