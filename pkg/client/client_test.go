package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/api"
	"github.com/papercomputeco/parley/pkg/client"
	"github.com/papercomputeco/parley/pkg/transcript"
)

var _ = Describe("Client", func() {
	var (
		srv     *httptest.Server
		handler http.HandlerFunc
		c       *client.Client
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		DeferCleanup(srv.Close)
		c = client.New(srv.URL+"/", nil)
	})

	Describe("Chat", func() {
		It("sends the prompt and session header", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/chat"))
				Expect(r.Header.Get(api.SessionHeader)).To(Equal("sess-1"))

				var req api.ChatRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Prompt).To(Equal("hello"))

				w.Header().Set(api.WarningHeader, "conversation not persisted")
				_ = json.NewEncoder(w).Encode(api.ChatResponse{GeneratedText: "hi", SessionID: "sess-1"})
			}

			res, err := c.Chat(ctx, "sess-1", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(res).To(Equal(&client.ChatResult{Text: "hi", SessionID: "sess-1", Warning: "conversation not persisted"}))
		})

		It("omits the session header for a new session", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.Header.Get(api.SessionHeader)).To(BeEmpty())
				_ = json.NewEncoder(w).Encode(api.ChatResponse{GeneratedText: "hi", SessionID: "new"})
			}

			res, err := c.Chat(ctx, "", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.SessionID).To(Equal("new"))
		})

		It("surfaces server errors", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Prompt is required"})
			}

			_, err := c.Chat(ctx, "", " ")
			var se *client.StatusError
			Expect(errors.As(err, &se)).To(BeTrue())
			Expect(se.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(se.Message).To(Equal("Prompt is required"))
		})
	})

	Describe("History and Latest", func() {
		It("decodes the records", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				turns := []transcript.Turn{{Role: transcript.RoleUser, Message: "hello"}}
				rec := api.RecordResponse{ConversationID: "c1", Timestamp: "2026-01-01T00:00:00.000001Z", Turns: turns}
				switch r.URL.Path {
				case "/conversations/c1":
					_ = json.NewEncoder(w).Encode(api.RecordsResponse{ConversationID: "c1", Count: 1, Records: []api.RecordResponse{rec}})
				case "/conversations/c1/latest":
					_ = json.NewEncoder(w).Encode(rec)
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}

			hist, err := c.History(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(hist.Count).To(Equal(1))
			Expect(hist.Records[0].Turns[0].Message).To(Equal("hello"))

			latest, err := c.Latest(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Timestamp).To(Equal("2026-01-01T00:00:00.000001Z"))
		})

		It("maps 404 to ErrNotFound", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}

			_, err := c.History(ctx, "missing")
			Expect(err).To(MatchError(client.ErrNotFound))
		})
	})
})
