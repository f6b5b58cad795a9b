package transcript_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/parley/pkg/transcript"
)

var _ = Describe("Transcript", func() {
	var t transcript.Transcript

	BeforeEach(func() {
		t = transcript.Transcript{}
	})

	Describe("Render", func() {
		It("renders an empty transcript as an empty string", func() {
			Expect(t.Render()).To(Equal(""))
		})

		It("renders a single user turn", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			Expect(t.Render()).To(Equal("user: hello"))
		})

		It("joins turns with newlines in append order", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			t.Append(transcript.Turn{Role: transcript.RoleModel, Message: "hi there"})
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "how are you?"})

			Expect(t.Render()).To(Equal("user: hello\nmodel: hi there\nuser: how are you?"))
		})

		It("puts the newest user turn on the last line", func() {
			for _, prompt := range []string{"a", "multi word prompt", "  padded  ", "ünïcödé"} {
				t.Append(transcript.Turn{Role: transcript.RoleUser, Message: prompt})
				lines := strings.Split(t.Render(), "\n")
				Expect(lines[len(lines)-1]).To(Equal("user: " + prompt))
			}
		})

		It("is idempotent", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			t.Append(transcript.Turn{Role: transcript.RoleModel, Message: "hi"})
			Expect(t.Render()).To(Equal(t.Render()))
		})
	})

	Describe("Clone", func() {
		It("is not affected by later appends to the original", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "one"})
			snapshot := t.Clone()
			t.Append(transcript.Turn{Role: transcript.RoleModel, Message: "two"})

			Expect(snapshot.Len()).To(Equal(1))
			Expect(t.Len()).To(Equal(2))
		})
	})

	Describe("Window", func() {
		BeforeEach(func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "1"})
			t.Append(transcript.Turn{Role: transcript.RoleModel, Message: "2"})
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "3"})
		})

		It("keeps only the last n turns", func() {
			Expect(t.Window(2).Render()).To(Equal("model: 2\nuser: 3"))
		})

		It("returns everything when n is zero", func() {
			Expect(t.Window(0).Len()).To(Equal(3))
		})

		It("returns everything when n exceeds the length", func() {
			Expect(t.Window(10).Len()).To(Equal(3))
		})
	})

	Describe("Encode and Decode", func() {
		It("round trips role, message and order", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			t.Append(transcript.Turn{Role: transcript.RoleModel, Message: "Error occurred"})
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "line one\nline two"})

			encoded, err := t.Encode()
			Expect(err).NotTo(HaveOccurred())

			decoded, err := transcript.Decode(encoded)
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded.Turns()).To(Equal(t.Turns()))
		})

		It("encodes an empty transcript as an empty array", func() {
			encoded, err := t.Encode()
			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal("[]"))
		})

		It("uses role and message keys", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			encoded, err := t.Encode()
			Expect(err).NotTo(HaveOccurred())
			Expect(encoded).To(Equal(`[{"role":"user","message":"hello"}]`))
		})

		It("rejects unknown roles", func() {
			_, err := transcript.Decode(`[{"role":"assistant","message":"hi"}]`)
			Expect(err).To(HaveOccurred())
		})

		It("rejects malformed JSON", func() {
			_, err := transcript.Decode(`not json`)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Last", func() {
		It("reports false for an empty transcript", func() {
			_, ok := t.Last()
			Expect(ok).To(BeFalse())
		})

		It("returns the final turn", func() {
			t.Append(transcript.Turn{Role: transcript.RoleUser, Message: "hello"})
			last, ok := t.Last()
			Expect(ok).To(BeTrue())
			Expect(last.Message).To(Equal("hello"))
		})
	})
})
