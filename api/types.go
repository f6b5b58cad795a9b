package api

import (
	"strings"

	"github.com/papercomputeco/parley/pkg/transcript"
)

const (
	// SessionHeader carries the session reference in both directions.
	SessionHeader = "X-Session-ID"

	// SessionCookie is consulted when SessionHeader is absent.
	SessionCookie = "parley_session"

	// WarningHeader is set when the reply was produced but not persisted.
	WarningHeader = "X-Parley-Warning"

	warningNotPersisted = "conversation not persisted"
)

// ChatRequest is the POST /chat body. Message is accepted as an alias of
// Prompt.
type ChatRequest struct {
	Prompt  string `json:"prompt"`
	Message string `json:"message,omitempty"`
}

// Text returns the prompt, falling back to the message alias.
func (r ChatRequest) Text() string {
	if strings.TrimSpace(r.Prompt) != "" {
		return r.Prompt
	}
	return r.Message
}

// ChatResponse is the POST /chat success body.
type ChatResponse struct {
	GeneratedText string `json:"generatedText"`
	SessionID     string `json:"sessionId"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RecordResponse is one persisted snapshot with its transcript decoded.
type RecordResponse struct {
	ConversationID string            `json:"conversationId"`
	Timestamp      string            `json:"timestamp"`
	Turns          []transcript.Turn `json:"turns"`
}

// RecordsResponse lists every snapshot of a conversation, oldest first.
type RecordsResponse struct {
	ConversationID string           `json:"conversationId"`
	Count          int              `json:"count"`
	Records        []RecordResponse `json:"records"`
}
