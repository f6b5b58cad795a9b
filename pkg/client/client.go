// Package client talks to a running parley server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/parley/api"
)

// DefaultTimeout matches the server's default request timeout.
const DefaultTimeout = 5 * time.Minute

// ErrNotFound is returned when the server has no records for a conversation.
var ErrNotFound = errors.New("conversation not found")

// StatusError is a non-2xx response from the server.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Client is a parley API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the server at target (e.g. http://localhost:8080).
// A nil httpClient gets DefaultTimeout.
func New(target string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(target, "/"),
		httpClient: httpClient,
	}
}

// ChatResult is one reply from POST /chat.
type ChatResult struct {
	Text      string
	SessionID string

	// Warning is set when the server answered but did not persist the turn.
	Warning string
}

// Chat sends prompt on sessionID. An empty sessionID starts a new session.
func (c *Client) Chat(ctx context.Context, sessionID, prompt string) (*ChatResult, error) {
	body, err := json.Marshal(api.ChatRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(api.SessionHeader, sessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to parley: %w", err)
	}
	defer resp.Body.Close()

	var out api.ChatResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}

	return &ChatResult{
		Text:      out.GeneratedText,
		SessionID: out.SessionID,
		Warning:   resp.Header.Get(api.WarningHeader),
	}, nil
}

// History returns every recorded snapshot of a conversation, oldest first.
func (c *Client) History(ctx context.Context, conversationID string) (*api.RecordsResponse, error) {
	var out api.RecordsResponse
	if err := c.get(ctx, "/conversations/"+conversationID, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Latest returns the newest recorded snapshot of a conversation.
func (c *Client) Latest(ctx context.Context, conversationID string) (*api.RecordResponse, error) {
	var out api.RecordResponse
	if err := c.get(ctx, "/conversations/"+conversationID+"/latest", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to parley: %w", err)
	}
	defer resp.Body.Close()

	return decode(resp, out)
}

func decode(resp *http.Response, out any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		if json.Unmarshal(data, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(data))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
