package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/storage"
	"github.com/papercomputeco/parley/pkg/transcript"
)

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.SendString("Hello, World!")
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs one chat cycle for the session named by the request.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}

	reply, err := s.chatter.Chat(c.UserContext(), conversation.Request{
		SessionRef: sessionRef(c),
		Prompt:     req.Text(),
	})

	var upstream *conversation.UpstreamError
	var invalid *session.ValidationError
	switch {
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: invalid.Error()})

	case errors.As(err, &upstream):
		setSession(c, upstream.SessionID)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: upstream.Error()})

	case err != nil:
		return err
	}

	setSession(c, reply.SessionID)
	if reply.Warning != nil {
		c.Set(WarningHeader, warningNotPersisted)
	}

	return c.JSON(ChatResponse{
		GeneratedText: reply.Text,
		SessionID:     reply.SessionID,
	})
}

// handleListRecords returns every persisted snapshot of a conversation.
func (s *Server) handleListRecords(c *fiber.Ctx) error {
	id := c.Params("id")

	records, err := s.records.List(c.UserContext(), id)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}

	out := RecordsResponse{
		ConversationID: id,
		Count:          len(records),
		Records:        make([]RecordResponse, 0, len(records)),
	}
	for _, r := range records {
		rr, err := decodeRecord(r)
		if err != nil {
			return err
		}
		out.Records = append(out.Records, rr)
	}

	return c.JSON(out)
}

// handleLatestRecord returns the newest snapshot of a conversation.
func (s *Server) handleLatestRecord(c *fiber.Ctx) error {
	record, err := s.records.Latest(c.UserContext(), c.Params("id"))
	if storage.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "conversation not found"})
	}
	if err != nil {
		return err
	}

	rr, err := decodeRecord(record)
	if err != nil {
		return err
	}
	return c.JSON(rr)
}

func decodeRecord(r *storage.Record) (RecordResponse, error) {
	t, err := transcript.Decode(r.Conversation)
	if err != nil {
		return RecordResponse{}, err
	}
	return RecordResponse{
		ConversationID: r.ConversationID,
		Timestamp:      r.Timestamp,
		Turns:          t.Turns(),
	}, nil
}

// sessionRef reads the session reference from the header, then the cookie.
func sessionRef(c *fiber.Ctx) string {
	if ref := strings.TrimSpace(c.Get(SessionHeader)); ref != "" {
		return ref
	}
	return strings.TrimSpace(c.Cookies(SessionCookie))
}

func setSession(c *fiber.Ctx, id string) {
	c.Set(SessionHeader, id)
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
