package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/transcript"
)

// Rehydrator loads the last durable transcript for a conversation id.
// found is false when nothing was ever persisted for the id.
type Rehydrator interface {
	Rehydrate(ctx context.Context, conversationID string) (t transcript.Transcript, found bool, err error)
}

// Config is the configuration for a Store.
type Config struct {
	// MaxTurns limits how many trailing turns Render includes in the prompt.
	// Zero keeps the full history. Persisted snapshots are never windowed.
	MaxTurns int

	// Rehydrator is optional. When set, a reference unknown to this process is
	// looked up in durable storage before a fresh session is created.
	Rehydrator Rehydrator

	// NewID generates session identifiers. Defaults to random UUIDs.
	NewID func() string

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// Store is the process-local registry of sessions.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxTurns   int
	rehydrator Rehydrator
	newID      func() string
	logger     *slog.Logger
}

// NewStore creates an empty session store.
func NewStore(c *Config) *Store {
	if c == nil {
		c = &Config{}
	}

	s := &Store{
		sessions:   make(map[string]*Session),
		maxTurns:   c.MaxTurns,
		rehydrator: c.Rehydrator,
		newID:      c.NewID,
		logger:     c.Logger,
	}

	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}

	return s
}

// GetOrCreate resolves a session reference. An empty or unknown reference
// yields a new session with an empty transcript and a freshly generated id;
// created reports whether that happened. Nothing is persisted.
func (s *Store) GetOrCreate(ctx context.Context, ref string) (sess *Session, created bool) {
	ref = strings.TrimSpace(ref)

	if ref != "" {
		if existing, ok := s.Get(ref); ok {
			return existing, false
		}

		if restored, ok := s.rehydrate(ctx, ref); ok {
			return restored, false
		}
	}

	sess = newSession(s.newID(), transcript.Transcript{})

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	s.logger.Debug("created session", "session_id", sess.ID, "ref", ref)
	return sess, true
}

// Get returns the session registered under id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) rehydrate(ctx context.Context, ref string) (*Session, bool) {
	if s.rehydrator == nil {
		return nil, false
	}

	t, found, err := s.rehydrator.Rehydrate(ctx, ref)
	if err != nil {
		s.logger.Warn("failed to rehydrate session", "session_id", ref, "error", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have restored the same reference meanwhile.
	if existing, ok := s.sessions[ref]; ok {
		return existing, true
	}

	sess := newSession(ref, t)
	s.sessions[ref] = sess

	s.logger.Info("rehydrated session", "session_id", ref, "turns", t.Len())
	return sess, true
}

// AppendUserTurn appends {user, text}. Empty or whitespace-only text is
// rejected with ErrPromptRequired and the transcript is left unchanged.
// The caller must hold the session lock.
func (s *Store) AppendUserTurn(sess *Session, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrPromptRequired
	}

	sess.transcript.Append(transcript.Turn{Role: transcript.RoleUser, Message: text})
	return nil
}

// AppendModelTurn appends {model, text} unconditionally, including sentinel
// placeholders produced by a failed inference.
// The caller must hold the session lock.
func (s *Store) AppendModelTurn(sess *Session, text string) {
	sess.transcript.Append(transcript.Turn{Role: transcript.RoleModel, Message: text})
}

// Render serializes the session transcript into the prompt sent to the model,
// honoring the configured window.
// The caller must hold the session lock.
func (s *Store) Render(sess *Session) string {
	return sess.transcript.Window(s.maxTurns).Render()
}
