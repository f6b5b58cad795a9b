// Package session holds the process-local conversation state: one transcript
// per session, addressed by an opaque session reference supplied by the host
// (a cookie or a client token).
//
// Mutation of a single session is serialized with the session's own lock.
// Callers take the lock for the whole append-render-invoke-append cycle so
// concurrent requests against one session cannot interleave their turns.
package session

import (
	"sync"

	"github.com/papercomputeco/parley/pkg/transcript"
)

// Session is the association between a client and its transcript.
type Session struct {
	// ID is the universally unique conversation identifier. It doubles as the
	// persisted record's conversation_id.
	ID string

	mu         sync.Mutex
	transcript transcript.Transcript
}

func newSession(id string, t transcript.Transcript) *Session {
	return &Session{ID: id, transcript: t}
}

// Lock acquires the per-session mutation scope.
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock releases the per-session mutation scope.
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// Transcript returns a snapshot of the session transcript.
// The caller must hold the session lock.
func (s *Session) Transcript() transcript.Transcript {
	return s.transcript.Clone()
}

// Len returns the number of turns in the transcript.
// The caller must hold the session lock.
func (s *Session) Len() int {
	return s.transcript.Len()
}
