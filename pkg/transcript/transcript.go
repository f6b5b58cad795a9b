// Package transcript models the ordered, append-only list of turns exchanged
// between a user and the model within one conversation.
package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// Turn is a single message in a transcript. Turns are values and are never
// modified after they are appended.
type Turn struct {
	Role    Role   `json:"role"`
	Message string `json:"message"`
}

// Line renders the turn as "<role>: <message>".
func (t Turn) Line() string {
	return string(t.Role) + ": " + t.Message
}

// Transcript is the ordered sequence of turns for one conversation.
// The zero value is an empty transcript ready to use.
type Transcript struct {
	turns []Turn
}

// New returns a transcript holding a copy of the given turns.
func New(turns ...Turn) Transcript {
	t := Transcript{}
	if len(turns) > 0 {
		t.turns = make([]Turn, len(turns))
		copy(t.turns, turns)
	}
	return t
}

// Append adds a turn at the end of the transcript.
func (t *Transcript) Append(turn Turn) {
	t.turns = append(t.turns, turn)
}

// Len returns the number of turns.
func (t Transcript) Len() int {
	return len(t.turns)
}

// Turns returns a copy of the turns in order.
func (t Transcript) Turns() []Turn {
	out := make([]Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

// Last returns the final turn, if any.
func (t Transcript) Last() (Turn, bool) {
	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Clone returns a snapshot that shares no backing storage with t.
func (t Transcript) Clone() Transcript {
	return New(t.turns...)
}

// Window returns a transcript containing at most the last n turns.
// n <= 0 returns the whole transcript.
func (t Transcript) Window(n int) Transcript {
	if n <= 0 || n >= len(t.turns) {
		return t.Clone()
	}
	return New(t.turns[len(t.turns)-n:]...)
}

// Render joins every turn as "<role>: <message>" separated by newlines,
// in transcript order. This string is the prompt sent to the model.
func (t Transcript) Render() string {
	lines := make([]string, len(t.turns))
	for i, turn := range t.turns {
		lines[i] = turn.Line()
	}
	return strings.Join(lines, "\n")
}

// MarshalJSON encodes the transcript as an array of {role, message} objects.
// An empty transcript encodes as [] rather than null.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.turns == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.turns)
}

// UnmarshalJSON decodes an array of {role, message} objects.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return err
	}

	for i, turn := range turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("turn %d: unknown role %q", i, turn.Role)
		}
	}

	t.turns = turns
	return nil
}

// Encode serializes the transcript into the string stored in a persisted
// record's conversation field.
func (t Transcript) Encode() (string, error) {
	data, err := t.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("encoding transcript: %w", err)
	}
	return string(data), nil
}

// Decode parses a persisted conversation string back into a transcript.
func Decode(conversation string) (Transcript, error) {
	var t Transcript
	if err := json.Unmarshal([]byte(conversation), &t); err != nil {
		return Transcript{}, fmt.Errorf("decoding transcript: %w", err)
	}
	return t, nil
}
