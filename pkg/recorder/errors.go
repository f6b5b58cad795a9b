package recorder

import "fmt"

// PersistenceError reports a failed snapshot write. The reply it accompanies
// is still valid; callers surface it as a warning.
type PersistenceError struct {
	ConversationID string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting conversation %s: %v", e.ConversationID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
