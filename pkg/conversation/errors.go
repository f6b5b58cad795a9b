package conversation

import (
	"github.com/papercomputeco/parley/pkg/inference"
)

// UpstreamError is returned under the propagate failure policy when the
// model provider rejected the request as a client error. The transcript,
// ending in the unanswered user turn, has already been recorded.
type UpstreamError struct {
	SessionID string
	Err       *inference.ClientError
}

func (e *UpstreamError) Error() string {
	return e.Err.Message
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
