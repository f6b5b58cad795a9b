package inference

import (
	"errors"
	"fmt"
)

// Kind classifies an inference failure.
type Kind int

const (
	// KindRequest covers transport failures, upstream error statuses and
	// bodies that cannot be decoded.
	KindRequest Kind = iota + 1

	// KindNoResults means the upstream returned an empty candidate list.
	KindNoResults

	// KindNoOutputText means the first candidate carried no text.
	KindNoOutputText
)

// Placeholder texts recorded in place of a reply when inference fails.
const (
	SentinelRequest      = "Error occurred"
	SentinelNoResults    = "No results found"
	SentinelNoOutputText = "No output text found"
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNoResults:
		return "no_results"
	case KindNoOutputText:
		return "no_output_text"
	default:
		return "unknown"
	}
}

// Sentinel returns the placeholder text for the kind.
func (k Kind) Sentinel() string {
	switch k {
	case KindNoResults:
		return SentinelNoResults
	case KindNoOutputText:
		return SentinelNoOutputText
	default:
		return SentinelRequest
	}
}

// Error is returned by every Gateway implementation.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "inference " + e.Kind.String()
	}
	return fmt.Sprintf("inference %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RequestError wraps err as a KindRequest failure.
func RequestError(err error) *Error {
	return &Error{Kind: KindRequest, Err: err}
}

// NoResultsError reports an empty candidate list.
func NoResultsError() *Error {
	return &Error{Kind: KindNoResults, Err: errors.New("response contained no results")}
}

// NoOutputTextError reports a candidate without text.
func NoOutputTextError() *Error {
	return &Error{Kind: KindNoOutputText, Err: errors.New("first result has no output text")}
}

// ClientError is an error the upstream attributed to the caller, such as an
// HTTP 4xx or an AWS client fault. It is always wrapped in a KindRequest
// *Error.
type ClientError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ClientError) Error() string {
	switch {
	case e.Code != "":
		return e.Code + ": " + e.Message
	case e.StatusCode != 0:
		return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
	default:
		return e.Message
	}
}

// AsClientError reports whether err carries a *ClientError.
func AsClientError(err error) (*ClientError, bool) {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Degrade maps an Invoke result to the text that is appended to the
// transcript. On failure it returns the sentinel for the error's kind and
// degraded is true. Errors that are not *Error count as KindRequest.
func Degrade(text string, err error) (reply string, degraded bool) {
	if err == nil {
		return text, false
	}

	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind.Sentinel(), true
	}
	return SentinelRequest, true
}
