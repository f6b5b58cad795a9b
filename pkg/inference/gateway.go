// Package inference defines the gateway to a remote text-generation service
// and the failure taxonomy shared by its backends.
package inference

import "context"

// Gateway sends a rendered prompt to a model and returns the generated text.
// Implementations are stateless and safe for concurrent use.
type Gateway interface {
	// Invoke returns the first candidate's text. Failures are *Error values.
	Invoke(ctx context.Context, modelID, prompt string) (string, error)

	// Close releases any resources held by the gateway.
	Close() error
}

// Params are the decoding parameters sent with every invocation.
type Params struct {
	MaxTokenCount int
	StopSequences []string
	Temperature   float64
	TopP          float64
}

const (
	DefaultMaxTokenCount = 4096
	DefaultTemperature   = 0
	DefaultTopP          = 1
)

// DefaultParams returns greedy decoding with a 4096 token ceiling and no stop
// sequences.
func DefaultParams() Params {
	return Params{
		MaxTokenCount: DefaultMaxTokenCount,
		StopSequences: []string{},
		Temperature:   DefaultTemperature,
		TopP:          DefaultTopP,
	}
}

// WithDefaults fills unset fields from DefaultParams. Temperature zero is a
// valid setting and is kept as is.
func (p Params) WithDefaults() Params {
	if p.MaxTokenCount <= 0 {
		p.MaxTokenCount = DefaultMaxTokenCount
	}
	if p.StopSequences == nil {
		p.StopSequences = []string{}
	}
	if p.TopP <= 0 {
		p.TopP = DefaultTopP
	}
	return p
}
