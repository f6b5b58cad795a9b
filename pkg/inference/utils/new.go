// Package inferenceutils builds a Gateway from configuration.
package inferenceutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/parley/pkg/inference"
	"github.com/papercomputeco/parley/pkg/inference/bedrock"
	"github.com/papercomputeco/parley/pkg/inference/ollama"
)

type NewGatewayOpts struct {
	ProviderType string
	Region       string
	Endpoint     string
	Params       inference.Params
	Logger       *slog.Logger
}

func NewGateway(ctx context.Context, o *NewGatewayOpts) (inference.Gateway, error) {
	switch o.ProviderType {
	case "bedrock", "":
		return bedrock.New(ctx, bedrock.Config{
			Region:   o.Region,
			Endpoint: o.Endpoint,
			Params:   o.Params,
			Logger:   o.Logger,
		})
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL: o.Endpoint,
			Params:  o.Params,
			Logger:  o.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", o.ProviderType)
	}
}
