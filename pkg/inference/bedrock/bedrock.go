// Package bedrock implements inference.Gateway on AWS Bedrock InvokeModel
// with the Titan text request format.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"

	"github.com/papercomputeco/parley/pkg/inference"
	"github.com/papercomputeco/parley/pkg/logger"
)

// DefaultModelID is the Titan text model used when none is configured.
const DefaultModelID = "amazon.titan-text-express-v1"

// InvokeModelAPI is the subset of the bedrockruntime client used here.
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds configuration for the Bedrock gateway.
type Config struct {
	// Region is the AWS region. When empty the SDK default chain decides.
	Region string

	// Endpoint overrides the Bedrock runtime endpoint URL.
	Endpoint string

	Params inference.Params

	// Client replaces the SDK client, mostly for tests.
	Client InvokeModelAPI

	Logger *slog.Logger
}

// Gateway wraps the Bedrock runtime client.
type Gateway struct {
	client InvokeModelAPI
	params inference.Params
	logger *slog.Logger
}

// New creates a Bedrock gateway. Without an injected client it loads the
// default AWS configuration.
func New(ctx context.Context, cfg Config) (*Gateway, error) {
	g := &Gateway{
		client: cfg.Client,
		params: cfg.Params.WithDefaults(),
		logger: cfg.Logger,
	}
	if g.logger == nil {
		g.logger = logger.Nop()
	}

	if g.client == nil {
		var opts []func(*awsconfig.LoadOptions) error
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("loading aws config: %w", err)
		}

		g.client = bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
	}

	return g, nil
}

// Invoke sends prompt as the Titan inputText and returns the first result.
func (g *Gateway) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	if modelID == "" {
		modelID = DefaultModelID
	}

	body, err := json.Marshal(titanRequest{
		InputText: prompt,
		TextGenerationConfig: textGenerationConfig{
			MaxTokenCount: g.params.MaxTokenCount,
			StopSequences: g.params.StopSequences,
			Temperature:   g.params.Temperature,
			TopP:          g.params.TopP,
		},
	})
	if err != nil {
		return "", inference.RequestError(fmt.Errorf("marshaling request: %w", err))
	}

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", classify(err)
	}

	var resp titanResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", inference.RequestError(fmt.Errorf("decoding response: %w", err))
	}

	if len(resp.Results) == 0 {
		return "", inference.NoResultsError()
	}

	first := resp.Results[0]
	g.logger.Info("bedrock invocation complete",
		"model_id", modelID,
		"input_tokens", resp.InputTextTokenCount,
		"output_tokens", first.TokenCount,
		"completion_reason", first.CompletionReason,
	)

	if first.OutputText == nil || *first.OutputText == "" {
		return "", inference.NoOutputTextError()
	}

	return *first.OutputText, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (g *Gateway) Close() error {
	return nil
}

// classify turns an SDK error into a KindRequest *inference.Error, marking
// client faults so the caller can propagate them.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		return inference.RequestError(&inference.ClientError{
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
		})
	}
	return inference.RequestError(err)
}

var _ inference.Gateway = (*Gateway)(nil)
