// Package ollama implements inference.Gateway on Ollama's generate API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/parley/pkg/inference"
	"github.com/papercomputeco/parley/pkg/logger"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is used when the caller passes an empty model id.
	DefaultModel = "llama3.2"
)

// Config holds configuration for the Ollama gateway.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	Params inference.Params

	// HTTPClient defaults to a client with a 5 minute timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Gateway wraps Ollama's /api/generate endpoint.
type Gateway struct {
	baseURL    string
	params     inference.Params
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates an Ollama gateway.
func New(cfg Config) (*Gateway, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &Gateway{
		baseURL:    baseURL,
		params:     cfg.Params.WithDefaults(),
		httpClient: httpClient,
		logger:     l,
	}, nil
}

// Invoke runs a single non-streaming generation.
func (g *Gateway) Invoke(ctx context.Context, modelID, prompt string) (string, error) {
	if modelID == "" {
		modelID = DefaultModel
	}

	jsonBody, err := json.Marshal(generateRequest{
		Model:  modelID,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: g.params.Temperature,
			TopP:        g.params.TopP,
			NumPredict:  g.params.MaxTokenCount,
			Stop:        g.params.StopSequences,
		},
	})
	if err != nil {
		return "", inference.RequestError(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", inference.RequestError(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", inference.RequestError(fmt.Errorf("sending request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp)
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", inference.RequestError(fmt.Errorf("decoding response: %w", err))
	}

	if genResp.Response == nil {
		return "", inference.NoResultsError()
	}

	g.logger.Info("ollama generation complete",
		"model_id", modelID,
		"input_tokens", genResp.PromptEvalCount,
		"output_tokens", genResp.EvalCount,
		"completion_reason", genResp.DoneReason,
	)

	if *genResp.Response == "" {
		return "", inference.NoOutputTextError()
	}

	return *genResp.Response, nil
}

// Close releases resources held by the gateway.
func (g *Gateway) Close() error {
	g.httpClient.CloseIdleConnections()
	return nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	message := strings.TrimSpace(string(body))
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		message = er.Error
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return inference.RequestError(&inference.ClientError{
			StatusCode: resp.StatusCode,
			Message:    message,
		})
	}

	return inference.RequestError(fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, message))
}

var _ inference.Gateway = (*Gateway)(nil)
