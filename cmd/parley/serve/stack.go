package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/parley/api"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/parley/pkg/eventstream/utils"
	"github.com/papercomputeco/parley/pkg/inference"
	"github.com/papercomputeco/parley/pkg/inference/bedrock"
	"github.com/papercomputeco/parley/pkg/inference/ollama"
	inferenceutils "github.com/papercomputeco/parley/pkg/inference/utils"
	"github.com/papercomputeco/parley/pkg/recorder"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/storage"
	storageutils "github.com/papercomputeco/parley/pkg/storage/utils"
	"github.com/papercomputeco/parley/pkg/telemetry"
	"github.com/papercomputeco/parley/pkg/utils"
	"github.com/papercomputeco/parley/pkg/worker"
)

const (
	defaultSQLiteFile   = "parley.db"
	defaultBoltFile     = "parley.bolt"
	defaultTelemetryDir = "telemetry"
)

// stack is everything serve runs. Close releases it in reverse build order.
type stack struct {
	server       *api.Server
	orchestrator *conversation.Orchestrator
	driver       storage.Driver

	logger  *slog.Logger
	closers []func() error
}

func (s *stack) onClose(name string, fn func() error) {
	s.closers = append(s.closers, func() error {
		if err := fn(); err != nil {
			return fmt.Errorf("closing %s: %w", name, err)
		}
		return nil
	})
}

// Close runs every registered closer, newest first.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error("shutdown error", "error", err)
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// newStack wires telemetry, storage, events, inference, sessions and the API
// server from cfg. On error everything built so far is closed.
func newStack(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (*stack, error) {
	st := &stack{logger: log}
	built := false
	defer func() {
		if !built {
			_ = st.Close()
		}
	}()

	requestTimeout, err := time.ParseDuration(cfg.Server.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid server.request_timeout %q: %w", cfg.Server.RequestTimeout, err)
	}

	policy, err := conversation.ParseFailurePolicy(cfg.Inference.FailurePolicy)
	if err != nil {
		return nil, err
	}

	if err := resolvePaths(cfg, configDir); err != nil {
		return nil, err
	}

	telemetryDir := ""
	if cfg.Telemetry.Enabled {
		telemetryDir = cfg.Telemetry.Dir
	}
	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Dir:     telemetryDir,
		Version: utils.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("setting up telemetry: %w", err)
	}
	st.onClose("telemetry", func() error {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return shutdownTelemetry(sctx)
	})

	st.driver, err = storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
		ProviderType:     cfg.Storage.Provider,
		SQLitePath:       cfg.Storage.SQLitePath,
		PostgresDSN:      cfg.Storage.PostgresDSN,
		BoltPath:         cfg.Storage.BoltPath,
		DynamoDBTable:    cfg.Storage.DynamoDBTable,
		DynamoDBRegion:   cfg.Inference.Region,
		DynamoDBEndpoint: cfg.Storage.DynamoDBEndpoint,
	}, log)
	if err != nil {
		return nil, err
	}
	st.onClose("storage", st.driver.Close)

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.Brokers,
		Topic:        cfg.EventStream.Topic,
	})
	if err != nil {
		return nil, err
	}
	st.onClose("event publisher", publisher.Close)

	pool, err := worker.NewPool(&worker.Config{
		Publisher: publisher,
		Logger:    log.With("component", "events"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}
	st.onClose("event worker pool", func() error {
		pool.Close()
		return nil
	})

	modelID := effectiveModelID(cfg.Inference)
	gateway, err := inferenceutils.NewGateway(ctx, &inferenceutils.NewGatewayOpts{
		ProviderType: cfg.Inference.Provider,
		Region:       cfg.Inference.Region,
		Endpoint:     cfg.Inference.Endpoint,
		Params: inference.Params{
			MaxTokenCount: int(cfg.Inference.MaxTokens),
			StopSequences: []string{},
			Temperature:   cfg.Inference.Temperature,
			TopP:          cfg.Inference.TopP,
		},
		Logger: log.With("component", "inference"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating inference gateway: %w", err)
	}
	st.onClose("inference gateway", gateway.Close)

	writer, err := recorder.NewWriter(&recorder.Config{
		Driver: st.driver,
		Events: pool,
		Source: eventstream.EventSource{
			Service:  telemetry.ServiceName,
			Provider: cfg.Inference.Provider,
			ModelID:  modelID,
		},
		Logger: log.With("component", "recorder"),
	})
	if err != nil {
		return nil, err
	}

	sessionCfg := &session.Config{
		MaxTurns: int(cfg.Session.MaxTurns),
		Logger:   log.With("component", "sessions"),
	}
	if cfg.Session.Rehydrate {
		sessionCfg.Rehydrator = writer
	}

	instruments, err := telemetry.New(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating instruments: %w", err)
	}

	st.orchestrator, err = conversation.New(&conversation.Config{
		Sessions:      session.NewStore(sessionCfg),
		Gateway:       gateway,
		Recorder:      writer,
		ModelID:       modelID,
		FailurePolicy: policy,
		Instruments:   instruments,
		Logger:        log,
	})
	if err != nil {
		return nil, err
	}

	st.server, err = api.NewServer(api.Config{
		ListenAddr:     cfg.Server.Listen,
		RequestTimeout: requestTimeout,
	}, st.orchestrator, st.driver, log.With("component", "api"))
	if err != nil {
		return nil, err
	}

	log.Info("parley configured",
		"listen", cfg.Server.Listen,
		"inference_provider", cfg.Inference.Provider,
		"model_id", modelID,
		"storage_provider", cfg.Storage.Provider,
		"eventstream_provider", cfg.EventStream.Provider,
		"failure_policy", string(policy),
		"max_turns", cfg.Session.MaxTurns,
		"rehydrate", cfg.Session.Rehydrate,
	)

	built = true
	return st, nil
}

// resolvePaths places file backed stores and telemetry under the .parley/
// directory when no explicit path is configured.
func resolvePaths(cfg *config.Config, configDir string) error {
	ddm := dotdir.NewManager()

	resolve := func(target *string, name string) error {
		if *target != "" {
			return nil
		}
		p, err := ddm.Path(configDir, name)
		if err != nil {
			return err
		}
		*target = p
		return nil
	}

	switch cfg.Storage.Provider {
	case "sqlite":
		if err := resolve(&cfg.Storage.SQLitePath, defaultSQLiteFile); err != nil {
			return err
		}
	case "bolt":
		if err := resolve(&cfg.Storage.BoltPath, defaultBoltFile); err != nil {
			return err
		}
	}

	if cfg.Telemetry.Enabled {
		return resolve(&cfg.Telemetry.Dir, defaultTelemetryDir)
	}
	return nil
}

// effectiveModelID swaps the Bedrock default for the Ollama default when the
// provider was changed without naming a model.
func effectiveModelID(cfg config.InferenceConfig) string {
	if cfg.Provider == "ollama" && cfg.ModelID == bedrock.DefaultModelID {
		return ollama.DefaultModel
	}
	return cfg.ModelID
}
