// Package servecmder provides the serve command that runs the parley API
// server with its configured inference, storage and event stack.
package servecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type serveCommander struct {
	configDir string
	cfg       *config.Config

	// flag targets; effective values are read back through viper
	listen         string
	requestTimeout string
	provider       string
	modelID        string
	region         string
	endpoint       string
	failurePolicy  string
	storage        string
	sqlitePath     string
	postgresDSN    string
	dynamoDBTable  string
	dynamoEndpoint string
	boltPath       string
	maxTurns       uint
	rehydrate      bool
	events         string
	logFile        string
	logJSON        bool
	telemetry      bool
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagRequestTimeout,
	config.FlagProvider,
	config.FlagModelID,
	config.FlagRegion,
	config.FlagEndpoint,
	config.FlagFailurePolicy,
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagDynamoDBTable,
	config.FlagDynamoEndpoint,
	config.FlagBoltPath,
	config.FlagMaxTurns,
	config.FlagRehydrate,
	config.FlagEventProvider,
	config.FlagLogFile,
	config.FlagLogJSON,
	config.FlagTelemetry,
}

const serveLongDesc string = `Run the parley API server.

Every value can come from a flag, a PARLEY_ environment variable
(e.g. PARLEY_INFERENCE_PROVIDER), config.toml in the .parley/ directory,
or the built in defaults, in that order of precedence.

Examples:
  parley serve
  parley serve --provider ollama --model-id llama3.2 --storage sqlite
  parley serve --storage dynamodb --dynamodb-table conversations --events kafka`

const serveShortDesc string = "Run the parley API server"

func NewServeCmd() *cobra.Command {
	cmd, _ := newServeCmd()
	return cmd
}

func newServeCmd() (*cobra.Command, *serveCommander) {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, err := cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			if debug {
				cmder.cfg.Log.Debug = true
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagRequestTimeout, &cmder.requestTimeout)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagModelID, &cmder.modelID)
	config.AddStringFlag(cmd, config.Flags, config.FlagRegion, &cmder.region)
	config.AddStringFlag(cmd, config.Flags, config.FlagEndpoint, &cmder.endpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagFailurePolicy, &cmder.failurePolicy)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageProvider, &cmder.storage)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagDynamoDBTable, &cmder.dynamoDBTable)
	config.AddStringFlag(cmd, config.Flags, config.FlagDynamoEndpoint, &cmder.dynamoEndpoint)
	config.AddStringFlag(cmd, config.Flags, config.FlagBoltPath, &cmder.boltPath)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTurns, &cmder.maxTurns)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRehydrate, &cmder.rehydrate)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventProvider, &cmder.events)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFile, &cmder.logFile)
	config.AddBoolFlag(cmd, config.Flags, config.FlagLogJSON, &cmder.logJSON)
	config.AddBoolFlag(cmd, config.Flags, config.FlagTelemetry, &cmder.telemetry)

	return cmd, cmder
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, closeLog, err := newLogger(c.cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	defer closeLog.Close()

	st, err := newStack(ctx, c.cfg, c.configDir, log)
	if err != nil {
		return err
	}
	defer st.Close()

	errChan := make(chan error, 1)
	go func() {
		errChan <- st.server.Run()
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("API server error: %w", err)
	case <-ctx.Done():
		log.Info("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return st.server.Shutdown(shutdownCtx)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger builds the server logger: pretty output on the console, or JSON
// when requested, plus JSON lines in a rotated file when log.file is set.
func newLogger(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	consoleLog := logger.New(
		logger.WithDebug(cfg.Debug),
		logger.WithPretty(!cfg.JSON),
		logger.WithJSON(cfg.JSON),
		logger.WithWriter(console),
	)

	if cfg.File == "" {
		return consoleLog, nopCloser{}, nil
	}

	file, err := logger.RotatingFile(cfg.File)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLog := logger.New(
		logger.WithDebug(cfg.Debug),
		logger.WithJSON(true),
		logger.WithSource(cfg.Debug),
		logger.WithWriter(file),
	)

	return logger.Multi(consoleLog, fileLog), file, nil
}
