package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/storage"
)

// Chatter runs one chat cycle. *conversation.Orchestrator satisfies it.
type Chatter interface {
	Chat(ctx context.Context, req conversation.Request) (*conversation.Reply, error)
}

// Server is the parley API server.
type Server struct {
	config  Config
	chatter Chatter
	records storage.Driver
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The record driver is shared with the
// recorder so history views read what chat cycles write.
func NewServer(config Config, chatter Chatter, records storage.Driver, log *slog.Logger) (*Server, error) {
	if chatter == nil {
		return nil, errors.New("api server requires a chatter")
	}
	if records == nil {
		return nil, errors.New("api server requires a record driver")
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		config:  config,
		chatter: chatter,
		records: records,
		logger:  log,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(compress.New())
	s.app.Use(s.logRequests)

	s.app.Get("/", s.handleRoot)
	s.app.Get("/ping", s.handlePing)
	s.app.Post("/chat", s.withTimeout(s.handleChat))
	s.app.Get("/conversations/:id", s.withTimeout(s.handleListRecords))
	s.app.Get("/conversations/:id/latest", s.withTimeout(s.handleLatestRecord))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// withTimeout runs h with a deadline on its user context.
func (s *Server) withTimeout(h fiber.Handler) fiber.Handler {
	if s.config.RequestTimeout <= 0 {
		return h
	}
	return timeout.New(h, s.config.RequestTimeout)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	)
	return err
}

// handleError renders every unhandled error as an ErrorResponse.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else {
		s.logger.Error("unhandled error", "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
