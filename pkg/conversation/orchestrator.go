// Package conversation runs one chat cycle: validate the prompt, resolve the
// session, append the user turn, invoke the model on the rendered
// transcript, append the reply and record the snapshot.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/papercomputeco/parley/pkg/inference"
	"github.com/papercomputeco/parley/pkg/logger"
	"github.com/papercomputeco/parley/pkg/recorder"
	"github.com/papercomputeco/parley/pkg/session"
	"github.com/papercomputeco/parley/pkg/storage"
	"github.com/papercomputeco/parley/pkg/telemetry"
	"github.com/papercomputeco/parley/pkg/transcript"
)

// FailurePolicy decides what a failed inference turns into.
type FailurePolicy string

const (
	// FailurePolicyDegrade records a placeholder reply and answers normally.
	FailurePolicyDegrade FailurePolicy = "degrade"

	// FailurePolicyPropagate returns provider client errors to the caller
	// as *UpstreamError. Other failures still degrade.
	FailurePolicyPropagate FailurePolicy = "propagate"
)

const defaultPersistTimeout = 30 * time.Second

// ParseFailurePolicy validates a configured policy name. Empty means degrade.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", FailurePolicyDegrade:
		return FailurePolicyDegrade, nil
	case FailurePolicyPropagate:
		return p, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want degrade or propagate)", s)
	}
}

// Recorder persists snapshots. *recorder.Writer satisfies it.
type Recorder interface {
	Record(ctx context.Context, conversationID string, t transcript.Transcript, opts ...recorder.RecordOption) (*storage.Record, error)
}

// Config wires an Orchestrator.
type Config struct {
	Sessions *session.Store
	Gateway  inference.Gateway
	Recorder Recorder

	// ModelID is passed to every Invoke.
	ModelID string

	FailurePolicy FailurePolicy

	// PersistTimeout bounds each snapshot write. Writes run detached from the
	// request deadline so a timed out model call is still recorded.
	// Defaults to 30s.
	PersistTimeout time.Duration

	// Instruments defaults to instruments on the global providers.
	Instruments *telemetry.Instruments

	Logger *slog.Logger
}

// Request is one user utterance.
type Request struct {
	// SessionRef is the client's session reference; empty starts a new
	// session.
	SessionRef string

	Prompt string
}

// Reply is the outcome of a chat cycle.
type Reply struct {
	SessionID string

	// Text is the model reply, or a placeholder when Degraded.
	Text     string
	Degraded bool

	// Created reports that the request started a new session.
	Created bool

	// Record is the stored snapshot; nil when Warning is set.
	Record *storage.Record

	// Warning carries a *recorder.PersistenceError. The reply is still valid.
	Warning error
}

// Orchestrator is safe for concurrent use. Requests on the same session are
// serialized by the session lock.
type Orchestrator struct {
	sessions    *session.Store
	gateway     inference.Gateway
	recorder    Recorder
	modelID     string
	policy      FailurePolicy
	persistTTL  time.Duration
	instruments *telemetry.Instruments
	logger      *slog.Logger
}

// New creates an Orchestrator.
func New(c *Config) (*Orchestrator, error) {
	if c.Sessions == nil || c.Gateway == nil || c.Recorder == nil {
		return nil, errors.New("orchestrator requires sessions, gateway and recorder")
	}

	policy := c.FailurePolicy
	if policy == "" {
		policy = FailurePolicyDegrade
	}

	o := &Orchestrator{
		sessions:    c.Sessions,
		gateway:     c.Gateway,
		recorder:    c.Recorder,
		modelID:     c.ModelID,
		policy:      policy,
		persistTTL:  c.PersistTimeout,
		instruments: c.Instruments,
		logger:      c.Logger,
	}

	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.persistTTL <= 0 {
		o.persistTTL = defaultPersistTimeout
	}
	if o.instruments == nil {
		inst, err := telemetry.New(nil, nil)
		if err != nil {
			return nil, fmt.Errorf("creating instruments: %w", err)
		}
		o.instruments = inst
	}

	return o, nil
}

// Chat runs one cycle. A blank prompt yields a *session.ValidationError and
// touches nothing. Inference failures are degraded to placeholder text
// unless the propagate policy applies; persistence failures become
// Reply.Warning.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*Reply, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, session.ErrPromptRequired
	}

	sess, created := o.sessions.GetOrCreate(ctx, req.SessionRef)

	ctx, span := o.instruments.StartChat(ctx, sess.ID)
	defer span.End()

	log := o.logger.With("session_id", sess.ID)

	sess.Lock()
	defer sess.Unlock()

	if err := o.sessions.AppendUserTurn(sess, req.Prompt); err != nil {
		return nil, err
	}
	o.instruments.TurnAppended(ctx, string(transcript.RoleUser))

	prompt := o.sessions.Render(sess)
	log.Debug("invoking model", "model_id", o.modelID, "turns", sess.Len())

	text, err := o.gateway.Invoke(ctx, o.modelID, prompt)
	if err != nil {
		o.inferenceFailed(ctx, log, err)

		if ce, ok := inference.AsClientError(err); ok && o.policy == FailurePolicyPropagate {
			if _, perr := o.record(ctx, sess.ID, sess.Transcript()); perr != nil {
				o.persistenceFailed(ctx, log, perr)
			}

			span.SetStatus(codes.Error, ce.Error())
			return nil, &UpstreamError{SessionID: sess.ID, Err: ce}
		}
	}

	reply, degraded := inference.Degrade(text, err)
	o.sessions.AppendModelTurn(sess, reply)
	o.instruments.TurnAppended(ctx, string(transcript.RoleModel))

	out := &Reply{
		SessionID: sess.ID,
		Text:      reply,
		Degraded:  degraded,
		Created:   created,
	}

	record, perr := o.record(ctx, sess.ID, sess.Transcript(), recorder.WithDegraded(degraded))
	if perr != nil {
		o.persistenceFailed(ctx, log, perr)
		out.Warning = perr
	} else {
		out.Record = record
	}

	span.SetAttributes(
		attribute.Bool("parley.degraded", degraded),
		attribute.Bool("parley.persisted", perr == nil),
	)

	log.Info("chat cycle complete", "degraded", degraded, "persisted", perr == nil)
	return out, nil
}

// record writes the snapshot on a context that keeps the request's values
// but not its deadline or cancellation.
func (o *Orchestrator) record(ctx context.Context, id string, t transcript.Transcript, opts ...recorder.RecordOption) (*storage.Record, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.persistTTL)
	defer cancel()

	return o.recorder.Record(ctx, id, t, opts...)
}

func (o *Orchestrator) inferenceFailed(ctx context.Context, log *slog.Logger, err error) {
	kind := inference.KindRequest
	var ie *inference.Error
	if errors.As(err, &ie) {
		kind = ie.Kind
	}

	o.instruments.InferenceFailed(ctx, kind.String())
	log.Warn("inference failed", "kind", kind.String(), "error", err)
}

func (o *Orchestrator) persistenceFailed(ctx context.Context, log *slog.Logger, err error) {
	o.instruments.PersistenceFailed(ctx)
	log.Error("failed to record conversation", "error", err)
}
