package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
	"github.com/taskdeck/taskdeck/internal/transport"
)

// DefaultProbeCooldown is how long an unhealthy transport is skipped before
// a request re-probes it.
const DefaultProbeCooldown = 30 * time.Second

// Operation describes one domain operation in both transport dialects plus
// its degraded-mode substitute.
type Operation struct {
	// Name is the qualified operation name, e.g. "tasks.list".
	Name string

	// Resource is the resource class the operation touches, e.g. "tasks".
	Resource string

	// Mutating marks writes; services use it for cache invalidation.
	Mutating bool

	// Modern transport shape.
	Method  string
	Path    string
	Payload interface{}

	// Legacy transport shape.
	Action     string
	Parameters []interface{}

	// Substitute returns the deterministic degraded-mode data for this
	// operation (an empty list, an echo of the input). Nil means the
	// operation cannot be served degraded and the last transport error
	// propagates instead.
	Substitute func() (json.RawMessage, error)
}

// Result is the outcome of an invoked operation. Degraded data is always
// explicitly flagged; callers must be able to tell substitute data apart
// from real backend responses.
type Result struct {
	Data      json.RawMessage
	Transport Transport
	Degraded  bool
}

// Meta is the caller-visible summary of how an operation was served. The
// transport choice stays internal to the access layer; only degradation is
// surfaced.
type Meta struct {
	Degraded bool
}

// Meta returns the caller-visible part of the result.
func (r *Result) Meta() Meta {
	return Meta{Degraded: r.Degraded}
}

// Decode unmarshals the result data into v. A missing or null data field
// leaves v untouched.
func (r *Result) Decode(v interface{}) error {
	if len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Config holds the Invoker's dependencies and policy flags.
type Config struct {
	Modern *transport.ModernClient
	Legacy *transport.LegacyClient

	// PreferModern routes calls to the REST backend first.
	PreferModern bool

	// FallbackEnabled allows falling through to the legacy transport when
	// the modern one fails at the transport level.
	FallbackEnabled bool

	// ProbeCooldown defaults to DefaultProbeCooldown.
	ProbeCooldown time.Duration

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// Now allows tests to control the clock. Defaults to time.Now.
	Now func() time.Time
}

// Invoker selects a transport per operation and downgrades gracefully.
type Invoker struct {
	modern          *transport.ModernClient
	legacy          *transport.LegacyClient
	preferModern    bool
	fallbackEnabled bool
	cooldown        time.Duration
	health          *healthTracker
	logger          *slog.Logger
	metrics         *instrumentation.Metrics
}

// NewInvoker creates an Invoker.
func NewInvoker(cfg Config) *Invoker {
	if cfg.ProbeCooldown <= 0 {
		cfg.ProbeCooldown = DefaultProbeCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Invoker{
		modern:          cfg.Modern,
		legacy:          cfg.Legacy,
		preferModern:    cfg.PreferModern,
		fallbackEnabled: cfg.FallbackEnabled,
		cooldown:        cfg.ProbeCooldown,
		health:          newHealthTracker(cfg.Now),
		logger:          logging.WithService(cfg.Logger, "invoker"),
		metrics:         cfg.Metrics,
	}
}

// Health returns the current health record of a transport.
func (inv *Invoker) Health(t Transport) Health {
	return inv.health.snapshot(t)
}

// Invoke executes the operation on the best available transport.
//
// Business failures and expired authentication always propagate; only
// transport-level trouble triggers the modern-to-legacy fallback and,
// ultimately, degraded mode.
func (inv *Invoker) Invoke(ctx context.Context, op *Operation) (*Result, error) {
	if op == nil || op.Name == "" {
		return nil, transport.NewValidationError("operation is required")
	}

	var lastErr error

	if inv.useModern(op) {
		result, err := inv.callModern(ctx, op)
		if err == nil {
			return result, nil
		}
		if !transport.IsTransportFailure(err) {
			return nil, err
		}

		inv.health.markUnhealthy(TransportModern)
		lastErr = err

		if !inv.fallbackEnabled {
			return nil, err
		}

		inv.logger.Warn("modern transport failed, falling back to legacy",
			logging.Operation(op.Name),
			logging.Err(err))
		inv.metrics.RecordFallback(ctx, op.Name)
	}

	if inv.legacy != nil && inv.health.shouldAttempt(TransportLegacy, inv.cooldown) {
		result, err := inv.callLegacy(ctx, op)
		if err == nil {
			return result, nil
		}
		if !transport.IsTransportFailure(err) {
			return nil, err
		}

		inv.health.markUnhealthy(TransportLegacy)
		lastErr = err
	}

	return inv.degrade(ctx, op, lastErr)
}

// useModern decides whether this call starts on the modern transport.
// With fallback disabled the modern transport is the only option, so it is
// always attempted regardless of recorded health.
func (inv *Invoker) useModern(op *Operation) bool {
	if !inv.preferModern || inv.modern == nil || op.Path == "" {
		return false
	}
	if !inv.fallbackEnabled {
		return true
	}
	return inv.health.shouldAttempt(TransportModern, inv.cooldown)
}

func (inv *Invoker) callModern(ctx context.Context, op *Operation) (*Result, error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, string(TransportModern), op.Name)
	defer span.End()

	start := time.Now()
	var data json.RawMessage
	var err error

	switch op.Method {
	case "", "GET":
		data, err = inv.modern.Get(ctx, op.Path)
	case "POST":
		data, err = inv.modern.Post(ctx, op.Path, op.Payload)
	case "PUT":
		data, err = inv.modern.Put(ctx, op.Path, op.Payload)
	case "DELETE":
		data, err = inv.modern.Delete(ctx, op.Path)
	default:
		err = transport.NewValidationError("unsupported method %q for operation %s", op.Method, op.Name)
	}

	inv.record(ctx, TransportModern, op, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)

	inv.health.markHealthy(TransportModern)
	return &Result{Data: data, Transport: TransportModern}, nil
}

func (inv *Invoker) callLegacy(ctx context.Context, op *Operation) (*Result, error) {
	if op.Action == "" {
		return nil, transport.NewValidationError("operation %s has no legacy action", op.Name)
	}

	ctx, span := instrumentation.StartBackendSpan(ctx, string(TransportLegacy), op.Name)
	defer span.End()

	start := time.Now()
	var data json.RawMessage
	var err error
	if op.Mutating {
		data, err = inv.legacy.Call(ctx, op.Action, op.Parameters)
	} else {
		// The script backend serves reads from its GET handler with
		// query-encoded parameters.
		var params url.Values
		params, err = legacyQueryParams(op.Parameters)
		if err == nil {
			data, err = inv.legacy.Query(ctx, op.Action, params)
		}
	}
	inv.record(ctx, TransportLegacy, op, err, time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)

	inv.health.markHealthy(TransportLegacy)
	return &Result{Data: data, Transport: TransportLegacy}, nil
}

// legacyQueryParams flattens positional parameters into repeated
// "parameters" query values, preserving their order. Non-string values
// travel JSON-encoded.
func legacyQueryParams(parameters []interface{}) (url.Values, error) {
	params := url.Values{}
	for _, p := range parameters {
		if s, ok := p.(string); ok {
			params.Add("parameters", s)
			continue
		}
		encoded, err := json.Marshal(p)
		if err != nil {
			return nil, transport.NewValidationError("legacy parameter is not encodable: %v", err)
		}
		params.Add("parameters", string(encoded))
	}
	return params, nil
}

// degrade serves the operation's substitute data so the UI stays usable
// when no backend is reachable. The result is visibly flagged.
func (inv *Invoker) degrade(ctx context.Context, op *Operation, lastErr error) (*Result, error) {
	if op.Substitute == nil {
		if lastErr == nil {
			lastErr = &transport.UnreachableError{
				Endpoint: op.Name,
				Err:      errors.New("no transport available"),
			}
		}
		return nil, fmt.Errorf("operation %s failed on all transports: %w", op.Name, lastErr)
	}

	data, err := op.Substitute()
	if err != nil {
		return nil, fmt.Errorf("degraded substitute for %s failed: %w", op.Name, err)
	}

	inv.logger.Warn("serving degraded substitute data",
		logging.Operation(op.Name),
		logging.Status(logging.StatusDegraded),
		logging.Err(lastErr))
	inv.metrics.RecordDegradedResponse(ctx, op.Name)

	return &Result{Data: data, Transport: TransportDegraded, Degraded: true}, nil
}

func (inv *Invoker) record(ctx context.Context, t Transport, op *Operation, err error, elapsed time.Duration) {
	result := instrumentation.ResultSuccess
	if err != nil {
		result = instrumentation.ResultFailure
	}
	inv.metrics.RecordBackendCall(ctx, string(t), op.Name, result, elapsed)
}
