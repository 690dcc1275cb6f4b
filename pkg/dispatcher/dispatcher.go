// Package dispatcher drives one inbound JSON-RPC message through parsing, method lookup,
// parameter binding and invocation, and hands exactly one response back to the session.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matejonnet/dependency-analysis/pkg/jsonrpc"
	"github.com/matejonnet/dependency-analysis/pkg/methods"
)

const logPrefix = "dispatcher:dispatch"

// Options tune a Dispatcher.
type Options struct {
	// RequestTimeout bounds the context handed to each handler. Zero means no deadline.
	RequestTimeout time.Duration
}

// Dispatcher routes JSON-RPC requests to registered methods.
// It holds no per-request state and is safe for concurrent use across sessions.
type Dispatcher struct {
	registry *methods.Registry
	timeout  time.Duration
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(reg *methods.Registry, opts Options) *Dispatcher {
	return &Dispatcher{registry: reg, timeout: opts.RequestTimeout}
}

// Dispatch handles one inbound message and sends the response to s.
// A closed session gets nothing and ErrSessionClosed is returned. Send failures are logged and returned; they are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, s Session, msg []byte) error {
	resp, state := d.Handle(ctx, msg)

	out, err := jsonrpc.Encode(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - encode response id=%s: %v", logPrefix, resp.ID, err))
		out, err = jsonrpc.Encode(jsonrpc.NewErrorResponse(resp.ID, jsonrpc.ErrInternal(err.Error())))
		if err != nil {
			return fmt.Errorf("%s - encode fallback response: %w", logPrefix, err)
		}
	}

	if !s.IsOpen() {
		slog.Warn(fmt.Sprintf("%s - session closed, discarding response id=%s state=%s", logPrefix, resp.ID, state))
		return ErrSessionClosed
	}
	if err := s.SendText(ctx, out); err != nil {
		slog.Error(fmt.Sprintf("%s - send response id=%s state=%s: %v", logPrefix, resp.ID, state, err))
		return fmt.Errorf("%s - send response: %w", logPrefix, err)
	}
	state = Responded
	slog.Debug(fmt.Sprintf("%s - response id=%s state=%s", logPrefix, resp.ID, state))
	return nil
}

// Handle runs the request lifecycle for msg and returns the response together with the
// last stage the request reached before the response was produced.
func (d *Dispatcher) Handle(ctx context.Context, msg []byte) (*jsonrpc.Response, State) {
	req, err := jsonrpc.ParseRequest(msg)
	if err != nil {
		return jsonrpc.NewErrorResponse(jsonrpc.NullID(), parseFailure(err)), Received
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	m, err := d.registry.Get(req.Method)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - method not found: %s", logPrefix, req.Method))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrMethodNotFound(req.Method)), Parsed
	}

	if req.ParamsNull() {
		slog.Warn(fmt.Sprintf("%s - null params for %s id=%s", logPrefix, req.Method, req.ID))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInvalidParams(methods.ErrNullParams.Error())), MethodResolved
	}

	bound, err := m.Bind(req.Params)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - invalid params for %s id=%s: %v", logPrefix, req.Method, req.ID, err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInvalidParams(err.Error())), MethodResolved
	}

	result, err := d.invoke(ctx, m, bound)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - method %s id=%s failed: %v", logPrefix, req.Method, req.ID, err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInternal(err.Error())), ParamsBound
	}

	resp, err := jsonrpc.NewResult(req.ID, result)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - method %s id=%s result not encodable: %v", logPrefix, req.Method, req.ID, err))
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInternal(err.Error())), Invoked
	}
	return resp, Invoked
}

func (d *Dispatcher) invoke(ctx context.Context, m *methods.Method, bound *methods.Bound) (result any, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.Invoke(ctx, bound)
}

func parseFailure(err error) *jsonrpc.Error {
	var pe *jsonrpc.ParseError
	if !errors.As(err, &pe) {
		slog.Warn(fmt.Sprintf("%s - unclassified parse failure: %v", logPrefix, err))
		return jsonrpc.ErrParse(err.Error())
	}
	switch pe.Cause {
	case jsonrpc.CauseJSON:
		slog.Warn(fmt.Sprintf("%s - malformed message: %v", logPrefix, pe))
		return jsonrpc.ErrParse(pe.Error())
	case jsonrpc.CauseProtocol:
		slog.Warn(fmt.Sprintf("%s - invalid request: %v", logPrefix, pe))
		return jsonrpc.ErrInvalidRequest(pe.Error())
	default:
		slog.Warn(fmt.Sprintf("%s - parse failure with cause %s: %v", logPrefix, pe.Cause, pe))
		return jsonrpc.ErrParse(pe.Error())
	}
}
