package methods

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

const logPrefix = "methods:method"

// ErrNullParams is returned by Bind when params were absent or null.
var ErrNullParams = errors.New("Parameter can't be null")

// BindError carries the conversion diagnostic for params that do not fit a method's shape.
type BindError struct {
	Method string
	Err    error
}

func (e *BindError) Error() string { return e.Err.Error() }

func (e *BindError) Unwrap() error { return e.Err }

// Bound is a parameter value that has been checked against its method's shape.
type Bound struct {
	method *Method
	value  any
}

// Value returns the converted parameter value.
func (b *Bound) Value() any { return b.value }

// Method is an immutable registry entry: a name, the expected parameter shape and the handler.
type Method struct {
	name        string
	description string
	shape       *Shape
	decode      func(json.RawMessage) (any, error)
	invoke      func(ctx context.Context, params any) (any, error)
}

// Option configures a Method at construction.
type Option func(*Method)

// WithDescription attaches a human-readable description, surfaced by method listings.
func WithDescription(d string) Option {
	return func(m *Method) { m.description = d }
}

// New builds a method whose params are decoded into P and whose handler returns R.
func New[P, R any](name string, fn func(ctx context.Context, params P) (R, error), opts ...Option) (*Method, error) {
	if name == "" {
		return nil, fmt.Errorf("%s - method name must not be empty", logPrefix)
	}
	if fn == nil {
		return nil, fmt.Errorf("%s - method %s has no handler", logPrefix, name)
	}

	shape, err := newShape(name, reflect.TypeOf((*P)(nil)).Elem())
	if err != nil {
		return nil, err
	}

	m := &Method{
		name:  name,
		shape: shape,
		decode: func(raw json.RawMessage) (any, error) {
			var p P
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.DisallowUnknownFields()
			if err := dec.Decode(&p); err != nil {
				return nil, err
			}
			return p, nil
		},
		invoke: func(ctx context.Context, params any) (any, error) {
			p, ok := params.(P)
			if !ok {
				return nil, fmt.Errorf("params of type %T do not match method %s", params, name)
			}
			return fn(ctx, p)
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is New that panics on error. Use it for statically known methods.
func MustNew[P, R any](name string, fn func(ctx context.Context, params P) (R, error), opts ...Option) *Method {
	m, err := New(name, fn, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Name returns the registry key.
func (m *Method) Name() string { return m.name }

// Description returns the optional description.
func (m *Method) Description() string { return m.description }

// Shape returns the parameter shape.
func (m *Method) Shape() *Shape { return m.shape }

// Bind converts raw params into the method's parameter type.
// Absent or null params fail with ErrNullParams; anything else that does not fit fails with a *BindError.
// No type coercion is attempted: a string is never read as a number, and unknown members are rejected.
func (m *Method) Bind(raw json.RawMessage) (*Bound, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNullParams
	}
	if err := m.shape.Validate(trimmed); err != nil {
		return nil, &BindError{Method: m.name, Err: err}
	}
	v, err := m.decode(trimmed)
	if err != nil {
		return nil, &BindError{Method: m.name, Err: err}
	}
	return &Bound{method: m, value: v}, nil
}

// Invoke runs the handler with a value produced by this method's Bind.
func (m *Method) Invoke(ctx context.Context, b *Bound) (any, error) {
	if b == nil || b.method != m {
		return nil, fmt.Errorf("%s - params were not bound by method %s", logPrefix, m.name)
	}
	return m.invoke(ctx, b.value)
}
