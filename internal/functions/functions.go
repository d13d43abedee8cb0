// Package functions implements the named server-side functions the
// dashboard delegates provider work to: token exchange, publishing,
// revocation and WordPress connection. Functions are invoked by name with
// JSON payloads, either in process through a Registry or remotely through
// an HTTPInvoker.
package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	ConnectWordPress           = "connect-wordpress"
	ConnectWordPressSelfHosted = "connect-wordpress-self-hosted"
)

var ErrFunctionNotFound = errors.New("function not found")

func OAuth(platformID string) string   { return "oauth-" + platformID }
func Publish(platformID string) string { return "publish-" + platformID }
func Revoke(platformID string) string  { return "revoke-" + platformID }
func Refresh(platformID string) string { return "refresh-" + platformID }

// Invoker calls a named function. in is encoded as JSON and the JSON result
// is decoded into out when out is not nil.
type Invoker interface {
	Invoke(ctx context.Context, name string, in, out any) error
}

type HandlerFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Error is returned when a function ran and reported a failure.
type Error struct {
	Function string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("function %s: %s", e.Function, e.Message)
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

func (r *Registry) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

func (r *Registry) Invoke(ctx context.Context, name string, in, out any) error {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", name, err)
	}

	result, err := h(ctx, payload)
	if err != nil {
		slog.Info(err.Error(), "function", name)
		return &Error{Function: name, Message: err.Error()}
	}

	if out == nil || result == nil {
		return nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode %s result: %w", name, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}

// handle adapts a typed handler to a HandlerFunc.
func handle[In any, Out any](fn func(ctx context.Context, in In) (Out, error)) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in In
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &in); err != nil {
				return nil, fmt.Errorf("invalid payload: %w", err)
			}
		}
		return fn(ctx, in)
	}
}
