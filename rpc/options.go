package rpc

import (
	"time"

	"github.com/uber-go/tally"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Option func(*RPC)

// WithPrefix sets the prefix of every queue name. Callers and workers of a
// call type must agree on it.
func WithPrefix(p string) Option {
	return func(r *RPC) {
		r.prefix = p
	}
}

// WithDisableGC stops replies from being pushed with a TTL.
func WithDisableGC(disable bool) Option {
	return func(r *RPC) {
		r.disableGC = disable
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *RPC) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithErrorHandler receives every failure isolated inside a dispatch loop:
// *DecodeError, *WorkerError and *TransportError. It replaces the default,
// which logs.
func WithErrorHandler(h func(error)) Option {
	return func(r *RPC) {
		if h != nil {
			r.onError = h
		}
	}
}

func WithMetrics(scope tally.Scope) Option {
	return func(r *RPC) {
		if scope != nil {
			r.scope = scope
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *RPC) {
		if tp != nil {
			r.tracerProvider = tp
		}
	}
}

// WithPollTimeout bounds each blocking pop of a dispatch loop, letting an
// idle loop notice Unregister or Close without waiting for a message. Zero
// waits indefinitely.
func WithPollTimeout(d time.Duration) Option {
	return func(r *RPC) {
		if d >= 0 {
			r.pollTimeout = d
		}
	}
}

// WithClientID overrides the random client identity. It must stay unique
// among all processes sharing the broker.
func WithClientID(id string) Option {
	return func(r *RPC) {
		if id != "" {
			r.clientID = id
		}
	}
}
