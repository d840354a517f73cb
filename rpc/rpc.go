package rpc

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/uber-go/tally"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// DefaultTimeout applies to Send when no positive timeout is given.
const DefaultTimeout = 3 * time.Second

const tracerName = "github.com/mrjvadi/go-redis-rpc/rpc"

// popErrorDelay is how long a dispatch loop waits after a failed pop.
const popErrorDelay = 150 * time.Millisecond

// RPC sends calls to, and handles calls from, named type queues on a
// Broker. One RPC may both send and handle.
type RPC struct {
	broker    Broker
	prefix    string
	clientID  string
	disableGC bool

	pollTimeout   time.Duration
	popErrorDelay time.Duration

	// registration set, keyed by type queue
	mu       sync.Mutex
	handlers map[string]*registration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool

	inflight atomic.Int64

	logger         *zap.Logger
	onError        func(error)
	scope          tally.Scope
	obs            *observer
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
}

type registration struct {
	callType string
	queue    string
	handler  CustomHandlerFunc
}

func New(b Broker, options ...Option) *RPC {
	ctx, cancel := context.WithCancel(context.Background())
	r := &RPC{
		broker:        b,
		prefix:        DefaultPrefix,
		clientID:      newClientID(),
		popErrorDelay: popErrorDelay,
		handlers:      make(map[string]*registration),
		ctx:           ctx,
		cancel:        cancel,
		logger:        zap.NewNop(),
		scope:         tally.NoopScope,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.onError == nil {
		r.onError = r.logError
	}
	if r.tracerProvider == nil {
		r.tracerProvider = otel.GetTracerProvider()
	}
	r.tracer = r.tracerProvider.Tracer(tracerName)
	r.obs = newObserver(r.scope)
	return r
}

// ClientID returns the identity of this instance.
func (r *RPC) ClientID() string { return r.clientID }

// Prefix returns the queue name prefix.
func (r *RPC) Prefix() string { return r.prefix }

// InFlight returns the number of ModeUnlimited invocations still running.
func (r *RPC) InFlight() int64 { return r.inflight.Load() }

// Close unregisters every handler and cancels the context handed to
// workers. A loop blocked in an indefinite pop exits once that pop returns;
// Wait blocks until all loops are gone.
func (r *RPC) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	r.mu.Lock()
	for q := range r.handlers {
		delete(r.handlers, q)
	}
	r.mu.Unlock()
	r.cancel()
	return nil
}

// Wait blocks until every dispatch loop and unlimited invocation has
// returned, or ctx is done.
func (r *RPC) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// report hands a failure isolated inside a dispatch loop to the error hook.
func (r *RPC) report(err error) {
	r.obs.failure(err)
	r.onError(err)
}

func (r *RPC) logError(err error) {
	var (
		decodeErr    *DecodeError
		workerErr    *WorkerError
		transportErr *TransportError
	)
	switch {
	case errors.As(err, &decodeErr):
		r.logger.Warn("swallowed undecodable message",
			zap.String("queue", decodeErr.Queue), zap.Error(decodeErr.Err))
	case errors.As(err, &workerErr):
		r.logger.Error("swallowed failure from call handler",
			zap.String("type", workerErr.Type), zap.Error(workerErr.Err))
	case errors.As(err, &transportErr):
		r.logger.Error("broker operation failed",
			zap.String("op", transportErr.Op), zap.String("queue", transportErr.Queue), zap.Error(transportErr.Err))
	default:
		r.logger.Error("rpc failure", zap.Error(err))
	}
}
