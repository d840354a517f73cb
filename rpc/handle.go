package rpc

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandleCustom registers h for callType and starts its dispatch loop. The
// loop pops one call at a time and pops the next once h returns, so flow
// control and replying are up to h.
//
// The registration is checked before every pop: after Unregister the loop
// still handles a call delivered to the pop already in flight.
func (r *RPC) HandleCustom(callType string, h CustomHandlerFunc) error {
	if callType == "" {
		return ErrEmptyType
	}
	if h == nil {
		return errors.NewPlain("rpc: nil handler")
	}
	if r.closed.Load() {
		return ErrClosed
	}

	reg := &registration{
		callType: callType,
		queue:    r.typeQueue(callType),
		handler:  h,
	}

	r.mu.Lock()
	if _, ok := r.handlers[reg.queue]; ok {
		r.mu.Unlock()
		return errors.Wrapf(ErrDuplicateHandler, "type %q", callType)
	}
	r.handlers[reg.queue] = reg
	r.wg.Add(1)
	r.mu.Unlock()

	go r.dispatchLoop(reg)
	return nil
}

// Unregister stops handling callType. It reports whether a handler was
// registered.
func (r *RPC) Unregister(callType string) bool {
	queue := r.typeQueue(callType)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handlers[queue]
	delete(r.handlers, queue)
	return ok
}

// Handling reports whether callType has a registered handler.
func (r *RPC) Handling(callType string) bool {
	queue := r.typeQueue(callType)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handlers[queue]
	return ok
}

func (r *RPC) current(reg *registration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[reg.queue] == reg
}

func (r *RPC) dispatchLoop(reg *registration) {
	defer r.wg.Done()

	log := r.logger.With(zap.String("queue", reg.queue))
	log.Debug("started listener")
	defer log.Debug("terminated listener")

	for r.current(reg) {
		item, err := r.broker.BlockingPop(r.ctx, reg.queue, r.pollTimeout)
		if errors.Is(err, ErrNoItem) {
			continue
		}
		if err != nil {
			if r.ctx.Err() != nil {
				return
			}
			r.report(&TransportError{Op: "pop", Queue: reg.queue, Err: err})
			r.pause(r.popErrorDelay)
			continue
		}
		r.dispatch(reg, item)
	}
}

func (r *RPC) dispatch(reg *registration, item []byte) {
	var call Call
	if err := json.Unmarshal(item, &call); err != nil {
		r.report(&DecodeError{Queue: reg.queue, Err: err})
		return
	}
	if call.Type == "" {
		r.report(&DecodeError{Queue: reg.queue, Err: errMissingType})
		return
	}

	ctx, span := r.tracer.Start(r.ctx, "redisrpc.dispatch",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("rpc.type", reg.callType),
			attribute.String("rpc.queue", reg.queue),
			attribute.Bool("rpc.reply_expected", call.HasResponseQueue()),
		))
	defer span.End()

	if err := r.invoke(ctx, reg.handler, &call); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.report(&WorkerError{Type: reg.callType, Err: err})
	}
}

// invoke runs h, turning a panic into an error.
func (r *RPC) invoke(ctx context.Context, h CustomHandlerFunc, call *Call) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return h(ctx, call, r.clientID)
}

func (r *RPC) pause(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.ctx.Done():
	}
}
