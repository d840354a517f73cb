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

// Handle registers h in ModeWait: the next call is popped once h returned,
// and the reply is pushed in the background.
func (r *RPC) Handle(callType string, h HandlerFunc) error {
	return r.HandleMode(callType, ModeWait, h)
}

// HandleStrong registers h in ModeStrong: the next call is popped once h
// returned and its reply was pushed.
func (r *RPC) HandleStrong(callType string, h HandlerFunc) error {
	return r.HandleMode(callType, ModeStrong, h)
}

// HandleUnlimited registers h in ModeUnlimited: every popped call runs in
// its own goroutine and the next pop follows immediately. Nothing bounds
// the number of running handlers.
func (r *RPC) HandleUnlimited(callType string, h HandlerFunc) error {
	return r.HandleMode(callType, ModeUnlimited, h)
}

func (r *RPC) HandleMode(callType string, mode Mode, h HandlerFunc) error {
	if h == nil {
		return errors.NewPlain("rpc: nil handler")
	}
	switch mode {
	case ModeWait, ModeStrong, ModeUnlimited:
	default:
		return errors.Errorf("rpc: unknown mode %d", int(mode))
	}
	return r.HandleCustom(callType, r.modeHandler(callType, mode, h))
}

func (r *RPC) modeHandler(callType string, mode Mode, h HandlerFunc) CustomHandlerFunc {
	switch mode {
	case ModeStrong:
		return func(ctx context.Context, call *Call, clientID string) error {
			result, err := h(newContext(ctx, call, clientID))
			if err != nil {
				return err
			}
			if !call.HasResponseQueue() {
				r.obs.missingResponseQueue.Inc(1)
				r.logger.Warn("cannot reply to call without response queue", zap.String("type", callType))
				return nil
			}
			if err := r.Reply(context.WithoutCancel(ctx), call, result); err != nil {
				r.report(err)
			}
			return nil
		}

	case ModeUnlimited:
		wait := r.waitHandler(h)
		return func(ctx context.Context, call *Call, clientID string) error {
			r.inflight.Inc()
			r.wg.Add(1)
			// The dispatch span ends when this returns; the work gets its own
			// root span linked to it.
			dispatch := trace.SpanContextFromContext(ctx)
			go func() {
				defer r.wg.Done()
				defer r.inflight.Dec()

				ctx, span := r.tracer.Start(r.ctx, "redisrpc.work",
					trace.WithNewRoot(),
					trace.WithLinks(trace.Link{SpanContext: dispatch}),
					trace.WithAttributes(attribute.String("rpc.type", callType)))
				defer span.End()

				if err := r.invoke(ctx, wait, call); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					r.report(&WorkerError{Type: callType, Err: err})
				}
			}()
			return nil
		}

	default:
		return r.waitHandler(h)
	}
}

// waitHandler runs h and pushes its result without waiting for the push.
func (r *RPC) waitHandler(h HandlerFunc) CustomHandlerFunc {
	return func(ctx context.Context, call *Call, clientID string) error {
		result, err := h(newContext(ctx, call, clientID))
		if err != nil {
			return err
		}
		if !call.HasResponseQueue() {
			return nil
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.Reply(context.WithoutCancel(ctx), call, result); err != nil {
				r.report(err)
			}
		}()
		return nil
	}
}

// Reply pushes result to the response queue of call. Calls without a
// response queue are ignored. With garbage collection on, the response
// queue expires after the call timeout.
func (r *RPC) Reply(ctx context.Context, call *Call, result any) error {
	if !call.HasResponseQueue() {
		return nil
	}
	raw, err := marshalValue(result)
	if err != nil {
		return &WorkerError{Type: call.Type, Err: errors.Wrap(err, "marshal result")}
	}
	b, err := json.Marshal(&Result{ClientID: r.clientID, Result: raw})
	if err != nil {
		return &WorkerError{Type: call.Type, Err: errors.Wrap(err, "marshal reply")}
	}

	if err := r.pushReply(ctx, call, b); err != nil {
		return &TransportError{Op: "push", Queue: call.ResponseQueue, Err: err}
	}
	r.obs.repliesSent.Inc(1)
	return nil
}

func (r *RPC) pushReply(ctx context.Context, call *Call, b []byte) error {
	if eb, ok := r.broker.(ExpiringBroker); ok && !r.disableGC && call.Timeout > 0 {
		return eb.PushExpire(ctx, call.ResponseQueue, b, time.Duration(call.Timeout)*time.Millisecond)
	}
	return r.broker.Push(ctx, call.ResponseQueue, b)
}
