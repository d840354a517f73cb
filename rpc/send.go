package rpc

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Send pushes a call to the queue of callType and waits up to timeout for
// its result. A non-positive timeout means DefaultTimeout.
//
// The call stays enqueued when Send gives up; a worker answering late
// writes to a response queue nobody reads.
func (r *RPC) Send(ctx context.Context, callType string, args any, timeout time.Duration) (json.RawMessage, error) {
	if callType == "" {
		return nil, ErrEmptyType
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	raw, err := marshalValue(args)
	if err != nil {
		return nil, errors.Wrap(err, "marshal args")
	}

	queue := r.typeQueue(callType)
	responseQueue := r.responseQueue(newCallID())
	b, err := json.Marshal(&Call{
		Type:          callType,
		Args:          raw,
		ResponseQueue: responseQueue,
		Timeout:       timeout.Milliseconds(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal call")
	}

	ctx, span := r.tracer.Start(ctx, "redisrpc.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.type", callType),
			attribute.String("rpc.queue", queue),
			attribute.String("rpc.response_queue", responseQueue),
		))
	defer span.End()

	start := time.Now()
	res, err := r.roundTrip(ctx, queue, responseQueue, b, timeout)
	r.obs.sent(start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

// roundTrip pushes the call, then pops its response queue for whatever is
// left of timeout. The pop must not start first: on a shared connection
// pool, waiting pops could hold every connection and starve the pushes
// their replies depend on.
func (r *RPC) roundTrip(ctx context.Context, queue, responseQueue string, call []byte, timeout time.Duration) (json.RawMessage, error) {
	deadline := time.Now().Add(timeout)

	_, err := withTimeout(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.broker.Push(ctx, queue, call)
	})
	switch {
	case err == nil:
	case IsTimeout(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, &TransportError{Op: "push", Queue: queue, Err: err}
	}

	remaining := time.Until(deadline)
	if remaining <= 0 {
		return nil, ErrTimeoutExceeded
	}
	item, err := r.blockingPopTimeout(ctx, responseQueue, remaining)
	switch {
	case err == nil:
	case IsTimeout(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		return nil, &TransportError{Op: "pop", Queue: responseQueue, Err: err}
	}

	var res Result
	if err := json.Unmarshal(item, &res); err != nil {
		return nil, &DecodeError{Queue: responseQueue, Err: err}
	}
	return res.Result, nil
}

// Call is Send followed by decoding the result into out. A nil out
// discards the result.
func (r *RPC) Call(ctx context.Context, callType string, args any, timeout time.Duration, out any) error {
	res, err := r.Send(ctx, callType, args, timeout)
	if err != nil {
		return err
	}
	if out == nil || len(res) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(res, out), "decode result")
}

// Fire pushes a call that expects no reply and returns once the broker
// acknowledged the push.
func (r *RPC) Fire(ctx context.Context, callType string, args any) error {
	if callType == "" {
		return ErrEmptyType
	}
	raw, err := marshalValue(args)
	if err != nil {
		return errors.Wrap(err, "marshal args")
	}
	b, err := json.Marshal(&Call{
		Type:     callType,
		Args:     raw,
		ClientID: r.clientID,
	})
	if err != nil {
		return errors.Wrap(err, "marshal call")
	}

	queue := r.typeQueue(callType)
	ctx, span := r.tracer.Start(ctx, "redisrpc.fire",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("rpc.type", callType),
			attribute.String("rpc.queue", queue),
		))
	defer span.End()

	if err := r.broker.Push(ctx, queue, b); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &TransportError{Op: "push", Queue: queue, Err: err}
	}
	r.obs.callsFired.Inc(1)
	return nil
}

// marshalValue sends []byte and json.RawMessage as they are and JSON-encodes
// anything else.
func marshalValue(v any) (json.RawMessage, error) {
	switch v := v.(type) {
	case json.RawMessage:
		if v == nil {
			return json.RawMessage("null"), nil
		}
		return v, nil
	case []byte:
		if v == nil {
			return json.RawMessage("null"), nil
		}
		if !json.Valid(v) {
			return nil, errors.NewPlain("raw payload is not valid JSON")
		}
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}
