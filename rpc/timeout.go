package rpc

import (
	"context"
	"time"

	"emperror.dev/errors"
)

type outcome[T any] struct {
	val T
	err error
}

// withTimeout runs op and returns its outcome, or ErrTimeoutExceeded if
// timeout elapses first. op is not cancelled on timeout; its late outcome is
// dropped into a buffered channel and discarded.
func withTimeout[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx)
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case o := <-done:
		return o.val, o.err
	case <-timer.C:
		return zero, ErrTimeoutExceeded
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// secondsCeil rounds d up to whole seconds, the only granularity BLPOP
// accepts: 1ms..1s -> 1s, 1001ms..2s -> 2s.
func secondsCeil(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return ((d + time.Second - 1) / time.Second) * time.Second
}

// blockingPopTimeout pops list with a broker wait rounded up to whole
// seconds, while the caller-visible timeout stays exact. A broker-side empty
// result is reported as ErrTimeoutExceeded too.
func (r *RPC) blockingPopTimeout(ctx context.Context, list string, timeout time.Duration) ([]byte, error) {
	item, err := withTimeout(ctx, timeout, func(ctx context.Context) ([]byte, error) {
		return r.broker.BlockingPop(ctx, list, secondsCeil(timeout))
	})
	if errors.Is(err, ErrNoItem) {
		return nil, ErrTimeoutExceeded
	}
	return item, err
}
