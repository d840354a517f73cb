package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSecondsCeil(t *testing.T) {
	tests := []struct {
		give time.Duration
		want time.Duration
	}{
		{0, 0},
		{time.Millisecond, time.Second},
		{999 * time.Millisecond, time.Second},
		{time.Second, time.Second},
		{1001 * time.Millisecond, 2 * time.Second},
		{2 * time.Second, 2 * time.Second},
		{2500 * time.Millisecond, 3 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.give.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, secondsCeil(tt.give))
		})
	}
}

func TestWithTimeoutForwardsOutcome(t *testing.T) {
	v, err := withTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	boom := errors.New("boom")
	_, err = withTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.Equal(t, boom, err)
}

func TestWithTimeoutExpires(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan struct{})
	defer func() {
		close(release)
		<-finished // the abandoned operation still completes
	}()

	start := time.Now()
	_, err := withTimeout(context.Background(), 50*time.Millisecond, func(context.Context) (string, error) {
		defer close(finished)
		<-release
		return "late", errors.New("late failure is discarded")
	})
	assert.ErrorIs(t, err, ErrTimeoutExceeded)
	assert.True(t, IsTimeout(err))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWithTimeoutContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := withTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlockingPopTimeoutRoundsBrokerWaitUp(t *testing.T) {
	b := new(mockBroker)
	b.On("BlockingPop", mock.Anything, "list", 2*time.Second).Return([]byte("item"), nil).Once()
	r := New(b)

	item, err := r.blockingPopTimeout(context.Background(), "list", 1500*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte("item"), item)
	b.AssertExpectations(t)
}

func TestBlockingPopTimeoutNormalizesEmptyPop(t *testing.T) {
	b := new(mockBroker)
	// The broker's own whole-second wait elapsed before the guard fired.
	b.On("BlockingPop", mock.Anything, "list", time.Second).Return(nil, ErrNoItem).Once()
	r := New(b)

	_, err := r.blockingPopTimeout(context.Background(), "list", time.Second)
	assert.ErrorIs(t, err, ErrTimeoutExceeded)
	b.AssertExpectations(t)
}

func TestBlockingPopTimeoutIsMillisecondPrecise(t *testing.T) {
	b := newMemBroker()
	r := New(b)

	start := time.Now()
	_, err := r.blockingPopTimeout(context.Background(), "list", 120*time.Millisecond)
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeoutExceeded)
	assert.GreaterOrEqual(t, elapsed, 120*time.Millisecond)
	assert.Less(t, elapsed, time.Second, "guard must not wait for the broker's whole second")
}
