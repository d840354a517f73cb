package rpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

// memBroker is an in-process list store with blocking pops.
type memBroker struct {
	mu      sync.Mutex
	lists   map[string][][]byte
	ttls    map[string]time.Duration
	changed chan struct{}
	waiting map[string]int // blocked pops per list
	pushes  int
}

var _ ExpiringBroker = (*memBroker)(nil)

func newMemBroker() *memBroker {
	return &memBroker{
		lists:   make(map[string][][]byte),
		ttls:    make(map[string]time.Duration),
		changed: make(chan struct{}),
		waiting: make(map[string]int),
	}
}

func (b *memBroker) Push(_ context.Context, list string, item []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[list] = append(b.lists[list], append([]byte(nil), item...))
	b.pushes++
	close(b.changed)
	b.changed = make(chan struct{})
	return nil
}

func (b *memBroker) PushExpire(ctx context.Context, list string, item []byte, ttl time.Duration) error {
	b.mu.Lock()
	b.ttls[list] = ttl
	b.mu.Unlock()
	return b.Push(ctx, list, item)
}

func (b *memBroker) BlockingPop(ctx context.Context, list string, timeout time.Duration) ([]byte, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}

	b.mu.Lock()
	b.waiting[list]++
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.waiting[list]--
		b.mu.Unlock()
	}()

	for {
		b.mu.Lock()
		if q := b.lists[list]; len(q) > 0 {
			item := q[0]
			b.lists[list] = q[1:]
			b.mu.Unlock()
			return item, nil
		}
		changed := b.changed
		b.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return nil, ErrNoItem
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (b *memBroker) len(list string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lists[list])
}

func (b *memBroker) items(list string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.lists[list]...)
}

func (b *memBroker) ttl(list string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.ttls[list]
	return d, ok
}

func (b *memBroker) pushCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pushes
}

// waitForPop blocks until a pop on list is in flight.
func (b *memBroker) waitForPop(t *testing.T, list string) {
	t.Helper()
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.waiting[list] > 0
	}, time.Second, time.Millisecond, "no pop in flight on %s", list)
}

// mockBroker is a testify mock of Broker.
type mockBroker struct {
	mock.Mock
}

func (m *mockBroker) Push(ctx context.Context, list string, item []byte) error {
	args := m.Called(ctx, list, item)
	return args.Error(0)
}

func (m *mockBroker) BlockingPop(ctx context.Context, list string, timeout time.Duration) ([]byte, error) {
	args := m.Called(ctx, list, timeout)
	item, _ := args.Get(0).([]byte)
	return item, args.Error(1)
}

// errorSink collects errors handed to the error hook.
type errorSink struct {
	mu   sync.Mutex
	errs []error
}

func (s *errorSink) handle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *errorSink) all() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func counterValue(scope tally.TestScope, name string) int64 {
	for _, c := range scope.Snapshot().Counters() {
		if c.Name() == name {
			return c.Value()
		}
	}
	return 0
}

// newTestRPC builds an RPC over b that is closed when the test ends.
func newTestRPC(t *testing.T, b Broker, opts ...Option) *RPC {
	t.Helper()
	r := New(b, opts...)
	t.Cleanup(func() { _ = r.Close() })
	return r
}
