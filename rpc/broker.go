package rpc

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/redis/go-redis/v9"
)

// Broker is the subset of list commands the RPC layer is built on.
type Broker interface {
	// Push appends item to the tail of list.
	Push(ctx context.Context, list string, item []byte) error
	// BlockingPop removes and returns the head of list, waiting up to
	// timeout for one to arrive. A zero timeout waits indefinitely. It MUST
	// return ErrNoItem when the wait elapsed without an item.
	BlockingPop(ctx context.Context, list string, timeout time.Duration) ([]byte, error)
}

// ExpiringBroker is implemented by brokers able to push and set a TTL on
// the list in one atomic step. Replies use it when garbage collection is on.
type ExpiringBroker interface {
	Broker
	PushExpire(ctx context.Context, list string, item []byte, ttl time.Duration) error
}

// RedisBroker implements ExpiringBroker with RPUSH, BLPOP and a Lua script.
type RedisBroker struct {
	client redis.UniversalClient
}

var _ ExpiringBroker = (*RedisBroker)(nil)

// NewRedisBroker wraps client. The caller keeps ownership of client.
func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Push(ctx context.Context, list string, item []byte) error {
	return b.client.RPush(ctx, list, item).Err()
}

func (b *RedisBroker) PushExpire(ctx context.Context, list string, item []byte, ttl time.Duration) error {
	ms := ttl.Milliseconds()
	if ms <= 0 {
		return b.Push(ctx, list, item)
	}
	return pushExpireLua.Run(ctx, b.client, []string{list}, item, ms).Err()
}

// BlockingPop rounds timeout up to whole seconds.
func (b *RedisBroker) BlockingPop(ctx context.Context, list string, timeout time.Duration) ([]byte, error) {
	res, err := b.client.BLPop(ctx, secondsCeil(timeout), list).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoItem
	}
	if err != nil {
		return nil, err
	}
	// BLPOP replies with [list, value].
	if len(res) != 2 {
		return nil, errors.Errorf("unexpected BLPOP reply of %d elements", len(res))
	}
	return []byte(res[1]), nil
}
