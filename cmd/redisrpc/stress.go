package main

import (
	"fmt"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-redis-rpc/rpc"
)

// maxStressPool bounds the pool derived from --count, below the default
// maxclients of a Redis server.
const maxStressPool = 1024

// stressPoolSize is about twice the concurrency, unless redis.pool_size
// asks for more.
func stressPoolSize(count, configured int) int {
	size := 2 * count
	if size > maxStressPool {
		size = maxStressPool
	}
	if configured > size {
		size = configured
	}
	return size
}

func (a *app) newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Send many concurrent calls and report how long they took",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			callType, _ := cmd.Flags().GetString("type")
			if count <= 0 {
				return errors.Errorf("count must be positive, got %d", count)
			}
			timeout := 10 * time.Millisecond * time.Duration(count)

			opts := a.cfg.RedisOptions()
			opts.PoolSize = stressPoolSize(count, a.cfg.Redis.PoolSize)

			scope := tally.NewTestScope("redisrpc", nil)
			c, err := a.connect(cmd.Context(), scope, opts)
			if err != nil {
				return err
			}
			defer c.Close()

			var (
				mu   sync.Mutex
				errs error
				wg   sync.WaitGroup
			)
			start := time.Now()
			for i := 0; i < count; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if _, err := c.Send(cmd.Context(), callType, i, timeout); err != nil {
						mu.Lock()
						errs = multierr.Append(errs, errors.WithDetails(err, "call", i))
						mu.Unlock()
					}
				}(i)
			}
			wg.Wait()
			elapsed := time.Since(start)

			backlog, err := c.rdb.LLen(cmd.Context(), rpc.TypeQueue(c.Prefix(), callType)).Result()
			if err != nil {
				a.logger.Warn("cannot read backlog", zap.Error(err))
			}
			failed := len(multierr.Errors(errs))
			fmt.Fprintf(cmd.OutOrStdout(), "test (%d) messages took %dms, %d failed, %d still queued\n",
				count, elapsed.Milliseconds(), failed, backlog)
			for name, counter := range scope.Snapshot().Counters() {
				a.logger.Debug("counter", zap.String("name", name), zap.Int64("value", counter.Value()))
			}

			if errs != nil {
				return errors.Wrapf(multierr.Errors(errs)[0], "%d of %d calls failed, first", failed, count)
			}
			return nil
		},
	}
	cmd.Flags().Int("count", 10000, "number of concurrent calls")
	cmd.Flags().String("type", "call", "call type to send")
	return cmd
}
