package main

import (
	"context"
	"fmt"
	"os"

	"emperror.dev/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-redis-rpc/internal/config"
	"github.com/mrjvadi/go-redis-rpc/rpc"
)

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile  string
	settings *viper.Viper
	cfg      *config.Config
	logger   *zap.Logger
}

// newRootCmd builds the command tree with fresh flags and settings.
func newRootCmd() *cobra.Command {
	a := &app{settings: config.New(), logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "redisrpc",
		Short: "Calls and serves RPC over Redis lists",
		Long: `redisrpc sends calls to, and serves calls from, Redis list queues.

Every setting can also be given as REDISRPC_<SECTION>_<KEY>, for example
REDISRPC_REDIS_ADDR, or in a YAML file passed with --config.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML config file")
	flags.String("redis-addr", "localhost:6379", "Redis address")
	flags.Int("redis-db", 0, "Redis database")
	flags.Int("redis-pool-size", 0, "Redis connection pool size (0: go-redis default)")
	flags.String("prefix", rpc.DefaultPrefix, "queue name prefix")
	flags.Bool("log-dev", false, "human readable debug logging")
	a.bindFlags(root, map[string]string{
		"redis.addr":      "redis-addr",
		"redis.db":        "redis-db",
		"redis.pool_size": "redis-pool-size",
		"rpc.prefix":      "prefix",
		"log.dev":         "log-dev",
	})

	root.AddCommand(
		a.newWorkerCmd(),
		a.newCallCmd(),
		a.newFireCmd(),
		a.newStressCmd(),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute(ctx context.Context, args []string) {
	root := newRootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command, args []string) error {
	var err error
	if a.cfg, err = config.Load(a.settings, a.cfgFile); err != nil {
		return err
	}
	if a.cfg.Log.Dev {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	return errors.Wrap(err, "build logger")
}

// bindFlags binds config keys to flags of cmd. A flag only overrides the
// file and env when given on the command line.
func (a *app) bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if err := a.settings.BindPFlag(key, flag); err != nil {
			panic(errors.WrapIfWithDetails(err, "bind flag", "flag", name))
		}
	}
}

// client is a connected RPC instance with its Redis client.
type client struct {
	*rpc.RPC
	rdb *redis.Client
}

func (a *app) connect(ctx context.Context, scope tally.Scope, opts *redis.Options) (*client, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.WrapIfWithDetails(err, "connect to redis", "addr", opts.Addr)
	}

	rpcOpts := append(a.cfg.Options(),
		rpc.WithLogger(a.logger),
		rpc.WithMetrics(scope),
	)
	return &client{RPC: rpc.New(rpc.NewRedisBroker(rdb), rpcOpts...), rdb: rdb}, nil
}

func (c *client) Close() error {
	return multierr.Combine(c.RPC.Close(), c.rdb.Close())
}
