package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-redis-rpc/internal/handlers"
	"github.com/mrjvadi/go-redis-rpc/rpc"
)

func (a *app) newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Serve the demo workers until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			callType, _ := cmd.Flags().GetString("type")
			modeName, _ := cmd.Flags().GetString("mode")
			interval, _ := cmd.Flags().GetDuration("metrics-interval")
			drain, _ := cmd.Flags().GetDuration("drain")

			mode, ok := rpc.ParseMode(modeName)
			if !ok {
				return errors.Errorf("unknown mode %q", modeName)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scope, closer := tally.NewRootScope(tally.ScopeOptions{
				Prefix:   "redisrpc",
				Reporter: newLogReporter(a.logger),
			}, interval)
			defer closer.Close()

			c, err := a.connect(ctx, scope, a.cfg.RedisOptions())
			if err != nil {
				return err
			}
			if err := handlers.New(a.logger).Register(c.RPC, callType, mode); err != nil {
				return multierr.Combine(err, c.Close())
			}

			a.logger.Info("serving",
				zap.String("type", callType),
				zap.Stringer("mode", mode),
				zap.String("prefix", c.Prefix()),
				zap.String("client_id", c.ClientID()))
			<-ctx.Done()
			a.logger.Info("shutting down")

			err = c.Close()
			waitCtx, cancel := context.WithTimeout(context.Background(), drain)
			defer cancel()
			if werr := c.Wait(waitCtx); werr != nil {
				a.logger.Warn("workers still running at exit",
					zap.Int64("in_flight", c.InFlight()), zap.Error(werr))
			}
			return err
		},
	}

	cmd.Flags().String("type", "call", "call type served by the done worker")
	cmd.Flags().String("mode", rpc.ModeWait.String(), "handler mode: wait, strong or unlimited")
	cmd.Flags().Duration("metrics-interval", 10*time.Second, "how often metrics are logged")
	cmd.Flags().Duration("drain", 5*time.Second, "how long to wait for running workers on exit")
	cmd.Flags().Duration("poll-timeout", 5*time.Second, "bound on each blocking pop")
	a.bindFlags(cmd, map[string]string{
		"rpc.poll_timeout": "poll-timeout",
	})
	return cmd
}
