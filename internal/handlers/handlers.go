// Package handlers holds the demo workers served by `redisrpc worker`.
package handlers

import (
	"time"

	"emperror.dev/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mrjvadi/go-redis-rpc/rpc"
)

// DoneReply is what Done answers.
const DoneReply = "call's done"

// Set is the collection of demo workers.
type Set struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{logger: logger}
}

// Register serves Done on callType and the rest under the "demo" group,
// all in the given mode.
func (s *Set) Register(r *rpc.RPC, callType string, mode rpc.Mode) error {
	demo := r.Group("demo")
	return multierr.Combine(
		r.HandleMode(callType, mode, s.Done),
		demo.HandleMode("echo", mode, s.Echo),
		demo.HandleMode("sum", mode, s.Sum),
		demo.HandleMode("sleep", mode, s.Sleep),
	)
}

// Done ignores its arguments.
func (s *Set) Done(c *rpc.Context) (any, error) {
	s.logger.Debug("call", zap.String("type", c.Type()))
	return DoneReply, nil
}

// Echo answers with its arguments.
func (s *Set) Echo(c *rpc.Context) (any, error) {
	return c.Args(), nil
}

type SumRequest struct {
	Numbers []float64 `json:"numbers"`
}

type SumResponse struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

func (s *Set) Sum(c *rpc.Context) (any, error) {
	var req SumRequest
	if err := c.Bind(&req); err != nil {
		return nil, errors.Wrap(err, "bind sum request")
	}
	resp := SumResponse{Count: len(req.Numbers)}
	for _, n := range req.Numbers {
		resp.Sum += n
	}
	return resp, nil
}

type SleepRequest struct {
	Duration string `json:"duration"`
}

// Sleep waits for the requested duration, or until the instance closes.
func (s *Set) Sleep(c *rpc.Context) (any, error) {
	var req SleepRequest
	if err := c.Bind(&req); err != nil {
		return nil, errors.Wrap(err, "bind sleep request")
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		return nil, errors.WithDetails(err, "duration", req.Duration)
	}

	s.logger.Info("sleeping", zap.Duration("duration", d))
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return map[string]string{"slept": d.String()}, nil
	case <-c.Ctx().Done():
		return nil, c.Ctx().Err()
	}
}
