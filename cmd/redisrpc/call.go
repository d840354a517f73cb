package main

import (
	"encoding/json"
	"fmt"

	"emperror.dev/errors"
	"github.com/spf13/cobra"
	"github.com/uber-go/tally"
)

func (a *app) newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <type> [json-args]",
		Short: "Send a call and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := jsonArg(args)
			if err != nil {
				return err
			}
			timeout := a.cfg.RPC.Timeout
			if cmd.Flags().Changed("timeout") {
				timeout, _ = cmd.Flags().GetDuration("timeout")
			}

			c, err := a.connect(cmd.Context(), tally.NoopScope, a.cfg.RedisOptions())
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Send(cmd.Context(), args[0], callArgs, timeout)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(res))
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 0, "how long to wait for the result (default rpc.timeout)")
	return cmd
}

func (a *app) newFireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fire <type> [json-args]",
		Short: "Push a call that expects no reply",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := jsonArg(args)
			if err != nil {
				return err
			}

			c, err := a.connect(cmd.Context(), tally.NoopScope, a.cfg.RedisOptions())
			if err != nil {
				return err
			}
			defer c.Close()

			return c.Fire(cmd.Context(), args[0], callArgs)
		},
	}
}

// jsonArg returns the optional second argument as raw JSON.
func jsonArg(args []string) (json.RawMessage, error) {
	if len(args) < 2 {
		return nil, nil
	}
	raw := json.RawMessage(args[1])
	if !json.Valid(raw) {
		return nil, errors.Errorf("arguments are not valid JSON: %s", args[1])
	}
	return raw, nil
}
