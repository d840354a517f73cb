package rpc

import (
	"context"
	"encoding/json"

	"emperror.dev/errors"
)

// Context carries one call into a HandlerFunc.
type Context struct {
	ctx      context.Context
	call     *Call
	clientID string
}

func newContext(ctx context.Context, call *Call, clientID string) *Context {
	return &Context{ctx: ctx, call: call, clientID: clientID}
}

// Bind decodes the call arguments into v.
func (c *Context) Bind(v any) error {
	args := c.call.RawArgs()
	if len(args) == 0 {
		return errors.NewPlain("call has no arguments")
	}
	return json.Unmarshal(args, v)
}

// Args returns the raw JSON arguments.
func (c *Context) Args() json.RawMessage { return c.call.RawArgs() }

func (c *Context) Ctx() context.Context { return c.ctx }

// Type returns the call type.
func (c *Context) Type() string { return c.call.Type }

// Call returns the decoded envelope.
func (c *Context) Call() *Call { return c.call }

// ClientID returns the identity of the handling instance.
func (c *Context) ClientID() string { return c.clientID }
