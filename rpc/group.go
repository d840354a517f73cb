package rpc

import (
	"context"
	"encoding/json"
	"time"
)

// Group namespaces call types: a call type "get" in group "users" is
// "users.get".
type Group struct {
	rpc    *RPC
	prefix string
}

func (r *RPC) Group(prefix string) *Group {
	return &Group{rpc: r, prefix: prefix}
}

func (g *Group) sub(name string) string {
	if g.prefix == "" {
		return name
	}
	if name == "" {
		return g.prefix
	}
	return g.prefix + "." + name
}

func (g *Group) Group(suffix string) *Group {
	return &Group{rpc: g.rpc, prefix: g.sub(suffix)}
}

// Name returns the full call type of name within g.
func (g *Group) Name(name string) string { return g.sub(name) }

func (g *Group) Handle(name string, h HandlerFunc) error {
	return g.rpc.Handle(g.sub(name), h)
}

func (g *Group) HandleStrong(name string, h HandlerFunc) error {
	return g.rpc.HandleStrong(g.sub(name), h)
}

func (g *Group) HandleUnlimited(name string, h HandlerFunc) error {
	return g.rpc.HandleUnlimited(g.sub(name), h)
}

func (g *Group) HandleMode(name string, mode Mode, h HandlerFunc) error {
	return g.rpc.HandleMode(g.sub(name), mode, h)
}

func (g *Group) HandleCustom(name string, h CustomHandlerFunc) error {
	return g.rpc.HandleCustom(g.sub(name), h)
}

func (g *Group) Unregister(name string) bool {
	return g.rpc.Unregister(g.sub(name))
}

func (g *Group) Send(ctx context.Context, name string, args any, timeout time.Duration) (json.RawMessage, error) {
	return g.rpc.Send(ctx, g.sub(name), args, timeout)
}

func (g *Group) Call(ctx context.Context, name string, args any, timeout time.Duration, out any) error {
	return g.rpc.Call(ctx, g.sub(name), args, timeout, out)
}

func (g *Group) Fire(ctx context.Context, name string, args any) error {
	return g.rpc.Fire(ctx, g.sub(name), args)
}
