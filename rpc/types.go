package rpc

import (
	"context"
	"encoding/json"
)

// Call is the envelope pushed to a type queue. The JSON field names are
// shared by every caller and worker process.
type Call struct {
	Type          string          `json:"type"`
	Args          json.RawMessage `json:"args,omitempty"`
	ResponseQueue string          `json:"responseQueue,omitempty"`
	Timeout       int64           `json:"timeout,omitempty"`
	ClientID      string          `json:"clientId,omitempty"`

	// Arguments is read when Args is absent; older workers and producers
	// used this name.
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// RawArgs returns the raw call arguments, preferring "args".
func (c *Call) RawArgs() json.RawMessage {
	if len(c.Args) > 0 {
		return c.Args
	}
	return c.Arguments
}

// HasResponseQueue reports whether the caller is waiting for a reply.
func (c *Call) HasResponseQueue() bool {
	return c.ResponseQueue != ""
}

// Result is the envelope pushed to a response queue.
type Result struct {
	ClientID string          `json:"clientId"`
	Result   json.RawMessage `json:"result"`
}

// HandlerFunc handles one call; the returned value is sent back as the
// result when the caller asked for a reply.
type HandlerFunc func(c *Context) (any, error)

// CustomHandlerFunc receives the raw call envelope and the handling
// instance's client ID. Replying, if wanted, is up to the handler (see
// RPC.Reply).
type CustomHandlerFunc func(ctx context.Context, call *Call, clientID string) error

// Mode selects how a HandlerFunc is dispatched.
type Mode int

const (
	// ModeWait waits for the worker before the next pop; the reply push is
	// not awaited.
	ModeWait Mode = iota
	// ModeStrong waits for the worker and the reply push.
	ModeStrong
	// ModeUnlimited pops the next call immediately. No backpressure.
	ModeUnlimited
)

func (m Mode) String() string {
	switch m {
	case ModeWait:
		return "wait"
	case ModeStrong:
		return "strong"
	case ModeUnlimited:
		return "unlimited"
	default:
		return "unknown"
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "wait", "":
		return ModeWait, true
	case "strong":
		return ModeStrong, true
	case "unlimited":
		return ModeUnlimited, true
	}
	return ModeWait, false
}
