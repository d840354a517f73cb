package rpc

import "github.com/google/uuid"

// newClientID returns the identity of one RPC instance. Random v4 UUIDs keep
// response queues of concurrent processes apart.
func newClientID() string {
	return uuid.NewString()
}

func newCallID() string {
	return uuid.NewString()
}
