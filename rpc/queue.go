package rpc

import "strings"

// DefaultPrefix is prepended to every queue name.
const DefaultPrefix = "redis_rpc:"

// TypeQueue returns the list name holding pending calls of callType.
func TypeQueue(prefix, callType string) string {
	return prefix + escapeComponent(callType)
}

// ResponseQueue returns the list name dedicated to the reply of one call.
func ResponseQueue(prefix, clientID, callID string) string {
	return prefix + clientID + ":" + callID
}

func (r *RPC) typeQueue(callType string) string {
	return TypeQueue(r.prefix, callType)
}

func (r *RPC) responseQueue(callID string) string {
	return ResponseQueue(r.prefix, r.clientID, callID)
}

const upperhex = "0123456789ABCDEF"

// escapeComponent percent-encodes s the way encodeURIComponent does, so
// queue names agree with callers written in other languages. url.QueryEscape
// differs on space and on !'()*.
func escapeComponent(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !unreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
