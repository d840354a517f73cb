package rpc

import "github.com/redis/go-redis/v9"

// Append a reply and (re)arm the list TTL in milliseconds, so a reply nobody
// reads does not outlive the call it answers.
const scriptPushExpire = `
local n = redis.call('RPUSH', KEYS[1], ARGV[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return n
`

var pushExpireLua = redis.NewScript(scriptPushExpire)
