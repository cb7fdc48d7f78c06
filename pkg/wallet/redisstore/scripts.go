package redisstore

import "github.com/redis/go-redis/v9"

// consumeScript rolls a stale counter over, checks the limit and increments
// in one step. A missing wallet returns nil (redis.Nil).
//
// KEYS[1] wallet hash; ARGV[1] count; ARGV[2] today; ARGV[3] updated_at.
// Returns {allowed(0|1), used, limit}.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return nil
end
local vals = redis.call('HMGET', KEYS[1], 'daily_builds_used', 'daily_builds_limit', 'daily_builds_reset_at')
local used = tonumber(vals[1]) or 0
local limit = tonumber(vals[2]) or 0
if vals[3] ~= ARGV[2] then
  used = 0
end
local count = tonumber(ARGV[1])
if used + count > limit then
  return {0, used, limit}
end
used = used + count
redis.call('HSET', KEYS[1], 'daily_builds_used', used, 'daily_builds_reset_at', ARGV[2], 'updated_at', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'version', 1)
return {1, used, limit}
`)

// refundScript rolls a stale counter over and decrements, saturating at
// zero.
//
// KEYS[1] wallet hash; ARGV[1] count; ARGV[2] today; ARGV[3] updated_at.
// Returns {previous, used}.
var refundScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return nil
end
local vals = redis.call('HMGET', KEYS[1], 'daily_builds_used', 'daily_builds_reset_at')
local prev = tonumber(vals[1]) or 0
if vals[2] ~= ARGV[2] then
  prev = 0
end
local used = math.max(0, prev - tonumber(ARGV[1]))
redis.call('HSET', KEYS[1], 'daily_builds_used', used, 'daily_builds_reset_at', ARGV[2], 'updated_at', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'version', 1)
return {prev, used}
`)

// replaceScript overwrites plan state when the stored version matches.
//
// KEYS[1] wallet hash; ARGV[1] expected version; ARGV[2..] field/value pairs.
// Returns the new version, 0 on a version mismatch, -1 when missing.
var replaceScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if redis.call('HGET', KEYS[1], 'version') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
return redis.call('HINCRBY', KEYS[1], 'version', 1)
`)

// createScript inserts the wallet unless one exists.
//
// KEYS[1] wallet hash; ARGV field/value pairs. Returns 1 when inserted.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)
