package redisstore

import "github.com/redis/go-redis/v9"

// KEYS[1] is the index key named by the filter.
// ARGV: new id, record prefix, refresh prefix, identity prefix, identity key,
// identity blob, seed refresh, expire-at (unix ms, 0 = none), create ("1" lets a
// missing record be created, anything else returns nil), then field/value pairs.
const upsertScript = `
local id = redis.call("GET", KEYS[1])
local rec
if id then
  rec = ARGV[2] .. id
  if redis.call("EXISTS", rec) == 0 then
    id = false
  end
end
if not id then
  if ARGV[9] ~= "1" then
    return false
  end
  id = ARGV[1]
  rec = ARGV[2] .. id
  redis.call("SET", KEYS[1], id)
  redis.call("HSET", rec, "id", id)
  if ARGV[5] ~= "" then
    redis.call("HSET", rec, "ikey", ARGV[5], "auth", ARGV[6])
  end
  if ARGV[7] ~= "" then
    redis.call("HSET", rec, "refresh", ARGV[7])
  end
end

for i = 10, #ARGV, 2 do
  local field = ARGV[i]
  local value = ARGV[i + 1]
  if field == "refresh" then
    local old = redis.call("HGET", rec, "refresh")
    if old and old ~= value then
      redis.call("DEL", ARGV[3] .. old)
    end
    if value ~= "" then
      redis.call("SET", ARGV[3] .. value, id)
    end
  end
  redis.call("HSET", rec, field, value)
end

local expire_at = tonumber(ARGV[8])
if expire_at > 0 then
  redis.call("PEXPIREAT", rec, expire_at)
  local idx = redis.call("HMGET", rec, "ikey", "refresh")
  if idx[1] and idx[1] ~= "" then
    redis.call("PEXPIREAT", ARGV[4] .. idx[1], expire_at)
  end
  if idx[2] and idx[2] ~= "" then
    redis.call("PEXPIREAT", ARGV[3] .. idx[2], expire_at)
  end
end
return id
`

var upsertLua = redis.NewScript(upsertScript)

// KEYS[1] is the index key named by the filter. ARGV[1] is the record prefix.
const findScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return false
end
local rec = redis.call("HGETALL", ARGV[1] .. id)
if #rec == 0 then
  return false
end
return rec
`

var findLua = redis.NewScript(findScript)

// KEYS[1] is the index key named by the filter.
// ARGV: record prefix, refresh prefix, identity prefix.
const deleteScript = `
local id = redis.call("GET", KEYS[1])
if not id then
  return 0
end
local rec = ARGV[1] .. id
local idx = redis.call("HMGET", rec, "ikey", "refresh")
if idx[1] and idx[1] ~= "" then
  redis.call("DEL", ARGV[3] .. idx[1])
end
if idx[2] and idx[2] ~= "" then
  redis.call("DEL", ARGV[2] .. idx[2])
end
redis.call("DEL", KEYS[1])
return redis.call("DEL", rec)
`

var deleteLua = redis.NewScript(deleteScript)
