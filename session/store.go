package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/credlock/credlock/internal"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures so callers
// can distinguish infrastructure trouble from cache misses.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when no record exists for the family.
var ErrSessionNotFound = errors.New("refresh session not found")

// ErrSessionExpired is returned when the record outlived its logical
// expiry but had not yet been evicted.
var ErrSessionExpired = errors.New("refresh session expired")

// ErrSessionRevoked is returned when the family is in its absorbing
// revoked state.
var ErrSessionRevoked = errors.New("refresh session revoked")

// ErrGenerationConflict is returned when the presented generation does
// not match the stored one. The family has already been revoked by the
// time callers see this error.
var ErrGenerationConflict = errors.New("refresh generation conflict")

// ErrSessionCorrupt is returned when the stored blob fails structural
// validation.
var ErrSessionCorrupt = errors.New("refresh session corrupt")

const (
	advanceStatusNotFound int64 = 0
	advanceStatusExpired  int64 = 1
	advanceStatusConflict int64 = 2
	advanceStatusAdvanced int64 = 3
	advanceStatusCorrupt  int64 = 4
	advanceStatusRevoked  int64 = 5
)

// advanceGenerationScript is the compare-and-advance primitive. Offsets
// mirror encoder.go (Lua strings are 1-based): generation at 34..41,
// revoked flag at 42, expires_at at 51..58, user ID length at 59.
//
// On generation mismatch the family is revoked in place, preserving the
// record's TTL, inside the same atomic execution that detected it.
const advanceGenerationScript = `
local function read_be64(s, i)
  local v = 0
  for off = 0, 7 do
    local b = string.byte(s, i + off)
    if not b then
      return nil
    end
    v = v * 256 + b
  end
  return v
end

local function write_be64(n)
  local out = {}
  for off = 8, 1, -1 do
    out[off] = string.char(n % 256)
    n = math.floor(n / 256)
  end
  return table.concat(out)
end

local function revoke_in_place(key, data)
  local updated = string.sub(data, 1, 41) .. string.char(1) .. string.sub(data, 43)
  local ttl = redis.call("PTTL", key)
  if ttl > 0 then
    redis.call("SET", key, updated, "PX", ttl)
  else
    redis.call("SET", key, updated)
  end
end

local key = KEYS[1]
local user_key_prefix = ARGV[1]
local expected_generation = tonumber(ARGV[2])
local next_session_id = ARGV[3]
local family_member = ARGV[4]
local now_unix = tonumber(ARGV[5])

local data = redis.call("GET", key)
if not data then
  return {0}
end

if #data < 59 or string.byte(data, 1) ~= 1 then
  return {4}
end

local generation = read_be64(data, 34)
local expires_at = read_be64(data, 51)
local user_len = string.byte(data, 59)
if not generation or not expires_at or not user_len or #data < 59 + user_len then
  return {4}
end
local user_key = user_key_prefix .. string.sub(data, 60, 59 + user_len)

if string.byte(data, 42) == 1 then
  return {5}
end

if expires_at <= now_unix then
  redis.call("DEL", key)
  redis.call("SREM", user_key, family_member)
  return {1}
end

if generation ~= expected_generation then
  revoke_in_place(key, data)
  return {2}
end

local ttl = redis.call("PTTL", key)
if ttl <= 0 then
  redis.call("DEL", key)
  redis.call("SREM", user_key, family_member)
  return {1}
end

local updated = string.sub(data, 1, 17)
  .. next_session_id
  .. write_be64(expected_generation + 1)
  .. string.sub(data, 42)
redis.call("SET", key, updated, "PX", ttl)

return {3, updated}
`

var advanceGenerationLua = redis.NewScript(advanceGenerationScript)

// revokeFamilyScript flips the revocation flag in place, keeping the
// record and its TTL so later presentations are answered rather than
// missed. Calling it on an absent or already revoked family is a no-op.
const revokeFamilyScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
if #data < 59 or string.byte(data, 1) ~= 1 then
  return -1
end
if string.byte(data, 42) == 1 then
  return 1
end

local updated = string.sub(data, 1, 41) .. string.char(1) .. string.sub(data, 43)
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[1], updated, "PX", ttl)
else
  redis.call("SET", KEYS[1], updated)
end
return 1
`

var revokeFamilyLua = redis.NewScript(revokeFamilyScript)

// Store is a Redis-backed refresh session cache keyed by family ID,
// with a per-user index for cascade revocation.
//
//	Docs: docs/session.md
type Store struct {
	redis     redis.UniversalClient
	prefix    string
	opTimeout time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. opTimeout bounds every Redis
// round-trip; zero disables the per-call deadline.
func NewStore(redisClient redis.UniversalClient, prefix string, opTimeout time.Duration) *Store {
	return &Store{
		redis:     redisClient,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

func (s *Store) key(familyID string) string {
	return s.prefix + ":" + familyID
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":u:" + userID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + ":u:"
}

func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// Save persists a [Session] with the given TTL and registers the family
// in the owning user's index.
//
//	Performance: 3 Redis commands in one transaction.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(sess.FamilyID), data, ttl)
		pipe.SAdd(ctx, s.userKey(sess.UserID), sess.FamilyID)
		// Every family shares the same lifetime, so the newest save
		// always outlives existing members; refreshing the index TTL
		// here keeps abandoned indexes from surviving their families.
		pipe.Expire(ctx, s.userKey(sess.UserID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get retrieves the current session for a family. A missing key maps to
// [ErrSessionNotFound]; a record past its logical expiry is deleted and
// reported as [ErrSessionExpired].
//
//	Performance: 1 Redis GET on the happy path.
func (s *Store) Get(ctx context.Context, familyID string) (*Session, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	data, err := s.redis.Get(ctx, s.key(familyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
	}

	if sess.ExpiresAt <= time.Now().Unix() {
		if err := s.deleteFamily(ctx, sess.UserID, familyID); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	return sess, nil
}

// AdvanceGeneration atomically replaces the family's session with the
// next generation if and only if the stored generation equals
// expectedGeneration. nextSessionID names the replacement record.
//
// Outcomes:
//   - nil error: the advance won; the returned Session is the new state.
//   - [ErrGenerationConflict]: stale or replayed generation; the whole
//     family has been revoked as part of the same atomic operation.
//   - [ErrSessionRevoked]: the family was already terminal.
//   - [ErrSessionNotFound] / [ErrSessionExpired]: nothing to rotate.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) AdvanceGeneration(ctx context.Context, familyID string, expectedGeneration uint64, nextSessionID string) (*Session, error) {
	sid, err := internal.ParseID(nextSessionID)
	if err != nil {
		return nil, errors.New("invalid next session id")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	raw, err := advanceGenerationLua.Run(
		ctx,
		s.redis,
		[]string{s.key(familyID)},
		s.userKeyPrefix(),
		expectedGeneration,
		string(sid.Bytes()),
		familyID,
		time.Now().Unix(),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) == 0 {
		return nil, fmt.Errorf("%w: unexpected script reply", ErrRedisUnavailable)
	}
	status, ok := reply[0].(int64)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected script status", ErrRedisUnavailable)
	}

	switch status {
	case advanceStatusNotFound:
		return nil, ErrSessionNotFound
	case advanceStatusExpired:
		return nil, ErrSessionExpired
	case advanceStatusRevoked:
		return nil, ErrSessionRevoked
	case advanceStatusConflict:
		return nil, ErrGenerationConflict
	case advanceStatusCorrupt:
		return nil, ErrSessionCorrupt
	case advanceStatusAdvanced:
		if len(reply) < 2 {
			return nil, fmt.Errorf("%w: missing advanced blob", ErrRedisUnavailable)
		}
		blob, ok := reply[1].(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected blob type", ErrRedisUnavailable)
		}
		sess, err := Decode([]byte(blob))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionCorrupt, err)
		}
		return sess, nil
	default:
		return nil, fmt.Errorf("%w: unknown script status %d", ErrRedisUnavailable, status)
	}
}

// Revoke marks the family terminally revoked, preserving its TTL.
// Revoking an absent or already revoked family succeeds: logout is
// idempotent by construction.
func (s *Store) Revoke(ctx context.Context, familyID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	status, err := revokeFamilyLua.Run(ctx, s.redis, []string{s.key(familyID)}).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if status < 0 {
		return ErrSessionCorrupt
	}

	return nil
}

// RevokeAllForUser deletes every family belonging to userID along with
// the user index. Used for password changes and account removal.
//
// ATOMICITY NOTE: the index read and the deletes are separate steps. A
// family created between them is not captured; it will expire on its
// own TTL or be caught by a subsequent call. The engine tolerates this
// race because cascade revocation follows a credential change, after
// which the old password can no longer mint new families.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	userKey := s.userKey(userID)

	familyIDs, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, familyID := range familyIDs {
			pipe.Del(ctx, s.key(familyID))
		}
		pipe.Del(ctx, userKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (s *Store) deleteFamily(ctx context.Context, userID, familyID string) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(familyID))
		pipe.SRem(ctx, s.userKey(userID), familyID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping verifies cache connectivity, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
