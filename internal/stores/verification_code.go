package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Version 2 switched the record timestamps from seconds to milliseconds;
	// v1 records are retired as not_found on first touch.
	codeRecordVersion = 2

	// version(1) + issuedAt(8) + expiresAt(8) + codeHash(32)
	codeRecordSize = 49
)

var (
	ErrCodeNotFound         = errors.New("verification code not found")
	ErrCodeExpired          = errors.New("verification code expired")
	ErrCodeMismatch         = errors.New("verification code mismatch")
	ErrCodeRedisUnavailable = errors.New("verification code redis unavailable")
)

// consumeCodeLua atomically performs GET→validate→DEL on a code record.
// KEYS[1] = record key
// ARGV[1] = provided code hash (32 bytes)
// ARGV[2] = current unix time in milliseconds (int string)
//
// Expiry is decided from the timestamp inside the record, not from the key
// TTL: the TTL is only garbage collection and is deliberately longer than the
// code's validity so an expired-but-present record still answers "expired"
// rather than "not found". A code is usable strictly before its expiry
// instant; at or past it, it is expired.
//
// Returns:
//
//	record bytes on success (record deleted)
//	error string: "not_found", "expired" (record deleted), "mismatch" (record kept)
var consumeCodeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local nowMillis = tonumber(ARGV[2])

local version = string.byte(data, 1)
if version ~= 2 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 10, 17)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowMillis >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

local storedHash = string.sub(data, 18, 49)
if storedHash ~= ARGV[1] then
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// VerificationCodeRecord is one issued second-factor code. Only the hash of
// the code is stored. Timestamps are Unix milliseconds.
type VerificationCodeRecord struct {
	CodeHash  [32]byte
	IssuedAt  int64
	ExpiresAt int64
}

// VerificationCodeStore keeps at most one active code per identity. Issuing a
// new code overwrites the previous record, which supersedes any outstanding
// code for that identity.
type VerificationCodeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewVerificationCodeStore(redisClient redis.UniversalClient, prefix string) *VerificationCodeStore {
	if prefix == "" {
		prefix = "avc"
	}
	return &VerificationCodeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *VerificationCodeStore) key(identity string) string {
	return s.prefix + ":" + identity
}

// Save stores a code record for identity, replacing any existing one. The key
// TTL is set past the record's own expiry so verification can distinguish an
// expired code from a missing one.
func (s *VerificationCodeStore) Save(
	ctx context.Context,
	identity string,
	record *VerificationCodeRecord,
	ttl time.Duration,
) error {
	encoded, err := encodeVerificationCodeRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(identity), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
	}

	return nil
}

// Consume validates providedHash against the stored record. On success and on
// expiry the record is deleted; on mismatch it is left in place so the user
// can retry within the code's window.
func (s *VerificationCodeStore) Consume(
	ctx context.Context,
	identity string,
	providedHash [32]byte,
) (*VerificationCodeRecord, error) {
	key := s.key(identity)
	nowMillis := time.Now().UnixMilli()

	result, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{key},
		string(providedHash[:]),
		nowMillis,
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found":
			return nil, ErrCodeNotFound
		case "expired":
			return nil, ErrCodeExpired
		case "mismatch":
			return nil, ErrCodeMismatch
		default:
			return nil, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected lua result type", ErrCodeRedisUnavailable)
	}

	record, decErr := decodeVerificationCodeRecord([]byte(data))
	if decErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, decErr)
	}

	// Final constant-time comparison in Go; Lua string comparison is not
	// constant-time.
	if subtle.ConstantTimeCompare(record.CodeHash[:], providedHash[:]) != 1 {
		return nil, ErrCodeMismatch
	}

	return record, nil
}

// Drop removes any stored code for identity.
func (s *VerificationCodeStore) Drop(ctx context.Context, identity string) error {
	if err := s.redis.Del(ctx, s.key(identity)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeRedisUnavailable, err)
	}
	return nil
}

func encodeVerificationCodeRecord(record *VerificationCodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(codeRecordSize)

	buf.WriteByte(codeRecordVersion)
	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeVerificationCodeRecord(data []byte) (*VerificationCodeRecord, error) {
	if len(data) != codeRecordSize {
		return nil, errors.New("invalid verification code record size")
	}

	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersion {
		return nil, errors.New("invalid verification code record version")
	}

	record := &VerificationCodeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
