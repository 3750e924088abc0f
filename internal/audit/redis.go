package audit

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultStream is the Redis stream key security events are appended to.
	DefaultStream = "aud:events"

	defaultMaxLen = 100_000
)

// RedisStreamSink appends events to a capped Redis stream. A persistence
// failure falls through to the fallback sink so no event is ever lost
// silently; the caller's flow is unaffected either way.
type RedisStreamSink struct {
	redis    redis.UniversalClient
	stream   string
	maxLen   int64
	fallback Sink
}

// NewRedisStreamSink creates a stream-backed sink. fallback must be an
// always-available sink (typically a JSONWriterSink over stderr); a nil
// fallback degrades to NoOpSink.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64, fallback Sink) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	if fallback == nil {
		fallback = NoOpSink{}
	}
	return &RedisStreamSink{
		redis:    client,
		stream:   stream,
		maxLen:   maxLen,
		fallback: fallback,
	}
}

func (s *RedisStreamSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.redis == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	err = s.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type":  event.EventType,
			"event": payload,
		},
	}).Err()
	if err != nil {
		s.fallback.Emit(ctx, event)
	}
}

// Tail returns up to n most recent events from the stream, newest first.
// Entries that fail to decode are skipped.
func (s *RedisStreamSink) Tail(ctx context.Context, n int64) ([]Event, error) {
	if s == nil || s.redis == nil || n <= 0 {
		return nil, nil
	}

	msgs, err := s.redis.XRevRangeN(ctx, s.stream, "+", "-", n).Result()
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["event"].(string)
		if !ok {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
