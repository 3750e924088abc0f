// Package audit implements async event recording for security-relevant operations.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, Redis stream, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured security record with timestamp, type, identity, detail, IP.
//   - [RedisStreamSink] — durable primary sink with a mandatory fallback writer.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit or which ones warrant alerting — that responsibility belongs to
// the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Return errors to callers: recording is best-effort and a persistence
//     failure degrades to the fallback sink, never to the caller.
//   - Import authgate or any sibling internal package.
package audit
