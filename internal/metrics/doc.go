// Package metrics provides lock-free counters for authgate observability.
//
// # Design
//
// Counters are stored in fixed uint64 slots and incremented atomically via
// [sync/atomic.AddUint64]. The write path is allocation-free.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import authgate or any sibling package.
//   - Expose global metric registries.
package metrics
