// Package store provides SQLite-backed storage for the validation journal.
//
// Every finished validation run of a registry configured with a journal is
// appended as one row: which control, which request, how the run ended and
// the error records it produced. The journal is diagnostic; control values
// are never stored and nothing is restored from it.
//
// # Ordering
//
//   - Rows are ordered by seq, the registry's logical clock, never by wall time
//   - Queries include ORDER BY seq ASC, id ASC for identical results across reads
//   - (session, seq) is unique; a re-delivered record is ignored
//
// # Encoding
//
// Error records are stored as msgpack blobs, so nested maps, lists and
// floats survive a round trip without a schema per validator.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: records arrive from many run goroutines
package store
