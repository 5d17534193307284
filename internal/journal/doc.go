// Package journal records compile runs in SQLite for the command line.
//
// One row per compile: run id, session fingerprint, output format, status,
// artifact digest and size, and the diagnostics of a failed run. Artifacts
// themselves are never stored; the journal is a history, not a cache.
//
// # Ordering
//
// Every entry gets a seq from a logical clock (MAX(seq)+1 inside the insert
// transaction). Listings order by seq, never by timestamps.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - single connection: SQLite allows one writer
package journal
