// Package store provides the SQLite request journal.
//
// The journal is append-only:
//   - requests: one row per submitted request, written before host work
//   - results: the response delivered to the caller, plus a late row when
//     host work finished after the bridge timed out
//   - transactions: every host transaction a request opened, with its
//     final status and the warnings left after preprocessing
//
// # Ordering
//
// Every table has an AUTOINCREMENT seq column. Queries order by seq, never
// by the submitted_at wall-clock column, which is informational only.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s on lock contention
//   - foreign_keys=ON: results and transactions reference requests
//
// The store is safe for concurrent use: the bridge writes results from the
// caller goroutine while late completions and transactions are written
// from the host goroutine. database/sql serializes them on one connection.
package store
