// Package storage provides ledger persistence backends.
//
// # Backends
//
//   - SQLite: durable single-file storage, the default for quaestor. Uses
//     WAL mode with a single writer connection, prepared statements and
//     periodic passive checkpoints.
//   - Memory: volatile storage for tests and ephemeral runs.
//
// # Locking
//
// The SQLite backend takes an advisory lock file next to the database when
// it opens, with a bounded wait, so two quaestor processes cannot serve the
// same ledger concurrently. In-database lock waits are bounded separately
// by SQLite's busy_timeout. Both failure modes surface as
// *ledger.StorageError.
package storage
