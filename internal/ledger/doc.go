// Package ledger persists run history and the backup records restore needs in
// SQLite.
//
// Every apply run is a row in runs; every file the run backed up or placed is
// a row in artifacts keyed by run id. Restore walks the un-restored artifacts
// of a game directory newest first and marks each one once it has been
// reverted.
//
// The schema version lives in SQLite's user_version pragma. A database
// stamped with another version is refused with ErrSchemaMismatch; users
// delete history.db to start over.
package ledger
