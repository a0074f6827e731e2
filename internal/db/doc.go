// Package db owns the clipforge SQLite connection: pragmas, schema
// initialization, and retry helpers for transient SQLITE_BUSY failures.
//
// The job queue, the orchestration ledger, and the media catalog all share
// one database file so cross-table reads stay consistent. Schema changes bump
// the version in schema.go; users clear the database to adopt a new schema.
package db
