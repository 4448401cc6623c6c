// Package queue persists batch jobs in SQLite so the daemon can recover its
// job table after a restart.
//
// The Store is deliberately ignorant of workflow semantics: it stores job
// rows with their status string, counters and JSON-encoded file, option and
// output lists. The workflow package owns the state machine and converts its
// Job values to and from Records.
//
// The database is treated as transient storage for recent jobs rather than a
// long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
