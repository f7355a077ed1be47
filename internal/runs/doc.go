// Package runs persists pipeline run history in SQLite.
//
// The Store manages the database connection, schema initialization, and the
// status transitions a run moves through (transcribing, filtering, completed,
// failed). The database is a lightweight audit trail for `asrsift runs`, not
// an archive; schema changes bump the version in schema.go and users delete
// the database to adopt the new schema.
package runs
