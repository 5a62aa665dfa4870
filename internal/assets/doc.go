// Package assets persists clip metadata in SQLite and exposes the repository
// facade the pipeline talks to.
//
// Store owns the database: connection pragmas, embedded migrations, busy
// retries and the row mapping. Repository sits in front of any Backend and
// normalizes failures into the services error taxonomy, so callers never see
// driver errors. There is no update path: an asset's file, size and duration
// are fixed at creation.
package assets
