// Package journal keeps a local SQLite history of backend notifications.
//
// The watch command registers Recorder as a general listener so every
// notification the router delivers is appended with the session that
// received it. History is transient: Prune drops entries older than the
// configured retention, and schema changes bump schemaVersion in schema.go
// rather than migrating old databases.
package journal
