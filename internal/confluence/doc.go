// Package confluence defines the store interfaces the sync pipeline writes
// through, and a REST client implementing them against Confluence Cloud.
//
// The pipeline only ever sees the three small interfaces (DocumentStore,
// LabelStore, PropertyStore) plus the typed error taxonomy; everything about
// HTTP, authentication, and Confluence's JSON shapes stays inside Client.
// internal/localstore implements the same interfaces over SQLite, and
// internal/testutil implements them in memory for tests.
//
// Version handling follows Confluence's optimistic concurrency: a write
// carries the version the caller last read, the server accepts it only if
// that is still current, and a stale write surfaces as ConflictError. Retry
// policy is the caller's problem (see internal/syncer).
package confluence
