// Package localstore is a SQLite-backed implementation of the confluence
// store interfaces.
//
// It exists so the whole sync pipeline can run against a local mirror: the
// CLI's --local flag points here instead of at a real Confluence instance,
// which is how you preview a checklist rollout or run the full stack in
// integration tests without network access. Version-conflict semantics
// match the REST client exactly (conditional update on the expected
// version), so the syncer's retry path behaves identically on both.
//
// Database configuration follows the usual SQLite conventions for a
// single-writer CLI: WAL mode, NORMAL synchronous, busy timeout, foreign
// keys on, one connection.
package localstore
