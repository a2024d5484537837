// Package deckstore persists pipeline items in SQLite and exposes helpers
// for driving their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, heartbeat tracking, stuck-item recovery, and status transitions
// that mirror the pipeline stages. Items carry the current deck document,
// the latest gate report, and review flags so stages can coordinate without
// additional state.
//
// The database is treated as transient storage for in-flight decks rather
// than a long-term archive. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package deckstore
