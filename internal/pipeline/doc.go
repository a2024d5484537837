// Package pipeline advances store items through the deck processing stages.
//
// The Manager polls the store, reclaims stale work via heartbeats, and feeds
// items into the registered stage handlers (normalize, densify, enrich, sync,
// validate, qa) while capturing progress and failure metadata. Validation and
// QA act as gates: a deck that fails one is parked for manual review instead
// of advancing.
//
// Rendering happens outside this process. The QA stage picks up the extraction
// artifact the renderer leaves in the configured artifact directory; until it
// appears the item stays parked for review with a clear reason.
package pipeline
