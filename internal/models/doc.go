// Package models defines the lesson sync data model shared by the planner, pairing resolver, request executor and orchestrator.
//
// Remote snapshots:
//   - [ItemDescriptor] : read-only view of one remote lesson
//   - [CollectionSnapshot] : ordered lessons of one collection, fetched fresh per run
//
// Planned work:
//   - [MoveOperation] : single "move to position" patch, meaningful only in emitted order
//   - [PairingCandidate] : matched (or unmatched) local text/audio paths
//
// Outcomes:
//   - [RequestOutcome] : classification of one HTTP exchange
//   - [ItemOutcome] : per-item result recorded by a batch
package models
