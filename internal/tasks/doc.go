// Package tasks orchestrates lesson collection sync with real-time progress reporting.
//
// # Core Operations
//
// The [SyncEngine] interface splits every operation into a plan step and an apply step,
// so callers can preview a plan and ask for confirmation in between:
//
//  1. [SyncEngine.PlanReorder] / [SyncEngine.ApplyReorder] : reorder a collection
//     - Fetches every lesson of the collection (cursor pagination)
//     - Resolves the desired order from a manifest, or from numeric title prefixes
//     - Plans the minimal single-lesson moves and replays them locally as a self check
//     - Applies the moves strictly in plan order, one at a time
//
//  2. [SyncEngine.PlanUpload] / [SyncEngine.ApplyUpload] : create lessons from local files
//     - Pairs text files with audio files using a pairing strategy
//     - Skips unsupported extensions, audio without text, and titles already in the collection
//     - Posts the remaining lessons through a bounded worker pool
//
// # Failure Handling
//
// Item-scoped failures (not found, rejected, retries exhausted) are recorded in the [BatchResult]
// and the batch continues. Run-fatal errors (invalid credentials, schema drift, cancellation)
// stop the batch; untouched items are reported as skipped.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run Journal
//
// The optional [Journal] interface records every applied batch with its per-item outcomes.
// Journal errors are logged and never interrupt a batch.
package tasks
