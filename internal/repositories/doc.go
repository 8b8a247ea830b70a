// Package repositories implements SQLite persistence for the sync run journal.
//
// Key Implementations:
//   - [RunRepository] : one row per applied batch in runs, one row per planned item in run_outcomes
//
// Dry runs never reach the journal. Outcome rows are written in a single transaction with the final
// run counters, so a run is either still "running" or carries its complete outcome list.
package repositories
