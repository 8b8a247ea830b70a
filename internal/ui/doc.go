// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks one [Job] (a reorder or an upload) through its lifecycle:
//  1. [PlanningView] : Fetch the collection and compute the plan
//  2. [PreviewView] : Browse the planned operations, including planned skips
//  3. [ConfirmView] : Confirm before anything is sent
//  4. [ApplyView] : Monitor real-time progress updates
//  5. [ResultView] : Per-item outcomes with links; r plans again from fresh remote state
//
// Progress updates flow through a channel from the lesson engine, providing non-blocking status reporting.
// [Confirm] is the single-question variant used by the non-interactive commands.
package ui
