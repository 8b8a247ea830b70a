// Package planner computes minimal reorder plans for a remote collection that only supports single-item position patches.
//
// [Plan] maps the current order through the rank of each id in the desired order and keeps the
// longest strictly increasing subsequence of that rank sequence in place. Every other id is moved
// exactly once, in ascending desired rank, to the slot right after its closest already-placed
// predecessor. The number of moves is therefore n minus the LIS length, which is the minimum
// for any sequence of single-item moves.
//
// [Apply] replays moves against a list the way the platform does (remove, insert at the 1-based
// target, renumber) and is used to verify plans before anything is sent.
//
// Desired orders come from [TitleOrder] (versioned numeric title prefixes) or from a
// YAML manifest via [LoadManifest] and [Manifest.Resolve].
package planner
