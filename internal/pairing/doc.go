// Package pairing matches two unordered sets of local lesson assets (texts and audios) into lesson-sized units.
//
// Strategies:
//   - [Positional] : zip in input order
//   - [SortedPositional] : natural-sort both sides ("2" before "10"), then zip
//   - [Exact] : equal file stems, first unused match wins
//   - [Fuzzy] : smallest Levenshtein distance between stems, greedy left to right, rejected above a threshold
//
// Every path appears in exactly one [models.PairingCandidate]. Paths left over on either side
// become single-sided candidates; leftover right paths follow the left-driven candidates in their input order.
package pairing
