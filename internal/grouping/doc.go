// Package grouping derives speaker groups from an alignment run.
//
// Generate walks the pivot segments of a run in order, resolves each one to
// a character (explicit assignment first, then the structural speaker label),
// and merges consecutive segments of the same character into one group
// carrying the pivot and target cue texts reachable through the run's links.
// It only reads: segments, cues, and assignments are never modified.
//
// Results can be cached per run as xz-compressed JSON guarded by a blake3
// digest, and flattened into parallel-corpus rows for export.
package grouping
