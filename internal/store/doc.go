// Package store persists the corpus and its alignment graph in SQLite.
//
// The Store owns episodes, segments, subtitle tracks and their cues, alignment
// runs and links, the character catalog, and character assignments. Links
// reference runs, segments, and cues through foreign keys with ON DELETE
// CASCADE, and every mutation that invalidates an episode's alignments
// (re-segmentation, track re-import, track deletion) deletes that episode's
// runs inside the same transaction. CheckIntegrity verifies the result after
// the fact.
//
// Writes are serialized through a single-writer lock on the Store; reads share
// the lock so they never observe a half-written run. Schema changes bump the
// version in schema.go; users rebuild the database to adopt the new schema.
package store
