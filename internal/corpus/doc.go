// Package corpus defines the records shared by the alignment pipeline:
// transcript segments, subtitle cues and tracks, the character catalog, and
// character assignments.
//
// Segment and cue identities are typed composite keys. They serialize to the
// legacy "{episode}:{kind}:{n}" and "{episode}:{lang}:{n}" strings only at
// storage and export boundaries; business logic compares the typed keys and
// never relies on string prefixes.
package corpus
