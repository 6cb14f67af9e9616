package corpus

import (
	"strings"
	"time"
)

// Segment is one sentence or utterance of a clean transcript.
type Segment struct {
	EpisodeID string
	Kind      SegmentKind
	N         int
	StartChar int
	EndChar   int
	Text      string
	// SpeakerExplicit is only set when a speaker prefix was structurally
	// detected, or written back by propagation.
	SpeakerExplicit string
}

// ID returns the segment's composite key.
func (s Segment) ID() SegmentID {
	return SegmentID{EpisodeID: s.EpisodeID, Kind: s.Kind, N: s.N}
}

// Cue is one timecoded subtitle line.
type Cue struct {
	EpisodeID string
	Lang      string
	N         int
	StartMS   int64
	EndMS     int64
	TextRaw   string
	TextClean string
}

// ID returns the cue's composite key.
func (c Cue) ID() CueID {
	return CueID{EpisodeID: c.EpisodeID, Lang: c.Lang, N: c.N}
}

// Text returns the cleaned text, falling back to the raw text.
func (c Cue) Text() string {
	if strings.TrimSpace(c.TextClean) != "" {
		return c.TextClean
	}
	return c.TextRaw
}

// Track is one subtitle import for an (episode, lang) pair.
type Track struct {
	EpisodeID  string
	Lang       string
	Format     string
	SourcePath string
	FilePath   string
	Digest     string
	ImportedAt time.Time
}

// ID returns the track identifier.
func (t Track) ID() string {
	return TrackID(t.EpisodeID, t.Lang)
}

// Character is a catalog entry with optional per-language display names.
type Character struct {
	ID        string
	Canonical string
	Names     map[string]string
}

// NameFor returns the localized name for lang, falling back to the
// canonical name.
func (c Character) NameFor(lang string) string {
	if name := strings.TrimSpace(c.Names[NormalizeLang(lang)]); name != "" {
		return name
	}
	return c.Canonical
}

// SourceType names what an assignment points at.
type SourceType string

const (
	SourceSegment SourceType = "segment"
	SourceCue     SourceType = "cue"
)

// Assignment maps a segment or cue to a catalog character.
type Assignment struct {
	EpisodeID   string
	SourceType  SourceType
	SourceID    string
	CharacterID string
}
