package corpus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidID reports a malformed segment or cue identifier.
var ErrInvalidID = errors.New("invalid identifier")

// SegmentKind distinguishes the two segment populations of an episode.
type SegmentKind string

const (
	KindSentence  SegmentKind = "sentence"
	KindUtterance SegmentKind = "utterance"
)

// Valid reports whether k is a known segment kind.
func (k SegmentKind) Valid() bool {
	return k == KindSentence || k == KindUtterance
}

// ParseSegmentKind normalizes and validates a segment kind.
func ParseSegmentKind(value string) (SegmentKind, error) {
	kind := SegmentKind(strings.ToLower(strings.TrimSpace(value)))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown segment kind %q", ErrInvalidID, value)
	}
	return kind, nil
}

// SegmentID identifies one segment of an episode.
type SegmentID struct {
	EpisodeID string
	Kind      SegmentKind
	N         int
}

func (id SegmentID) String() string {
	return id.EpisodeID + ":" + string(id.Kind) + ":" + strconv.Itoa(id.N)
}

// IsZero reports whether id is the zero value.
func (id SegmentID) IsZero() bool {
	return id == SegmentID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id SegmentID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *SegmentID) UnmarshalText(text []byte) error {
	parsed, err := ParseSegmentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSegmentID parses "{episode}:{kind}:{n}". Episode ids may themselves
// contain colons; the kind and ordinal are taken from the last two fields.
func ParseSegmentID(value string) (SegmentID, error) {
	episode, middle, n, err := splitID(value)
	if err != nil {
		return SegmentID{}, err
	}
	kind, err := ParseSegmentKind(middle)
	if err != nil {
		return SegmentID{}, fmt.Errorf("%w: segment id %q", ErrInvalidID, value)
	}
	return SegmentID{EpisodeID: episode, Kind: kind, N: n}, nil
}

// CueID identifies one cue of an episode's subtitle track.
type CueID struct {
	EpisodeID string
	Lang      string
	N         int
}

func (id CueID) String() string {
	return id.EpisodeID + ":" + id.Lang + ":" + strconv.Itoa(id.N)
}

// IsZero reports whether id is the zero value.
func (id CueID) IsZero() bool {
	return id == CueID{}
}

// MarshalText implements encoding.TextMarshaler.
func (id CueID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *CueID) UnmarshalText(text []byte) error {
	parsed, err := ParseCueID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseCueID parses "{episode}:{lang}:{n}".
func ParseCueID(value string) (CueID, error) {
	episode, lang, n, err := splitID(value)
	if err != nil {
		return CueID{}, err
	}
	lang = NormalizeLang(lang)
	if lang == "" {
		return CueID{}, fmt.Errorf("%w: cue id %q has no language", ErrInvalidID, value)
	}
	return CueID{EpisodeID: episode, Lang: lang, N: n}, nil
}

// NormalizeLang lowercases and trims a language code.
func NormalizeLang(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// TrackID returns the identifier of the (episode, lang) subtitle track.
func TrackID(episodeID, lang string) string {
	return episodeID + ":" + NormalizeLang(lang)
}

func splitID(value string) (string, string, int, error) {
	value = strings.TrimSpace(value)
	last := strings.LastIndexByte(value, ':')
	if last <= 0 {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	mid := strings.LastIndexByte(value[:last], ':')
	if mid <= 0 {
		return "", "", 0, fmt.Errorf("%w: %q", ErrInvalidID, value)
	}
	n, err := strconv.Atoi(value[last+1:])
	if err != nil || n < 0 {
		return "", "", 0, fmt.Errorf("%w: %q has a bad ordinal", ErrInvalidID, value)
	}
	return value[:mid], value[mid+1 : last], n, nil
}
