package subtitles

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zeebo/blake3"

	"himyc/internal/corpus"
)

// Format names a subtitle file format.
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ErrNoCues reports a non-empty file without a single parseable cue.
var ErrNoCues = errors.New("no subtitle cues found")

// ParseFormat validates a format name.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))); f {
	case FormatSRT, FormatVTT:
		return f, nil
	}
	return "", fmt.Errorf("unsupported subtitle format %q", value)
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// DetectFormat picks the format from the file extension, falling back to
// the WEBVTT signature and then SRT.
func DetectFormat(path string, data []byte) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil {
		return f
	}
	if bytes.HasPrefix(bytes.TrimPrefix(data, []byte("\ufeff")), []byte("WEBVTT")) {
		return FormatVTT
	}
	return FormatSRT
}

// Entry is one parsed subtitle block.
type Entry struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// Parse decodes data in the given format.
func Parse(data []byte, format Format) ([]Entry, error) {
	content := normalizeNewlines(string(data))
	var entries []Entry
	switch format {
	case FormatSRT:
		entries = parseSRT(content)
	case FormatVTT:
		entries = parseVTT(content)
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", format)
	}
	if len(entries) == 0 && strings.TrimSpace(content) != "" && strings.TrimSpace(content) != "WEBVTT" {
		return nil, ErrNoCues
	}
	return entries, nil
}

// Serialize encodes entries in the given format with sequential numbering.
func Serialize(entries []Entry, format Format) ([]byte, error) {
	switch format {
	case FormatSRT:
		return formatSRT(entries), nil
	case FormatVTT:
		return formatVTT(entries), nil
	}
	return nil, fmt.Errorf("unsupported subtitle format %q", format)
}

// File is a subtitle file read from disk and cleaned of advertisements.
// Data and Digest describe the bytes as read, before cleaning.
type File struct {
	Path    string
	Format  Format
	Entries []Entry
	Data    []byte
	Digest  string
	Stats   CleanStats
}

// ReadFile loads, parses, and cleans the subtitle file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitles: %w", err)
	}
	format := DetectFormat(path, data)
	entries, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	kept, stats := RemoveAdvertisements(entries)
	return &File{
		Path:    path,
		Format:  format,
		Entries: kept,
		Data:    data,
		Digest:  Digest(data),
		Stats:   stats,
	}, nil
}

// CuesFromEntries converts parsed entries into ordered cues of one track.
func CuesFromEntries(episodeID, lang string, entries []Entry) []corpus.Cue {
	lang = corpus.NormalizeLang(lang)
	cues := make([]corpus.Cue, len(entries))
	for i, entry := range entries {
		cues[i] = corpus.Cue{
			EpisodeID: episodeID,
			Lang:      lang,
			N:         i,
			StartMS:   entry.StartMS,
			EndMS:     entry.EndMS,
			TextRaw:   entry.Text,
			TextClean: CleanText(entry.Text),
		}
	}
	return cues
}

// EntriesFromCues converts stored cues back into entries, preferring the
// cleaned text.
func EntriesFromCues(cues []corpus.Cue) []Entry {
	entries := make([]Entry, len(cues))
	for i, cue := range cues {
		entries[i] = Entry{StartMS: cue.StartMS, EndMS: cue.EndMS, Text: cue.Text()}
	}
	return entries
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%x", sum[:])
}

func normalizeNewlines(content string) string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// splitBlocks groups lines separated by blank (or whitespace-only) lines.
func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}
