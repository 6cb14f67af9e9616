package segment

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"himyc/internal/corpus"
)

var speakerPrefix = regexp.MustCompile(`^([\p{Lu}][\p{L}'.\-]*(?: [\p{L}'.\-]+){0,2})\s*:\s+`)

// Split dispatches on kind.
func Split(episodeID string, kind corpus.SegmentKind, text string) []corpus.Segment {
	if kind == corpus.KindUtterance {
		return Utterances(episodeID, text)
	}
	return Sentences(episodeID, text)
}

// Sentences splits text on terminal punctuation (. ! ? and the ellipsis
// character) followed by whitespace, and on blank lines. Speaker prefixes
// are stripped from the first sentence of a line and recorded on it.
func Sentences(episodeID string, text string) []corpus.Segment {
	var segments []corpus.Segment
	for _, line := range lines(text) {
		speaker, offset := detectSpeaker(line.text)
		start := offset
		for start < len(line.text) {
			end := sentenceEnd(line.text, start)
			segments = appendSegment(segments, episodeID, corpus.KindSentence, line.start, line.text, start, end, speaker)
			speaker = ""
			start = end
		}
	}
	return segments
}

// Utterances emits one segment per non-empty line.
func Utterances(episodeID string, text string) []corpus.Segment {
	var segments []corpus.Segment
	for _, line := range lines(text) {
		speaker, offset := detectSpeaker(line.text)
		segments = appendSegment(segments, episodeID, corpus.KindUtterance, line.start, line.text, offset, len(line.text), speaker)
	}
	return segments
}

// DetectSpeaker returns the speaker label of a "NAME: text" line and the
// remaining text. ok is false when the line carries no prefix.
func DetectSpeaker(line string) (speaker, rest string, ok bool) {
	speaker, offset := detectSpeaker(line)
	if speaker == "" {
		return "", line, false
	}
	return speaker, line[offset:], true
}

type span struct {
	start int
	text  string
}

func lines(text string) []span {
	var out []span
	pos := 0
	for pos <= len(text) {
		next := strings.IndexByte(text[pos:], '\n')
		end := len(text)
		if next >= 0 {
			end = pos + next
		}
		line := strings.TrimSuffix(text[pos:end], "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, span{start: pos, text: line})
		}
		if next < 0 {
			break
		}
		pos = end + 1
	}
	return out
}

func detectSpeaker(line string) (string, int) {
	trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
	lead := len(line) - len(trimmed)
	m := speakerPrefix.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return "", 0
	}
	if strings.TrimSpace(trimmed[m[1]:]) == "" {
		return "", 0
	}
	return trimmed[m[2]:m[3]], lead + m[1]
}

func sentenceEnd(line string, start int) int {
	i := start
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		i += size
		if r != '.' && r != '!' && r != '?' && r != '…' {
			continue
		}
		for i < len(line) {
			next, nsize := utf8.DecodeRuneInString(line[i:])
			if next != '.' && next != '!' && next != '?' && next != '…' && next != '"' && next != '\'' && next != ')' {
				break
			}
			i += nsize
		}
		if i >= len(line) {
			return len(line)
		}
		if next, _ := utf8.DecodeRuneInString(line[i:]); unicode.IsSpace(next) {
			return i
		}
	}
	return len(line)
}

func appendSegment(segments []corpus.Segment, episodeID string, kind corpus.SegmentKind, base int, line string, start, end int, speaker string) []corpus.Segment {
	raw := line[start:end]
	trimmedLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)
	text := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	if text == "" {
		return segments
	}
	from := base + start + len(raw) - len(trimmedLeft)
	return append(segments, corpus.Segment{
		EpisodeID:       episodeID,
		Kind:            kind,
		N:               len(segments),
		StartChar:       from,
		EndChar:         from + len(text),
		Text:            text,
		SpeakerExplicit: speaker,
	})
}
