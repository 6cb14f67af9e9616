package subtitles

import (
	"strconv"
	"strings"
)

func parseVTT(content string) []Entry {
	var entries []Entry
	for i, lines := range splitBlocks(content) {
		if i == 0 && strings.HasPrefix(lines[0], "WEBVTT") {
			continue
		}
		switch {
		case strings.HasPrefix(lines[0], "NOTE"),
			strings.HasPrefix(lines[0], "STYLE"),
			strings.HasPrefix(lines[0], "REGION"):
			continue
		}
		timing := 0
		if !strings.Contains(lines[0], "-->") {
			// Optional cue identifier.
			timing = 1
		}
		if timing >= len(lines) || !strings.Contains(lines[timing], "-->") {
			continue
		}
		start, end, ok := parseTiming(lines[timing])
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			StartMS: start,
			EndMS:   end,
			Text:    strings.Join(lines[timing+1:], "\n"),
		})
	}
	return entries
}

func formatVTT(entries []Entry) []byte {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n")
	for i, entry := range entries {
		sb.WriteString("\n")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(entry.StartMS, '.'))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(entry.EndMS, '.'))
		sb.WriteString("\n")
		sb.WriteString(entry.Text)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}
