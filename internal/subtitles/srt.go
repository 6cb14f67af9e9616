package subtitles

import (
	"strconv"
	"strings"
)

func parseSRT(content string) []Entry {
	var entries []Entry
	for _, lines := range splitBlocks(content) {
		start := 0
		if isNumeric(lines[0]) && len(lines) > 1 {
			start++
		}
		if !strings.Contains(lines[start], "-->") {
			continue
		}
		begin, end, ok := parseTiming(lines[start])
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			StartMS: begin,
			EndMS:   end,
			Text:    strings.Join(lines[start+1:], "\n"),
		})
	}
	return entries
}

func formatSRT(entries []Entry) []byte {
	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(entry.StartMS, ','))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(entry.EndMS, ','))
		sb.WriteString("\n")
		sb.WriteString(entry.Text)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

func isNumeric(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}
