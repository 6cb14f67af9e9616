package subtitles

import (
	"fmt"
	"strconv"
	"strings"
)

// parseTimestamp accepts HH:MM:SS,mmm, HH:MM:SS.mmm, and the WebVTT short
// form MM:SS.mmm, returning milliseconds.
func parseTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	value = strings.ReplaceAll(value, ",", ".")
	clock, fraction, _ := strings.Cut(value, ".")
	parts := strings.Split(clock, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(parts[0])
	minutes, errM := strconv.Atoi(parts[1])
	seconds, errS := strconv.Atoi(parts[2])
	if errH != nil || errM != nil || errS != nil || hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	var millis int
	if fraction != "" {
		if len(fraction) > 3 {
			fraction = fraction[:3]
		}
		for len(fraction) < 3 {
			fraction += "0"
		}
		var err error
		if millis, err = strconv.Atoi(fraction); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
	}
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(millis), nil
}

// parseTiming splits a "start --> end [settings]" line.
func parseTiming(line string) (int64, int64, bool) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, false
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, false
	}
	start, err := parseTimestamp(left)
	if err != nil {
		return 0, 0, false
	}
	end, err := parseTimestamp(fields[0])
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}

func formatTimestamp(ms int64, sep byte) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	seconds := ms / 1000
	ms -= seconds * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, ms)
}
