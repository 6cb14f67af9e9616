package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"himyc/internal/logging"
)

// Entry is one decoded log line.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	EpisodeID string
	RunID     string
	EventType string
	// Fields holds the remaining attributes.
	Fields map[string]any
	Raw    string
}

var reserved = map[string]struct{}{
	"ts":                   {},
	"level":                {},
	"msg":                  {},
	"source":               {},
	logging.FieldComponent: {},
	logging.FieldEpisodeID: {},
	logging.FieldRunID:     {},
	logging.FieldEventType: {},
}

// ParseEntry decodes a JSON log line. It reports false for blank lines and
// lines that are not JSON objects.
func ParseEntry(line string) (Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != '{' {
		return Entry{}, false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Level:     strings.ToLower(stringField(payload, "level")),
		Message:   stringField(payload, "msg"),
		Component: stringField(payload, logging.FieldComponent),
		EpisodeID: stringField(payload, logging.FieldEpisodeID),
		RunID:     stringField(payload, logging.FieldRunID),
		EventType: stringField(payload, logging.FieldEventType),
		Fields:    map[string]any{},
		Raw:       line,
	}
	if ts := stringField(payload, "ts"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = parsed
		}
	}
	for key, value := range payload {
		if _, ok := reserved[key]; !ok {
			entry.Fields[key] = value
		}
	}
	return entry, true
}

func stringField(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Format renders the entry as a single console line.
func (e Entry) Format() string {
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format(time.DateTime))
		b.WriteByte(' ')
	}
	level := e.Level
	if level == "" {
		level = "info"
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(level))
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteByte(' ')
	b.WriteString(e.Message)
	for _, kv := range [][2]string{
		{logging.FieldEpisodeID, e.EpisodeID},
		{logging.FieldRunID, e.RunID},
		{logging.FieldEventType, e.EventType},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, " %s=%s", kv[0], kv[1])
		}
	}
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, e.Fields[key])
	}
	return b.String()
}

// Filter narrows the entries Tail returns. Zero fields match everything.
type Filter struct {
	EpisodeID string
	RunID     string
	MinLevel  string
	EventType string
}

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// ParseLevel validates a level name. The empty string is accepted.
func ParseLevel(value string) (string, error) {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return "", nil
	}
	if level == "warning" {
		level = "warn"
	}
	if _, ok := levelRank[level]; !ok {
		return "", fmt.Errorf("unknown log level %q", value)
	}
	return level, nil
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Entry) bool {
	if f.EpisodeID != "" && e.EpisodeID != f.EpisodeID {
		return false
	}
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if floor, ok := levelRank[f.MinLevel]; ok {
		rank, known := levelRank[e.Level]
		if !known {
			rank = levelRank["info"]
		}
		if rank < floor {
			return false
		}
	}
	return true
}
