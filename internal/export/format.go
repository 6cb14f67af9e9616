package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format names an export file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatTSV   Format = "tsv"
	FormatJSONL Format = "jsonl"
)

// ParseFormat validates a format name. An empty value selects CSV.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatTSV, FormatJSONL:
		return f, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unsupported export format %q", value)
}

// FormatForPath picks the format from the file extension, falling back to
// fallback.
func FormatForPath(path string, fallback Format) Format {
	if f, err := ParseFormat(filepath.Ext(path)); err == nil && filepath.Ext(path) != "" {
		return f
	}
	return fallback
}
