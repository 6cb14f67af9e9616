// Package export writes alignment links and grouping tables to interchange
// formats.
//
// Links serialize to CSV with a fixed column order and to JSON lines; both
// readers restore every field, so exporting and re-importing a run is
// lossless. Grouping tables serialize to CSV, TSV, or JSON lines.
package export
