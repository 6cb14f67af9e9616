// Package subtitles reads and writes SRT and WebVTT subtitle files.
//
// Parsing turns a file into timecoded entries (millisecond precision,
// tolerant of CRLF line endings, a UTF-8 BOM, and either millisecond
// separator); CuesFromEntries converts them into corpus cues with cleaned
// text. Advertisement blocks injected by subtitle sites are dropped on
// import. Serialization renumbers cues sequentially.
//
// FileSet stages several rewritten files and swaps them into place together,
// keeping backups so a caller can undo the swap if its own commit fails.
package subtitles
