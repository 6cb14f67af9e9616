// Package logging assembles the structured slog loggers used by the CLI and
// the alignment pipeline.
//
// It owns the console and JSON handlers, level parsing, and output routing
// (console on stdout, JSON lines in the log file). Context helpers tag log
// lines with the episode and run being processed, and a no-op logger keeps
// wiring code and tests free of nil checks.
package logging
