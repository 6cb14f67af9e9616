// Package logs reads back the JSON log file written by the himyc logger.
//
// Tail returns the most recent entries matching a Filter (episode, run,
// minimum level, event type) with bounded memory, and can follow the file for
// new entries. Lines that are not JSON objects are skipped, so a file shared
// with other writers stays readable.
package logs
