// Package main hosts the himyc CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the workbench:
// importing transcripts and subtitle tracks, running alignments, reviewing
// links, assigning characters, and producing groupings, propagated subtitle
// files, and exports. It centralizes configuration resolution and logger
// setup so subcommands only parse arguments and render results.
//
// Keep this package lean: add behavior to the internal packages first, then
// surface it through a command or flag here.
package main
