// Package align matches transcript segments to pivot-language subtitle cues
// and pivot cues to target-language cues.
//
// Segment alignment scores every segment against single cues and windows of
// consecutive cues, keeping the best window above a confidence floor.
// Cue-to-cue alignment is a closed set of strategies behind the CueStrategy
// interface (by time overlap, by order, by textual similarity). Which
// strategy runs is decided by SelectStrategy, a pure policy function, so the
// decision is testable on its own.
//
// Aligners are synchronous and single-threaded. Long segment passes poll the
// supplied context between segments and return the links gathered so far
// when it is cancelled; partial output is expected, not an error.
package align
