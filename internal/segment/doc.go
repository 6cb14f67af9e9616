// Package segment splits a clean transcript into the sentence and utterance
// segments consumed by the aligner.
//
// Both splitters are pure: they return dense, 0-based segments whose
// StartChar/EndChar are byte offsets into the input text. Speaker labels are
// only recorded when a line starts with a structural "NAME:" prefix; they are
// never inferred from content.
package segment
