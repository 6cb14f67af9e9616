package align

import (
	"context"
	"strings"

	"himyc/internal/corpus"
	"himyc/internal/textutil"
)

const DefaultMaxWindow = 5

// SegmentOptions tunes AlignSegments.
type SegmentOptions struct {
	// MaxWindow is the largest number of consecutive cues joined into one
	// candidate. Values below 1 use DefaultMaxWindow.
	MaxWindow int
	// MinConfidence is the score floor for a link. Zero links every
	// non-empty segment; alignment.min_confidence supplies the configured
	// floor.
	MinConfidence float64
	Scorer        textutil.Scorer
	// Progress, when set, is called once per processed segment.
	Progress func(done, total int)
}

func (o SegmentOptions) withDefaults() SegmentOptions {
	if o.MaxWindow < 1 {
		o.MaxWindow = DefaultMaxWindow
	}
	if o.Scorer == nil {
		o.Scorer = textutil.ScorerFunc(textutil.Similarity)
	}
	return o
}

type cueWindow struct {
	start int
	size  int
	text  string
}

// AlignSegments links each segment to the pivot cue window it matches best.
// Candidates are visited in cue order, then by increasing window size, and
// the first best score wins. Segments with empty text or whose best score
// is below MinConfidence get no link. A pivot cue may be claimed by several
// segments.
//
// The context is checked between segments; on cancellation the links built
// so far are returned.
func AlignSegments(ctx context.Context, segments []corpus.Segment, pivot []corpus.Cue, opts SegmentOptions) []Link {
	opts = opts.withDefaults()
	windows := buildWindows(pivot, opts.MaxWindow)

	links := make([]Link, 0, len(segments))
	for i, seg := range segments {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(seg.Text) != "" && len(windows) > 0 {
			best := -1
			bestScore := -1.0
			for w, window := range windows {
				score := opts.Scorer.Score(seg.Text, window.text)
				if score > bestScore {
					bestScore = score
					best = w
				}
			}
			if best >= 0 && passes(bestScore, opts.MinConfidence) {
				window := windows[best]
				cue := pivot[window.start]
				links = append(links, Link{
					Segment:    segmentRef(seg.ID()),
					Cue:        cue.ID(),
					Lang:       cue.Lang,
					Role:       RolePivot,
					Confidence: Round4(bestScore),
					Status:     StatusAuto,
					Meta:       map[string]any{"n_cues": window.size},
				})
			}
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(segments))
		}
	}
	return links
}

// passes applies the confidence floor to both the raw and the rounded score,
// so a stored confidence is never below the floor.
func passes(score, floor float64) bool {
	return score >= floor && Round4(score) >= floor
}

// buildWindows precomputes the joined text of every window, ordered by
// start cue then window size.
func buildWindows(cues []corpus.Cue, maxWindow int) []cueWindow {
	windows := make([]cueWindow, 0, len(cues)*maxWindow)
	for start := range cues {
		var b strings.Builder
		for size := 1; size <= maxWindow && start+size <= len(cues); size++ {
			if size > 1 {
				b.WriteByte(' ')
			}
			b.WriteString(cues[start+size-1].Text())
			windows = append(windows, cueWindow{start: start, size: size, text: b.String()})
		}
	}
	return windows
}
