package align

import (
	"himyc/internal/corpus"
	"himyc/internal/textutil"
)

// DefaultMinTextRatio is the share of cues that must carry word content on
// both sides before similarity matching is preferred over order matching.
const DefaultMinTextRatio = 0.5

// CuesHaveTimecodes reports whether at least one cue has end > start.
func CuesHaveTimecodes(cues []corpus.Cue) bool {
	for _, cue := range cues {
		if cue.EndMS > cue.StartMS {
			return true
		}
	}
	return false
}

// TextRatio returns the share of cues whose text contains a letter or digit.
func TextRatio(cues []corpus.Cue) float64 {
	if len(cues) == 0 {
		return 0
	}
	withText := 0
	for _, cue := range cues {
		if textutil.HasWordContent(cue.Text()) {
			withText++
		}
	}
	return float64(withText) / float64(len(cues))
}

// SelectStrategy picks the cue-to-cue strategy for a pivot/target pair:
//   - both sides timed: by_time
//   - otherwise, both sides at or above minTextRatio text coverage: by_similarity
//   - otherwise: by_order
//
// A minTextRatio <= 0 uses DefaultMinTextRatio.
func SelectStrategy(pivot, target []corpus.Cue, minTextRatio float64) StrategyName {
	if CuesHaveTimecodes(pivot) && CuesHaveTimecodes(target) {
		return StrategyByTime
	}
	if minTextRatio <= 0 {
		minTextRatio = DefaultMinTextRatio
	}
	if len(pivot) > 0 && len(target) > 0 &&
		TextRatio(pivot) >= minTextRatio && TextRatio(target) >= minTextRatio {
		return StrategyBySimilarity
	}
	return StrategyByOrder
}

// ResolveStrategy honours an explicit configured strategy and falls back to
// SelectStrategy for StrategyAuto.
func ResolveStrategy(configured StrategyName, pivot, target []corpus.Cue, minTextRatio float64) StrategyName {
	if configured == "" || configured == StrategyAuto {
		return SelectStrategy(pivot, target, minTextRatio)
	}
	return configured
}
