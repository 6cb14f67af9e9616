package align

import (
	"errors"
	"fmt"
	"strings"

	"himyc/internal/corpus"
	"himyc/internal/textutil"
)

// ErrUnknownStrategy reports a strategy name outside the closed set.
var ErrUnknownStrategy = errors.New("unknown cue alignment strategy")

// StrategyName identifies a cue-to-cue strategy.
type StrategyName string

const (
	StrategyAuto         StrategyName = "auto"
	StrategyByTime       StrategyName = "by_time"
	StrategyByOrder      StrategyName = "by_order"
	StrategyBySimilarity StrategyName = "by_similarity"
)

// ParseStrategyName validates a configured strategy name.
func ParseStrategyName(value string) (StrategyName, error) {
	name := StrategyName(strings.ToLower(strings.TrimSpace(value)))
	switch name {
	case "":
		return StrategyAuto, nil
	case StrategyAuto, StrategyByTime, StrategyByOrder, StrategyBySimilarity:
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
}

// DefaultOverlapThresholdMS is the minimum overlap for a by-time match.
const DefaultOverlapThresholdMS = 100

// CueStrategy aligns pivot cues to target-language cues. Every produced
// link has RoleTarget, StatusAuto, and Lang set to the target language.
type CueStrategy interface {
	Name() StrategyName
	Align(pivot, target []corpus.Cue) []Link
}

// CueParams carries the tunables of all strategies.
type CueParams struct {
	OverlapThresholdMS int64
	MinConfidence      float64
	Scorer             textutil.Scorer
}

// NewCueStrategy builds the named strategy. StrategyAuto is not a strategy
// and must be resolved with SelectStrategy first.
func NewCueStrategy(name StrategyName, params CueParams) (CueStrategy, error) {
	switch name {
	case StrategyByTime:
		return ByTime{OverlapThresholdMS: params.OverlapThresholdMS}, nil
	case StrategyByOrder:
		return ByOrder{}, nil
	case StrategyBySimilarity:
		return BySimilarity{MinConfidence: params.MinConfidence, Scorer: params.Scorer}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// ByTime pairs each pivot cue with the target cue it overlaps most. Several
// pivot cues may share one target cue.
type ByTime struct {
	OverlapThresholdMS int64
}

// Name implements CueStrategy.
func (ByTime) Name() StrategyName { return StrategyByTime }

// Align implements CueStrategy.
func (s ByTime) Align(pivot, target []corpus.Cue) []Link {
	threshold := s.OverlapThresholdMS
	if threshold <= 0 {
		threshold = DefaultOverlapThresholdMS
	}
	var links []Link
	for _, p := range pivot {
		best := -1
		var bestOverlap int64 = -1
		for j, t := range target {
			overlap := overlapMS(p, t)
			if overlap > bestOverlap {
				bestOverlap = overlap
				best = j
			}
		}
		if best < 0 || bestOverlap < threshold {
			continue
		}
		duration := p.EndMS - p.StartMS
		if duration < 1 {
			duration = 1
		}
		confidence := float64(bestOverlap) / float64(duration)
		if confidence > 1 {
			confidence = 1
		}
		links = append(links, targetLink(p, target[best], Round4(confidence), map[string]any{
			"align":      string(StrategyByTime),
			"overlap_ms": bestOverlap,
		}))
	}
	return links
}

func overlapMS(a, b corpus.Cue) int64 {
	start := max(a.StartMS, b.StartMS)
	end := min(a.EndMS, b.EndMS)
	if end <= start {
		return 0
	}
	return end - start
}

// ByOrder pairs cue i with cue i, truncating to the shorter list.
type ByOrder struct{}

// Name implements CueStrategy.
func (ByOrder) Name() StrategyName { return StrategyByOrder }

// Align implements CueStrategy.
func (ByOrder) Align(pivot, target []corpus.Cue) []Link {
	n := min(len(pivot), len(target))
	links := make([]Link, 0, n)
	for i := 0; i < n; i++ {
		links = append(links, targetLink(pivot[i], target[i], 1.0, map[string]any{
			"align": string(StrategyByOrder),
		}))
	}
	return links
}

// BySimilarity is a first-come greedy matching: pivot cues are visited in
// order and each claims the unused target with the highest score at or above
// MinConfidence. Claimed targets are never revisited, so the result is not
// globally optimal.
type BySimilarity struct {
	MinConfidence float64
	Scorer        textutil.Scorer
}

// Name implements CueStrategy.
func (BySimilarity) Name() StrategyName { return StrategyBySimilarity }

// Align implements CueStrategy.
func (s BySimilarity) Align(pivot, target []corpus.Cue) []Link {
	scorer := s.Scorer
	if scorer == nil {
		scorer = textutil.ScorerFunc(textutil.Similarity)
	}
	used := make([]bool, len(target))
	var links []Link
	for _, p := range pivot {
		best := -1
		bestScore := -1.0
		for j, t := range target {
			if used[j] {
				continue
			}
			score := scorer.Score(p.Text(), t.Text())
			if score > bestScore {
				bestScore = score
				best = j
			}
		}
		if best < 0 || !passes(bestScore, s.MinConfidence) {
			continue
		}
		used[best] = true
		links = append(links, targetLink(p, target[best], Round4(bestScore), map[string]any{
			"align": string(StrategyBySimilarity),
		}))
	}
	return links
}

func targetLink(p, t corpus.Cue, confidence float64, meta map[string]any) Link {
	return Link{
		Cue:        p.ID(),
		CueTarget:  cueRef(t.ID()),
		Lang:       t.Lang,
		Role:       RoleTarget,
		Confidence: confidence,
		Status:     StatusAuto,
		Meta:       meta,
	}
}
