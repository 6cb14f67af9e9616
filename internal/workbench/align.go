package workbench

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"himyc/internal/align"
	"himyc/internal/corpus"
	"himyc/internal/logging"
	"himyc/internal/store"
	"himyc/internal/textutil"
)

const runIDLayout = "20060102T150405Z"

// AlignRequest selects what AlignEpisode aligns. Empty fields fall back to
// the [alignment] configuration; empty TargetLangs means every imported
// track other than the pivot.
type AlignRequest struct {
	EpisodeID   string
	PivotLang   string
	TargetLangs []string
	SegmentKind corpus.SegmentKind
}

// AlignResult summarizes a stored run.
type AlignResult struct {
	Run         store.Run                     `json:"run"`
	PivotLinks  int                           `json:"pivot_links"`
	TargetLinks map[string]int                `json:"target_links"`
	Strategies  map[string]align.StrategyName `json:"strategies"`
	Cancelled   bool                          `json:"cancelled"`
}

// TotalLinks returns the number of links in the run.
func (r AlignResult) TotalLinks() int {
	total := r.PivotLinks
	for _, n := range r.TargetLinks {
		total += n
	}
	return total
}

// AlignEpisode aligns the episode's segments to the pivot track, then each
// target track to the pivot, and stores everything as one run. A run with
// zero links is stored and reported, not treated as an error.
//
// Cancelling ctx during segment alignment keeps the links found so far; the
// run is still stored and marked cancelled in its summary.
func (w *Workbench) AlignEpisode(ctx context.Context, req AlignRequest) (AlignResult, error) {
	cfg := w.cfg.Alignment
	episodeID := strings.TrimSpace(req.EpisodeID)
	if episodeID == "" {
		return AlignResult{}, Wrap(ErrValidation, "align", "episode id is required", nil)
	}
	pivotLang := corpus.NormalizeLang(req.PivotLang)
	if pivotLang == "" {
		pivotLang = corpus.NormalizeLang(cfg.PivotLang)
	}
	kind := req.SegmentKind
	if kind == "" {
		kind = corpus.SegmentKind(cfg.SegmentKind)
	}
	configured, err := align.ParseStrategyName(cfg.CueStrategy)
	if err != nil {
		return AlignResult{}, Wrap(ErrValidation, "align", "cue strategy", err)
	}
	scorer, err := textutil.NewScorer(cfg.Similarity)
	if err != nil {
		return AlignResult{}, Wrap(ErrValidation, "align", "similarity", err)
	}

	ctx = logging.WithEpisode(ctx, episodeID)
	logger := logging.WithContext(ctx, w.logger)

	segs, err := w.store.ListSegments(ctx, episodeID, kind)
	if err != nil {
		return AlignResult{}, err
	}
	if len(segs) == 0 {
		return AlignResult{}, Wrap(ErrPrecondition, "align", fmt.Sprintf("episode %s has no %s segments; import a transcript first", episodeID, kind), nil)
	}
	pivot, err := w.store.ListCues(ctx, episodeID, pivotLang)
	if err != nil {
		return AlignResult{}, err
	}
	if len(pivot) == 0 {
		return AlignResult{}, Wrap(ErrPrecondition, "align", fmt.Sprintf("episode %s has no %s cues; import the pivot track first", episodeID, pivotLang), nil)
	}
	targets, err := w.targetLanguages(ctx, episodeID, pivotLang, req.TargetLangs)
	if err != nil {
		return AlignResult{}, err
	}

	sampler := logging.NewProgressSampler(25)
	links := align.AlignSegments(ctx, segs, pivot, align.SegmentOptions{
		MaxWindow:     cfg.MaxWindow,
		MinConfidence: cfg.MinConfidence,
		Scorer:        scorer,
		Progress: func(done, total int) {
			if percent, ok := sampler.Observe(done, total); ok {
				logger.Info("segment alignment progress",
					logging.Int("done", done),
					logging.Int("total", total),
					logging.Float64("percent", percent),
				)
			}
		},
	})
	cancelled := ctx.Err() != nil

	result := AlignResult{
		PivotLinks:  len(links),
		TargetLinks: map[string]int{},
		Strategies:  map[string]align.StrategyName{},
		Cancelled:   cancelled,
	}
	params := align.CueParams{
		OverlapThresholdMS: cfg.OverlapMSThreshold,
		MinConfidence:      cfg.MinConfidence,
		Scorer:             scorer,
	}
	for _, lang := range targets {
		if cancelled {
			break
		}
		target, err := w.store.ListCues(ctx, episodeID, lang)
		if err != nil {
			return AlignResult{}, err
		}
		name := align.ResolveStrategy(configured, pivot, target, cfg.MinTextRatio)
		strategy, err := align.NewCueStrategy(name, params)
		if err != nil {
			return AlignResult{}, err
		}
		targetLinks := strategy.Align(pivot, target)
		links = append(links, targetLinks...)
		result.TargetLinks[lang] = len(targetLinks)
		result.Strategies[lang] = name
		logger.Info("cue alignment complete",
			logging.Lang(lang),
			logging.Strategy(string(name)),
			logging.Int("links", len(targetLinks)),
			logging.Int("target_cues", len(target)),
		)
	}

	// A partial run is still written after cancellation.
	storeCtx := context.WithoutCancel(ctx)
	runID, err := w.newRunID(storeCtx, episodeID)
	if err != nil {
		return AlignResult{}, err
	}
	strategies := make(map[string]any, len(result.Strategies))
	targetCounts := make(map[string]any, len(result.TargetLinks))
	for lang, name := range result.Strategies {
		strategies[lang] = string(name)
		targetCounts[lang] = result.TargetLinks[lang]
	}
	run := store.Run{
		ID:        runID,
		EpisodeID: episodeID,
		PivotLang: pivotLang,
		Params: map[string]any{
			"segment_kind":         string(kind),
			"target_langs":         targets,
			"max_window":           cfg.MaxWindow,
			"min_confidence":       cfg.MinConfidence,
			"overlap_ms_threshold": cfg.OverlapMSThreshold,
			"cue_strategy":         string(configured),
			"similarity":           cfg.Similarity,
			"min_text_ratio":       cfg.MinTextRatio,
		},
		CreatedAt: w.now(),
		Summary: map[string]any{
			"segments":     len(segs),
			"pivot_cues":   len(pivot),
			"pivot_links":  result.PivotLinks,
			"target_links": targetCounts,
			"strategies":   strategies,
			"cancelled":    cancelled,
		},
	}
	if _, err := w.store.CreateRunWithLinks(storeCtx, run, links); err != nil {
		return AlignResult{}, err
	}
	result.Run = run

	logger = logger.With(logging.Run(runID))
	if result.TotalLinks() == 0 {
		logging.WarnWithContext(logger, "alignment produced no links", "alignment_empty",
			logging.String(logging.FieldImpact, "nothing to review for this run"),
			logging.String(logging.FieldErrorHint, "lower alignment.min_confidence or pick another cue_strategy"),
		)
	} else {
		logger.Info("alignment run stored",
			logging.Int("pivot_links", result.PivotLinks),
			logging.Int("total_links", result.TotalLinks()),
			logging.Bool("cancelled", cancelled),
		)
	}
	return result, nil
}

// targetLanguages returns the requested languages, or every imported track
// other than the pivot, sorted.
func (w *Workbench) targetLanguages(ctx context.Context, episodeID, pivotLang string, requested []string) ([]string, error) {
	seen := map[string]struct{}{pivotLang: {}}
	var langs []string
	if len(requested) > 0 {
		for _, lang := range requested {
			lang = corpus.NormalizeLang(lang)
			if lang == "" {
				continue
			}
			if _, dup := seen[lang]; dup {
				continue
			}
			if _, err := w.store.GetTrack(ctx, episodeID, lang); err != nil {
				return nil, Wrap(ErrPrecondition, "align", "target "+lang, err)
			}
			seen[lang] = struct{}{}
			langs = append(langs, lang)
		}
	} else {
		tracks, err := w.store.ListTracks(ctx, episodeID)
		if err != nil {
			return nil, err
		}
		for _, track := range tracks {
			if _, dup := seen[track.Lang]; dup {
				continue
			}
			seen[track.Lang] = struct{}{}
			langs = append(langs, track.Lang)
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// newRunID formats {episode}:{UTC timestamp}, adding a numeric suffix when
// a run was already created in the same second.
func (w *Workbench) newRunID(ctx context.Context, episodeID string) (string, error) {
	base := episodeID + ":" + w.now().UTC().Format(runIDLayout)
	id := base
	for attempt := 2; ; attempt++ {
		_, err := w.store.GetRun(ctx, id)
		if errors.Is(err, store.ErrRunNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
		id = fmt.Sprintf("%s-%d", base, attempt)
	}
}
