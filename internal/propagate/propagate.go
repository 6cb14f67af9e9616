package propagate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"himyc/internal/align"
	"himyc/internal/config"
	"himyc/internal/corpus"
	"himyc/internal/logging"
	"himyc/internal/store"
	"himyc/internal/subtitles"
	"himyc/internal/textutil"
)

// Result reports what a propagation changed.
type Result struct {
	SegmentsUpdated int      `json:"nb_segments_updated"`
	CuesUpdated     int      `json:"nb_cues_updated"`
	Languages       []string `json:"languages_rewritten"`
	Files           []string `json:"files"`
}

// Service propagates assignments of one store.
type Service struct {
	store        *store.Store
	subtitlesDir string
	format       subtitles.Format
	logger       *slog.Logger
}

// New builds a propagation service. Files of tracks without a recorded path
// are written under paths.subtitles_dir in propagation.subtitle_format.
func New(st *store.Store, cfg *config.Config, logger *slog.Logger) *Service {
	format, err := subtitles.ParseFormat(cfg.Propagation.SubtitleFormat)
	if err != nil {
		format = subtitles.FormatSRT
	}
	return &Service{
		store:        st,
		subtitlesDir: cfg.Paths.SubtitlesDir,
		format:       format,
		logger:       logging.NewComponentLogger(logger, "propagate"),
	}
}

type rewrite struct {
	lang   string
	path   string
	format subtitles.Format
	cues   []corpus.Cue
	digest string
}

// Propagate applies the assignments of episodeID through the links of
// runID. Languages listed in languages are rewritten even when none of their
// cues changed; when languages is empty every touched language is rewritten.
func (s *Service) Propagate(ctx context.Context, runID, episodeID string, languages []string) (Result, error) {
	ctx = logging.WithRun(logging.WithEpisode(ctx, episodeID), runID)
	logger := logging.WithContext(ctx, s.logger)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	result, rewrites, err := s.apply(ctx, tx, runID, episodeID, languages)
	if err != nil {
		return Result{}, err
	}

	files := subtitles.NewFileSet()
	if err := s.stage(ctx, files, rewrites); err != nil {
		files.Cleanup()
		return Result{}, err
	}
	for _, rw := range rewrites {
		if err := tx.SetTrackFile(ctx, episodeID, rw.lang, rw.path, rw.digest); err != nil {
			files.Cleanup()
			return Result{}, err
		}
	}
	if err := files.Commit(); err != nil {
		files.Cleanup()
		return Result{}, fmt.Errorf("rewrite subtitle files: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if restoreErr := files.Restore(); restoreErr != nil {
			logger.Error("subtitle files not restored after failed commit", logging.Error(restoreErr))
			err = errors.Join(err, restoreErr)
		}
		files.Cleanup()
		return Result{}, err
	}
	files.Cleanup()

	logger.Info("propagation applied",
		logging.Int("segments_updated", result.SegmentsUpdated),
		logging.Int("cues_updated", result.CuesUpdated),
		logging.String("languages", strings.Join(result.Languages, ",")),
	)
	return result, nil
}

func (s *Service) apply(ctx context.Context, tx *store.Tx, runID, episodeID string, languages []string) (Result, []*rewrite, error) {
	var result Result
	run, err := tx.GetRun(ctx, runID)
	if err != nil {
		return result, nil, err
	}
	if run.EpisodeID != episodeID {
		return result, nil, fmt.Errorf("%w: %s does not belong to episode %s", store.ErrRunNotFound, runID, episodeID)
	}
	pivotLang := corpus.NormalizeLang(run.PivotLang)

	characters, err := tx.ListCharacters(ctx)
	if err != nil {
		return result, nil, err
	}
	catalog := make(map[string]corpus.Character, len(characters))
	for _, ch := range characters {
		catalog[ch.ID] = ch
	}
	assignments, err := tx.ListAssignments(ctx, episodeID)
	if err != nil {
		return result, nil, err
	}
	links, err := tx.QueryLinks(ctx, store.LinkFilter{EpisodeID: episodeID, RunID: runID})
	if err != nil {
		return result, nil, err
	}

	segmentChars := map[string]string{}
	explicitCues := map[string]string{}
	for _, a := range assignments {
		if _, ok := catalog[a.CharacterID]; !ok {
			continue
		}
		switch a.SourceType {
		case corpus.SourceSegment:
			segmentChars[a.SourceID] = a.CharacterID
		case corpus.SourceCue:
			explicitCues[a.SourceID] = a.CharacterID
		}
	}

	segIDs := make([]string, 0, len(segmentChars))
	for id := range segmentChars {
		segIDs = append(segIDs, id)
	}
	sort.Strings(segIDs)
	for _, raw := range segIDs {
		id, err := corpus.ParseSegmentID(raw)
		if err != nil {
			return result, nil, err
		}
		changed, err := tx.SetSegmentSpeaker(ctx, id, catalog[segmentChars[raw]].Canonical)
		if err != nil {
			return result, nil, err
		}
		if changed {
			result.SegmentsUpdated++
		}
	}

	ids := resolveCueIdentities(links, pivotLang, segmentChars, explicitCues)

	touched := map[string]struct{}{}
	byLang := map[string]map[int]string{}
	for cueID, charID := range ids {
		byLang[cueID.Lang] = ensure(byLang[cueID.Lang])
		byLang[cueID.Lang][cueID.N] = charID
	}
	for lang, assigned := range byLang {
		cues, err := tx.ListCues(ctx, episodeID, lang)
		if err != nil {
			return result, nil, err
		}
		for _, cue := range cues {
			charID, ok := assigned[cue.N]
			if !ok {
				continue
			}
			touched[lang] = struct{}{}
			prefix := catalog[charID].NameFor(lang) + ": "
			text := cue.Text()
			if strings.HasPrefix(text, prefix) {
				continue
			}
			changed, err := tx.SetCueText(ctx, cue.ID(), prefix+text)
			if err != nil {
				return result, nil, err
			}
			if changed {
				result.CuesUpdated++
			}
		}
	}

	rewriteLangs := normalizeLanguages(languages)
	if len(rewriteLangs) == 0 {
		for lang := range touched {
			rewriteLangs = append(rewriteLangs, lang)
		}
		sort.Strings(rewriteLangs)
	}

	rewrites := make([]*rewrite, 0, len(rewriteLangs))
	for _, lang := range rewriteLangs {
		track, err := tx.GetTrack(ctx, episodeID, lang)
		if err != nil {
			return result, nil, err
		}
		cues, err := tx.ListCues(ctx, episodeID, lang)
		if err != nil {
			return result, nil, err
		}
		rw := &rewrite{lang: lang, cues: cues, path: track.FilePath, format: s.format}
		if rw.path == "" {
			rw.path = s.defaultPath(episodeID, lang)
		} else {
			rw.format = subtitles.DetectFormat(rw.path, nil)
		}
		rewrites = append(rewrites, rw)
		result.Files = append(result.Files, rw.path)
	}
	result.Languages = rewriteLangs
	return result, rewrites, nil
}

// resolveCueIdentities assigns characters to cues. Pivot cues take an
// explicit assignment, or inherit from the segment linked to them; target
// cues take an explicit assignment, or inherit from their pivot cue. The
// first link in run order wins when several disagree.
func resolveCueIdentities(links []align.Link, pivotLang string, segmentChars, explicitCues map[string]string) map[corpus.CueID]string {
	ids := map[corpus.CueID]string{}
	claim := func(id corpus.CueID, inherited string) {
		if _, done := ids[id]; done {
			return
		}
		if explicit, ok := explicitCues[id.String()]; ok {
			ids[id] = explicit
			return
		}
		if inherited != "" {
			ids[id] = inherited
		}
	}

	for raw, charID := range explicitCues {
		if id, err := corpus.ParseCueID(raw); err == nil {
			ids[id] = charID
		}
	}
	for _, link := range links {
		if link.Status == align.StatusRejected || link.Role != align.RolePivot || link.Segment == nil {
			continue
		}
		inherited := segmentChars[link.Segment.String()]
		span := max(link.MetaInt("n_cues", 1), 1)
		for n := link.Cue.N; n < link.Cue.N+span; n++ {
			claim(corpus.CueID{EpisodeID: link.Cue.EpisodeID, Lang: link.Cue.Lang, N: n}, inherited)
		}
	}
	for _, link := range links {
		if link.Status == align.StatusRejected || link.Role != align.RoleTarget || link.CueTarget == nil {
			continue
		}
		if link.Cue.Lang != pivotLang {
			continue
		}
		claim(*link.CueTarget, ids[link.Cue])
	}
	return ids
}

func (s *Service) stage(ctx context.Context, files *subtitles.FileSet, rewrites []*rewrite) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, rw := range rewrites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := subtitles.Serialize(subtitles.EntriesFromCues(rw.cues), rw.format)
			if err != nil {
				return fmt.Errorf("serialize %s: %w", rw.lang, err)
			}
			if err := files.Stage(rw.path, data); err != nil {
				return fmt.Errorf("stage %s: %w", rw.lang, err)
			}
			rw.digest = subtitles.Digest(data)
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) defaultPath(episodeID, lang string) string {
	name := textutil.SanitizeFileName(episodeID)
	return filepath.Join(s.subtitlesDir, name, name+"."+lang+s.format.Extension())
}

func normalizeLanguages(languages []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, lang := range languages {
		lang = corpus.NormalizeLang(lang)
		if lang == "" {
			continue
		}
		if _, ok := seen[lang]; ok {
			continue
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func ensure(m map[int]string) map[int]string {
	if m == nil {
		return map[int]string{}
	}
	return m
}
