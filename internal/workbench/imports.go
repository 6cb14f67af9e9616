package workbench

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"himyc/internal/corpus"
	"himyc/internal/logging"
	"himyc/internal/segment"
	"himyc/internal/subtitles"
	"himyc/internal/textutil"
)

// TranscriptImport reports the outcome of ImportTranscript.
type TranscriptImport struct {
	EpisodeID   string             `json:"episode_id"`
	Kind        corpus.SegmentKind `json:"kind"`
	Segments    int                `json:"segments"`
	Speakers    int                `json:"segments_with_speaker"`
	RunsDeleted int64              `json:"runs_deleted"`
}

// ImportTranscript segments the clean transcript at path and replaces the
// episode's segments of that kind. Every run of the episode is deleted in
// the same transaction. An empty kind uses alignment.segment_kind.
func (w *Workbench) ImportTranscript(ctx context.Context, episodeID, path string, kind corpus.SegmentKind) (TranscriptImport, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return TranscriptImport{}, Wrap(ErrValidation, "import transcript", "episode id is required", nil)
	}
	if kind == "" {
		kind = corpus.SegmentKind(w.cfg.Alignment.SegmentKind)
	}
	if !kind.Valid() {
		return TranscriptImport{}, Wrap(ErrValidation, "import transcript", fmt.Sprintf("segment kind %q", kind), nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return TranscriptImport{}, fmt.Errorf("read transcript: %w", err)
	}

	segs := segment.Split(episodeID, kind, string(data))
	stale := w.episodeRunIDs(ctx, episodeID)
	runsDeleted, err := w.store.ReplaceSegments(ctx, episodeID, kind, segs)
	if err != nil {
		return TranscriptImport{}, err
	}
	w.removeCaches(stale)

	result := TranscriptImport{EpisodeID: episodeID, Kind: kind, Segments: len(segs), RunsDeleted: runsDeleted}
	for _, seg := range segs {
		if seg.SpeakerExplicit != "" {
			result.Speakers++
		}
	}
	logging.WithContext(logging.WithEpisode(ctx, episodeID), w.logger).Info("transcript imported",
		logging.String("kind", string(kind)),
		logging.Int("segments", result.Segments),
		logging.Int("segments_with_speaker", result.Speakers),
		logging.Int64("runs_deleted", runsDeleted),
	)
	return result, nil
}

// SubtitleImport reports the outcome of ImportSubtitles.
type SubtitleImport struct {
	EpisodeID    string `json:"episode_id"`
	Lang         string `json:"lang"`
	Format       string `json:"format"`
	Cues         int    `json:"cues"`
	RemovedAds   int    `json:"removed_ads"`
	RemovedEmpty int    `json:"removed_empty"`
	FilePath     string `json:"file_path"`
	Digest       string `json:"digest"`
	RunsDeleted  int64  `json:"runs_deleted"`
}

// ImportSubtitles parses the subtitle file at path, copies it into
// paths.subtitles_dir, and replaces the episode's track for lang. Every run
// of the episode is deleted in the same transaction. The previous managed
// copy is restored when the track cannot be stored.
func (w *Workbench) ImportSubtitles(ctx context.Context, episodeID, lang, path string) (SubtitleImport, error) {
	episodeID = strings.TrimSpace(episodeID)
	lang = corpus.NormalizeLang(lang)
	if episodeID == "" || lang == "" {
		return SubtitleImport{}, Wrap(ErrValidation, "import subtitles", "episode id and language are required", nil)
	}
	file, err := subtitles.ReadFile(path)
	if err != nil {
		return SubtitleImport{}, err
	}
	if len(file.Entries) == 0 {
		return SubtitleImport{}, Wrap(ErrValidation, "import subtitles", "no cues left after cleaning "+path, nil)
	}

	src, err := filepath.Abs(path)
	if err != nil {
		return SubtitleImport{}, err
	}
	name := textutil.SanitizeFileName(episodeID)
	dst := filepath.Join(w.cfg.Paths.SubtitlesDir, name, name+"."+lang+file.Format.Extension())

	// The managed copy is swapped in before the track is written and put
	// back if the write fails.
	files := subtitles.NewFileSet()
	defer files.Cleanup()
	if src != dst {
		if err := files.Stage(dst, file.Data); err != nil {
			return SubtitleImport{}, fmt.Errorf("stage subtitles: %w", err)
		}
		if err := files.Commit(); err != nil {
			return SubtitleImport{}, fmt.Errorf("copy subtitles: %w", err)
		}
	}

	cues := subtitles.CuesFromEntries(episodeID, lang, file.Entries)
	stale := w.episodeRunIDs(ctx, episodeID)
	track := corpus.Track{
		EpisodeID:  episodeID,
		Lang:       lang,
		Format:     string(file.Format),
		SourcePath: src,
		FilePath:   dst,
		Digest:     file.Digest,
		ImportedAt: w.now(),
	}
	runsDeleted, err := w.store.ImportTrack(ctx, track, cues)
	if err != nil {
		if restoreErr := files.Restore(); restoreErr != nil {
			return SubtitleImport{}, errors.Join(err, fmt.Errorf("restore %s: %w", dst, restoreErr))
		}
		return SubtitleImport{}, err
	}
	w.removeCaches(stale)

	result := SubtitleImport{
		EpisodeID:    episodeID,
		Lang:         lang,
		Format:       string(file.Format),
		Cues:         len(cues),
		RemovedAds:   file.Stats.RemovedAds,
		RemovedEmpty: file.Stats.RemovedEmpty,
		FilePath:     dst,
		Digest:       file.Digest,
		RunsDeleted:  runsDeleted,
	}
	logging.WithContext(logging.WithEpisode(ctx, episodeID), w.logger).Info("subtitles imported",
		logging.Lang(lang),
		logging.String("format", result.Format),
		logging.Int("cues", result.Cues),
		logging.Int("removed_ads", result.RemovedAds),
		logging.Int64("runs_deleted", runsDeleted),
	)
	return result, nil
}

// DeleteSubtitles removes the episode's track for lang and every run of the
// episode. The copied file is left on disk.
func (w *Workbench) DeleteSubtitles(ctx context.Context, episodeID, lang string) (int64, error) {
	stale := w.episodeRunIDs(ctx, episodeID)
	runs, err := w.store.DeleteTrack(ctx, episodeID, corpus.NormalizeLang(lang))
	if err != nil {
		return 0, err
	}
	w.removeCaches(stale)
	return runs, nil
}
