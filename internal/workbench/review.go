package workbench

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"himyc/internal/align"
	"himyc/internal/catalog"
	"himyc/internal/corpus"
	"himyc/internal/export"
	"himyc/internal/grouping"
	"himyc/internal/logging"
	"himyc/internal/propagate"
	"himyc/internal/store"
)

// ListRuns returns the episode's runs, oldest first.
func (w *Workbench) ListRuns(ctx context.Context, episodeID string) ([]store.Run, error) {
	return w.store.ListRuns(ctx, episodeID)
}

// GetRun returns one run of the episode.
func (w *Workbench) GetRun(ctx context.Context, runID, episodeID string) (*store.Run, error) {
	return w.requireRun(ctx, runID, episodeID)
}

// RunStats aggregates the links of a run.
func (w *Workbench) RunStats(ctx context.Context, runID, episodeID string) (store.RunStats, error) {
	if _, err := w.requireRun(ctx, runID, episodeID); err != nil {
		return store.RunStats{}, err
	}
	return w.store.GetAlignStatsForRun(ctx, episodeID, runID)
}

// DeleteRun removes a run, its links, and its grouping cache.
func (w *Workbench) DeleteRun(ctx context.Context, runID, episodeID string) error {
	if _, err := w.requireRun(ctx, runID, episodeID); err != nil {
		return err
	}
	if err := w.store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	w.removeCaches([]string{runID})
	return nil
}

// Links returns the links selected by filter. A filter naming a run must
// name one of the episode's runs.
func (w *Workbench) Links(ctx context.Context, filter store.LinkFilter) ([]align.Link, error) {
	if filter.RunID != "" {
		if _, err := w.requireRun(ctx, filter.RunID, filter.EpisodeID); err != nil {
			return nil, err
		}
	}
	return w.store.QueryLinks(ctx, filter)
}

// SetLinkStatus records a review decision on one link.
func (w *Workbench) SetLinkStatus(ctx context.Context, linkID string, status align.Status) (align.Link, error) {
	link, err := w.store.GetLink(ctx, linkID)
	if err != nil {
		return align.Link{}, Wrap(ErrPrecondition, "set link status", linkID, err)
	}
	if err := w.store.UpdateLinkStatus(ctx, linkID, status); err != nil {
		return align.Link{}, err
	}
	w.removeCaches(w.episodeRunIDs(ctx, link.Cue.EpisodeID))
	link.Status = status
	return link, nil
}

// BulkSetStatus sets status on every link selected by filter and returns the
// number of links changed.
func (w *Workbench) BulkSetStatus(ctx context.Context, filter store.LinkFilter, status align.Status) (int64, error) {
	if filter.RunID != "" {
		if _, err := w.requireRun(ctx, filter.RunID, filter.EpisodeID); err != nil {
			return 0, err
		}
	}
	n, err := w.store.BulkUpdateStatus(ctx, filter, status)
	if err != nil {
		return 0, err
	}
	if filter.RunID != "" {
		w.removeCaches([]string{filter.RunID})
	} else {
		w.removeCaches(w.episodeRunIDs(ctx, filter.EpisodeID))
	}
	return n, nil
}

// ImportCatalog upserts the YAML catalog at path, or at catalog.path when
// path is empty.
func (w *Workbench) ImportCatalog(ctx context.Context, path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		path = w.cfg.Catalog.Path
	}
	if path == "" {
		return 0, Wrap(ErrValidation, "import catalog", "no catalog path given and catalog.path is unset", nil)
	}
	n, err := catalog.Import(ctx, w.store, path)
	if err != nil {
		return 0, err
	}
	// Cached groupings resolved speaker labels against the previous catalog.
	episodes, err := w.store.ListEpisodes(ctx)
	if err != nil {
		logging.WarnWithContext(w.logger, "grouping caches not invalidated", "grouping_cache_stale",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run group with --refresh"),
			logging.String(logging.FieldImpact, "cached groupings may show stale character ids"),
		)
	}
	for _, ep := range episodes {
		w.removeCaches(w.episodeRunIDs(ctx, ep.ID))
	}
	w.logger.Info("character catalog imported", logging.String("path", path), logging.Int("characters", n))
	return n, nil
}

// Characters lists the catalog.
func (w *Workbench) Characters(ctx context.Context) ([]corpus.Character, error) {
	return w.store.ListCharacters(ctx)
}

// Assign maps a segment or cue to a character. An empty character id
// removes the assignment.
func (w *Workbench) Assign(ctx context.Context, a corpus.Assignment) error {
	var err error
	if strings.TrimSpace(a.CharacterID) == "" {
		err = w.store.DeleteAssignment(ctx, a.EpisodeID, a.SourceType, a.SourceID)
	} else {
		err = w.store.SetAssignment(ctx, a)
	}
	if err != nil {
		return err
	}
	w.removeCaches(w.episodeRunIDs(ctx, a.EpisodeID))
	return nil
}

// Assignments lists the episode's assignments.
func (w *Workbench) Assignments(ctx context.Context, episodeID string) ([]corpus.Assignment, error) {
	return w.store.ListAssignments(ctx, episodeID)
}

// GroupRequest selects a grouping.
type GroupRequest struct {
	RunID     string
	EpisodeID string
	Tolerant  bool
	// Refresh recomputes the grouping even when a cached one exists.
	Refresh bool
}

// Group returns the run's grouping, served from paths.cache_dir when a
// cached result with the same mode exists.
func (w *Workbench) Group(ctx context.Context, req GroupRequest) (*grouping.Result, error) {
	if _, err := w.requireRun(ctx, req.RunID, req.EpisodeID); err != nil {
		return nil, err
	}
	logger := logging.WithContext(logging.WithRun(logging.WithEpisode(ctx, req.EpisodeID), req.RunID), w.logger)
	dir := w.cfg.Paths.CacheDir

	if !req.Refresh {
		cached, err := grouping.LoadCache(dir, req.RunID)
		switch {
		case err == nil && cached.Tolerant == req.Tolerant && cached.EpisodeID == req.EpisodeID:
			logger.Debug("grouping served from cache")
			return cached, nil
		case err == nil, errors.Is(err, grouping.ErrCacheMiss):
		default:
			logging.WarnWithContext(logger, "grouping cache unreadable", "grouping_cache_invalid",
				logging.Error(err),
				logging.String(logging.FieldImpact, "grouping recomputed"),
			)
		}
	}

	result, err := grouping.Generate(ctx, w.store, req.RunID, req.EpisodeID, req.Tolerant)
	if err != nil {
		return nil, err
	}
	if path, err := grouping.SaveCache(dir, result); err != nil {
		logger.Warn("grouping cache not written", logging.Error(err))
	} else {
		logger.Debug("grouping cached", logging.String("path", path), logging.Int("groups", len(result.Groups)))
	}
	return result, nil
}

// Propagate applies the episode's assignments through the run.
func (w *Workbench) Propagate(ctx context.Context, runID, episodeID string, languages []string) (propagate.Result, error) {
	if _, err := w.requireRun(ctx, runID, episodeID); err != nil {
		return propagate.Result{}, err
	}
	result, err := w.propagator.Propagate(ctx, runID, episodeID, languages)
	if err != nil {
		return propagate.Result{}, err
	}
	w.removeCaches(w.episodeRunIDs(ctx, episodeID))
	return result, nil
}

// ExportLinks writes the run's links to path. The format follows the file
// extension when format is empty.
func (w *Workbench) ExportLinks(ctx context.Context, runID, episodeID, path string, format export.Format) (int, error) {
	links, err := w.Links(ctx, store.LinkFilter{EpisodeID: episodeID, RunID: runID})
	if err != nil {
		return 0, err
	}
	if err := export.LinksToFile(path, links, format); err != nil {
		return 0, err
	}
	return len(links), nil
}

// ExportGrouping writes the run's grouping table to path.
func (w *Workbench) ExportGrouping(ctx context.Context, req GroupRequest, path string, format export.Format) (int, error) {
	result, err := w.Group(ctx, req)
	if err != nil {
		return 0, err
	}
	table := result.Rows()
	if err := export.TableToFile(path, table, format); err != nil {
		return 0, err
	}
	return len(table.Rows), nil
}

// CheckIntegrity reports dangling references in the episode.
func (w *Workbench) CheckIntegrity(ctx context.Context, episodeID string) (store.IntegrityReport, error) {
	report, err := w.store.CheckIntegrity(ctx, episodeID)
	if err != nil {
		return report, err
	}
	if !report.OK() {
		logging.WarnWithContext(logging.WithContext(logging.WithEpisode(ctx, episodeID), w.logger),
			"integrity check found dangling references", "integrity_violation",
			logging.String(logging.FieldErrorHint, "delete the episode's runs and realign"),
		)
	}
	return report, nil
}

func (w *Workbench) episodeRunIDs(ctx context.Context, episodeID string) []string {
	if episodeID == "" {
		return nil
	}
	runs, err := w.store.ListRuns(ctx, episodeID)
	if err != nil {
		w.logger.Debug("list runs for cache invalidation failed", logging.Error(err))
		return nil
	}
	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	return ids
}

func (w *Workbench) removeCaches(runIDs []string) {
	for _, id := range runIDs {
		if err := grouping.RemoveCache(w.cfg.Paths.CacheDir, id); err != nil {
			w.logger.Warn("grouping cache not removed",
				logging.Run(id),
				logging.String("path", filepath.Base(grouping.CachePath(w.cfg.Paths.CacheDir, id))),
				logging.Error(err),
			)
		}
	}
}
