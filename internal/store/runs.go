package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"himyc/internal/align"
	"himyc/internal/corpus"
)

const runColumns = "align_run_id, episode_id, pivot_lang, params_json, created_at, summary_json"

func ensureEpisode(ctx context.Context, q querier, episodeID string) error {
	if strings.TrimSpace(episodeID) == "" {
		return errors.New("episode id is required")
	}
	_, err := q.ExecContext(ctx,
		"INSERT OR IGNORE INTO episodes (episode_id, created_at) VALUES (?, ?)",
		episodeID, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("ensure episode %s: %w", episodeID, err)
	}
	return nil
}

// UpsertEpisode records an episode and its display title.
func (s *Store) UpsertEpisode(ctx context.Context, episodeID, title string) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEpisode(ctx, tx, episodeID); err != nil {
			return err
		}
		if title == "" {
			return nil
		}
		if _, err := tx.ExecContext(ctx, "UPDATE episodes SET title = ? WHERE episode_id = ?", title, episodeID); err != nil {
			return fmt.Errorf("update episode title: %w", err)
		}
		return nil
	})
}

// ListEpisodes returns every known episode ordered by id.
func (s *Store) ListEpisodes(ctx context.Context) ([]Episode, error) {
	var episodes []Episode
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx, "SELECT episode_id, title, created_at FROM episodes ORDER BY episode_id")
		if err != nil {
			return fmt.Errorf("list episodes: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				ep      Episode
				title   sql.NullString
				created string
			)
			if err := rows.Scan(&ep.ID, &title, &created); err != nil {
				return fmt.Errorf("scan episode: %w", err)
			}
			ep.Title = title.String
			if parsed, err := parseTimeString(created); err == nil {
				ep.CreatedAt = parsed
			}
			episodes = append(episodes, ep)
		}
		return rows.Err()
	})
	return episodes, err
}

func validateRun(run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(run.PivotLang) == "" {
		return fmt.Errorf("run %s: pivot language is required", run.ID)
	}
	if !run.SegmentKind().Valid() {
		return fmt.Errorf("run %s: params must encode segment_kind as sentence or utterance", run.ID)
	}
	return nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run) error {
	if err := validateRun(run); err != nil {
		return err
	}
	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM align_runs WHERE align_run_id = ?", run.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check run %s: %w", run.ID, err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}
	if err := ensureEpisode(ctx, tx, run.EpisodeID); err != nil {
		return err
	}
	params, err := marshalMap(run.Params)
	if err != nil {
		return fmt.Errorf("run %s params: %w", run.ID, err)
	}
	summary, err := marshalMap(run.Summary)
	if err != nil {
		return fmt.Errorf("run %s summary: %w", run.ID, err)
	}
	created := run.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO align_runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.EpisodeID, corpus.NormalizeLang(run.PivotLang), params, formatTime(created), summary,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// CreateRun records a new run. It fails with ErrRunExists when the id is
// already taken; unique ids are the caller's responsibility.
func (s *Store) CreateRun(ctx context.Context, run Run) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		return insertRun(ctx, tx, run)
	})
}

// CreateRunWithLinks records a run and all of its links in one transaction,
// so a crash never leaves a run with only part of its links. The returned
// links carry their assigned ids.
func (s *Store) CreateRunWithLinks(ctx context.Context, run Run, links []align.Link) ([]align.Link, error) {
	prepared, err := prepareLinks(links)
	if err != nil {
		return nil, err
	}
	err = s.writeTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, run); err != nil {
			return err
		}
		return insertLinks(ctx, tx, run.ID, run.EpisodeID, prepared)
	})
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run     Run
		params  sql.NullString
		created string
		summary sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.EpisodeID, &run.PivotLang, &params, &created, &summary); err != nil {
		return nil, err
	}
	var err error
	if run.Params, err = unmarshalMap(params.String); err != nil {
		return nil, fmt.Errorf("run %s params: %w", run.ID, err)
	}
	if run.Summary, err = unmarshalMap(summary.String); err != nil {
		return nil, fmt.Errorf("run %s summary: %w", run.ID, err)
	}
	if parsed, err := parseTimeString(created); err == nil {
		run.CreatedAt = parsed
	}
	return &run, nil
}

func getRun(ctx context.Context, q querier, runID string) (*Run, error) {
	row := q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM align_runs WHERE align_run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// GetRun fetches one run, or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run *Run
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		run, err = getRun(ctx, q, runID)
		return err
	})
	return run, err
}

// ListRuns returns the runs of an episode, oldest first.
func (s *Store) ListRuns(ctx context.Context, episodeID string) ([]Run, error) {
	var runs []Run
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+runColumns+` FROM align_runs WHERE episode_id = ? ORDER BY created_at, align_run_id`,
			episodeID)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return fmt.Errorf("scan run: %w", err)
			}
			runs = append(runs, *run)
		}
		return rows.Err()
	})
	return runs, err
}

// DeleteRun removes one run and, through the cascade, its links.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM align_links WHERE align_run_id = ?", runID); err != nil {
			return fmt.Errorf("delete links of run %s: %w", runID, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM align_runs WHERE align_run_id = ?", runID)
		if err != nil {
			return fmt.Errorf("delete run %s: %w", runID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

func deleteRunsForEpisode(ctx context.Context, q querier, episodeID string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		"DELETE FROM align_links WHERE align_run_id IN (SELECT align_run_id FROM align_runs WHERE episode_id = ?)",
		episodeID); err != nil {
		return 0, fmt.Errorf("delete links for episode %s: %w", episodeID, err)
	}
	res, err := q.ExecContext(ctx, "DELETE FROM align_runs WHERE episode_id = ?", episodeID)
	if err != nil {
		return 0, fmt.Errorf("delete runs for episode %s: %w", episodeID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteRunsForEpisode removes every run of the episode and all their links.
// It returns the number of runs removed.
func (s *Store) DeleteRunsForEpisode(ctx context.Context, episodeID string) (int64, error) {
	var deleted int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		var err error
		deleted, err = deleteRunsForEpisode(ctx, tx, episodeID)
		return err
	})
	return deleted, err
}

// GetAlignStatsForRun aggregates the links of a run scoped to episodeID.
func (s *Store) GetAlignStatsForRun(ctx context.Context, episodeID, runID string) (RunStats, error) {
	stats := RunStats{
		RunID:    runID,
		ByStatus: map[align.Status]int{},
		ByLang:   map[string]int{},
	}
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		run, err := getRun(ctx, q, runID)
		if err != nil {
			return err
		}
		if run.EpisodeID != episodeID {
			return fmt.Errorf("%w: %s in episode %s", ErrRunNotFound, runID, episodeID)
		}

		var avg sql.NullFloat64
		if err := q.QueryRowContext(ctx, `
			SELECT COUNT(1),
			       COUNT(DISTINCT CASE WHEN role = 'pivot' THEN segment_id END),
			       COUNT(DISTINCT cue_id),
			       COUNT(DISTINCT cue_id_target),
			       AVG(confidence)
			FROM align_links WHERE align_run_id = ? AND episode_id = ?`,
			runID, episodeID,
		).Scan(&stats.Total, &stats.PivotSegments, &stats.PivotCues, &stats.TargetCues, &avg); err != nil {
			return fmt.Errorf("aggregate run %s: %w", runID, err)
		}
		stats.AverageConfidence = align.Round4(avg.Float64)

		rows, err := q.QueryContext(ctx,
			"SELECT status, lang, COUNT(1) FROM align_links WHERE align_run_id = ? AND episode_id = ? GROUP BY status, lang",
			runID, episodeID)
		if err != nil {
			return fmt.Errorf("count run %s by status: %w", runID, err)
		}
		defer rows.Close()
		for rows.Next() {
			var (
				status string
				lang   string
				count  int
			)
			if err := rows.Scan(&status, &lang, &count); err != nil {
				return fmt.Errorf("scan run stats: %w", err)
			}
			stats.ByStatus[align.Status(status)] += count
			stats.ByLang[lang] += count
		}
		return rows.Err()
	})
	return stats, err
}
