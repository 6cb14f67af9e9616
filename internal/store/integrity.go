package store

import (
	"context"
	"fmt"
)

// CheckIntegrity counts dangling references in the alignment graph. An empty
// episodeID checks the whole database. Foreign keys make violations
// impossible through this package; the check catches databases edited by
// other tools or opened without enforcement.
func (s *Store) CheckIntegrity(ctx context.Context, episodeID string) (IntegrityReport, error) {
	var report IntegrityReport
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx, "PRAGMA foreign_key_check")
		if err != nil {
			return fmt.Errorf("foreign key check: %w", err)
		}
		for rows.Next() {
			report.ForeignKeyViolations++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("foreign key check: %w", err)
		}
		rows.Close()

		scope := ""
		var args []any
		if episodeID != "" {
			scope = " AND l.episode_id = ?"
			args = append(args, episodeID)
		}
		checks := []struct {
			dest  *int
			query string
		}{
			{&report.OrphanSegmentLinks, `SELECT COUNT(1) FROM align_links l
				WHERE l.segment_id IS NOT NULL
				AND NOT EXISTS (SELECT 1 FROM segments s WHERE s.segment_id = l.segment_id)` + scope},
			{&report.OrphanCueLinks, `SELECT COUNT(1) FROM align_links l
				WHERE NOT EXISTS (SELECT 1 FROM cues c WHERE c.cue_id = l.cue_id)` + scope},
			{&report.OrphanTargetLinks, `SELECT COUNT(1) FROM align_links l
				WHERE l.cue_id_target IS NOT NULL
				AND NOT EXISTS (SELECT 1 FROM cues c WHERE c.cue_id = l.cue_id_target)` + scope},
			{&report.RunlessLinks, `SELECT COUNT(1) FROM align_links l
				WHERE NOT EXISTS (SELECT 1 FROM align_runs r WHERE r.align_run_id = l.align_run_id AND r.episode_id = l.episode_id)` + scope},
		}
		for _, check := range checks {
			if err := q.QueryRowContext(ctx, check.query, args...).Scan(check.dest); err != nil {
				return fmt.Errorf("integrity query: %w", err)
			}
		}

		assignmentScope := ""
		if episodeID != "" {
			assignmentScope = " AND a.episode_id = ?"
		}
		if err := q.QueryRowContext(ctx, `SELECT COUNT(1) FROM character_assignments a
			WHERE ((a.source_type = 'segment' AND NOT EXISTS (SELECT 1 FROM segments s WHERE s.segment_id = a.source_id))
			    OR (a.source_type = 'cue' AND NOT EXISTS (SELECT 1 FROM cues c WHERE c.cue_id = a.source_id)))`+assignmentScope,
			args...).Scan(&report.DanglingAssignments); err != nil {
			return fmt.Errorf("assignment integrity query: %w", err)
		}
		return nil
	})
	return report, err
}
