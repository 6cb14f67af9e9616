package store

import (
	"context"
	"database/sql"
	"fmt"

	"himyc/internal/corpus"
)

const segmentColumns = "episode_id, kind, n, start_char, end_char, text, speaker_explicit"

// ReplaceSegments swaps the episode's segments of one kind for segs and,
// in the same transaction, deletes every alignment run of the episode.
// It returns the number of runs removed.
func (s *Store) ReplaceSegments(ctx context.Context, episodeID string, kind corpus.SegmentKind, segs []corpus.Segment) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w: segment kind %q", corpus.ErrInvalidID, kind)
	}
	for i, seg := range segs {
		if seg.EpisodeID != episodeID || seg.Kind != kind {
			return 0, fmt.Errorf("segment %d belongs to %s/%s, not %s/%s", i, seg.EpisodeID, seg.Kind, episodeID, kind)
		}
		if seg.N != i {
			return 0, fmt.Errorf("segment ordinals must be dense from 0: got %d at position %d", seg.N, i)
		}
	}

	var runsDeleted int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEpisode(ctx, tx, episodeID); err != nil {
			return err
		}
		var err error
		if runsDeleted, err = deleteRunsForEpisode(ctx, tx, episodeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE episode_id = ? AND kind = ?", episodeID, string(kind)); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}
		if len(segs) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO segments (segment_id, `+segmentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare segment insert: %w", err)
		}
		defer stmt.Close()
		for _, seg := range segs {
			if _, err := stmt.ExecContext(ctx,
				seg.ID().String(), seg.EpisodeID, string(seg.Kind), seg.N,
				seg.StartChar, seg.EndChar, seg.Text, nullableString(seg.SpeakerExplicit),
			); err != nil {
				return fmt.Errorf("insert segment %s: %w", seg.ID(), err)
			}
		}
		return nil
	})
	return runsDeleted, err
}

func listSegments(ctx context.Context, q querier, episodeID string, kind corpus.SegmentKind) ([]corpus.Segment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments WHERE episode_id = ? AND kind = ? ORDER BY n`,
		episodeID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()
	var segs []corpus.Segment
	for rows.Next() {
		var (
			seg     corpus.Segment
			kindStr string
			speaker sql.NullString
		)
		if err := rows.Scan(&seg.EpisodeID, &kindStr, &seg.N, &seg.StartChar, &seg.EndChar, &seg.Text, &speaker); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Kind = corpus.SegmentKind(kindStr)
		seg.SpeakerExplicit = speaker.String
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// ListSegments returns the episode's segments of one kind in ordinal order.
func (s *Store) ListSegments(ctx context.Context, episodeID string, kind corpus.SegmentKind) ([]corpus.Segment, error) {
	var segs []corpus.Segment
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		segs, err = listSegments(ctx, q, episodeID, kind)
		return err
	})
	return segs, err
}

func updateSegmentSpeaker(ctx context.Context, q querier, id corpus.SegmentID, speaker string) (bool, error) {
	res, err := q.ExecContext(ctx,
		`UPDATE segments SET speaker_explicit = ?
		 WHERE segment_id = ? AND COALESCE(speaker_explicit, '') <> ?`,
		nullableString(speaker), id.String(), speaker)
	if err != nil {
		return false, fmt.Errorf("update speaker of %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM segments WHERE segment_id = ?", id.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check segment %s: %w", id, err)
	}
	if exists == 0 {
		return false, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	return false, nil
}
