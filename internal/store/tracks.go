package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"himyc/internal/corpus"
)

const (
	trackColumns = "episode_id, lang, format, source_path, file_path, digest, imported_at"
	cueColumns   = "episode_id, lang, n, start_ms, end_ms, text_raw, text_clean"
)

// ImportTrack stores a subtitle track and its cues, replacing any previous
// track of the same (episode, lang). Because cue ids are reused, every
// alignment run of the episode is deleted in the same transaction. It
// returns the number of runs removed.
func (s *Store) ImportTrack(ctx context.Context, track corpus.Track, cues []corpus.Cue) (int64, error) {
	track.Lang = corpus.NormalizeLang(track.Lang)
	if track.EpisodeID == "" || track.Lang == "" {
		return 0, errors.New("track requires episode id and language")
	}
	for i, cue := range cues {
		if cue.EpisodeID != track.EpisodeID || corpus.NormalizeLang(cue.Lang) != track.Lang {
			return 0, fmt.Errorf("cue %d belongs to %s/%s, not track %s", i, cue.EpisodeID, cue.Lang, track.ID())
		}
		if cue.N != i {
			return 0, fmt.Errorf("cue ordinals must be dense from 0: got %d at position %d", cue.N, i)
		}
	}
	if track.ImportedAt.IsZero() {
		track.ImportedAt = time.Now()
	}

	var runsDeleted int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		if err := ensureEpisode(ctx, tx, track.EpisodeID); err != nil {
			return err
		}
		var err error
		if runsDeleted, err = deleteRunsForEpisode(ctx, tx, track.EpisodeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE track_id = ?", track.ID()); err != nil {
			return fmt.Errorf("delete previous track %s: %w", track.ID(), err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tracks (track_id, `+trackColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			track.ID(), track.EpisodeID, track.Lang, track.Format,
			nullableString(track.SourcePath), nullableString(track.FilePath), nullableString(track.Digest),
			formatTime(track.ImportedAt),
		); err != nil {
			return fmt.Errorf("insert track %s: %w", track.ID(), err)
		}
		if len(cues) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cues (cue_id, track_id, `+cueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare cue insert: %w", err)
		}
		defer stmt.Close()
		for _, cue := range cues {
			cue.Lang = track.Lang
			if _, err := stmt.ExecContext(ctx,
				cue.ID().String(), track.ID(), cue.EpisodeID, cue.Lang, cue.N,
				cue.StartMS, cue.EndMS, cue.TextRaw, cue.TextClean,
			); err != nil {
				return fmt.Errorf("insert cue %s: %w", cue.ID(), err)
			}
		}
		return nil
	})
	return runsDeleted, err
}

// DeleteTrack removes a track and its cues, and every alignment run of the
// episode. It returns the number of runs removed.
func (s *Store) DeleteTrack(ctx context.Context, episodeID, lang string) (int64, error) {
	trackID := corpus.TrackID(episodeID, lang)
	var runsDeleted int64
	err := s.writeTx(ctx, func(tx *sql.Tx) error {
		var err error
		if runsDeleted, err = deleteRunsForEpisode(ctx, tx, episodeID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM tracks WHERE track_id = ?", trackID)
		if err != nil {
			return fmt.Errorf("delete track %s: %w", trackID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
		}
		return nil
	})
	return runsDeleted, err
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*corpus.Track, error) {
	var (
		track    corpus.Track
		source   sql.NullString
		file     sql.NullString
		digest   sql.NullString
		imported string
	)
	if err := scanner.Scan(&track.EpisodeID, &track.Lang, &track.Format, &source, &file, &digest, &imported); err != nil {
		return nil, err
	}
	track.SourcePath = source.String
	track.FilePath = file.String
	track.Digest = digest.String
	if parsed, err := parseTimeString(imported); err == nil {
		track.ImportedAt = parsed
	}
	return &track, nil
}

func getTrack(ctx context.Context, q querier, episodeID, lang string) (*corpus.Track, error) {
	trackID := corpus.TrackID(episodeID, lang)
	row := q.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE track_id = ?`, trackID)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	if err != nil {
		return nil, fmt.Errorf("get track %s: %w", trackID, err)
	}
	return track, nil
}

// GetTrack fetches the track of (episode, lang), or ErrTrackNotFound.
func (s *Store) GetTrack(ctx context.Context, episodeID, lang string) (*corpus.Track, error) {
	var track *corpus.Track
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		track, err = getTrack(ctx, q, episodeID, lang)
		return err
	})
	return track, err
}

// ListTracks returns the tracks of an episode ordered by language.
func (s *Store) ListTracks(ctx context.Context, episodeID string) ([]corpus.Track, error) {
	var tracks []corpus.Track
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		rows, err := q.QueryContext(ctx,
			`SELECT `+trackColumns+` FROM tracks WHERE episode_id = ? ORDER BY lang`, episodeID)
		if err != nil {
			return fmt.Errorf("list tracks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			track, err := scanTrack(rows)
			if err != nil {
				return fmt.Errorf("scan track: %w", err)
			}
			tracks = append(tracks, *track)
		}
		return rows.Err()
	})
	return tracks, err
}

func listCues(ctx context.Context, q querier, episodeID, lang string) ([]corpus.Cue, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+cueColumns+` FROM cues WHERE episode_id = ? AND lang = ? ORDER BY n`,
		episodeID, corpus.NormalizeLang(lang))
	if err != nil {
		return nil, fmt.Errorf("list cues: %w", err)
	}
	defer rows.Close()
	var cues []corpus.Cue
	for rows.Next() {
		var cue corpus.Cue
		if err := rows.Scan(&cue.EpisodeID, &cue.Lang, &cue.N, &cue.StartMS, &cue.EndMS, &cue.TextRaw, &cue.TextClean); err != nil {
			return nil, fmt.Errorf("scan cue: %w", err)
		}
		cues = append(cues, cue)
	}
	return cues, rows.Err()
}

// ListCues returns the cues of (episode, lang) in ordinal order.
func (s *Store) ListCues(ctx context.Context, episodeID, lang string) ([]corpus.Cue, error) {
	var cues []corpus.Cue
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		cues, err = listCues(ctx, q, episodeID, lang)
		return err
	})
	return cues, err
}

func updateCueText(ctx context.Context, q querier, id corpus.CueID, text string) (bool, error) {
	res, err := q.ExecContext(ctx,
		"UPDATE cues SET text_clean = ? WHERE cue_id = ? AND text_clean <> ?",
		text, id.String(), text)
	if err != nil {
		return false, fmt.Errorf("update cue %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		return true, nil
	}
	var exists int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(1) FROM cues WHERE cue_id = ?", id.String()).Scan(&exists); err != nil {
		return false, fmt.Errorf("check cue %s: %w", id, err)
	}
	if exists == 0 {
		return false, fmt.Errorf("%w: %s", ErrCueNotFound, id)
	}
	return false, nil
}

func updateTrackFile(ctx context.Context, q querier, episodeID, lang, filePath, digest string) error {
	trackID := corpus.TrackID(episodeID, lang)
	res, err := q.ExecContext(ctx,
		"UPDATE tracks SET file_path = ?, digest = ? WHERE track_id = ?",
		nullableString(filePath), nullableString(digest), trackID)
	if err != nil {
		return fmt.Errorf("update track %s: %w", trackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTrackNotFound, trackID)
	}
	return nil
}
