package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"himyc/internal/corpus"
)

// UpsertCharacters inserts or replaces catalog entries.
func (s *Store) UpsertCharacters(ctx context.Context, chars []corpus.Character) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		for _, ch := range chars {
			if strings.TrimSpace(ch.ID) == "" || strings.TrimSpace(ch.Canonical) == "" {
				return errors.New("character requires id and canonical name")
			}
			var names any
			if len(ch.Names) > 0 {
				data, err := json.Marshal(ch.Names)
				if err != nil {
					return fmt.Errorf("marshal names of %s: %w", ch.ID, err)
				}
				names = string(data)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO characters (character_id, canonical, names_json) VALUES (?, ?, ?)
				 ON CONFLICT(character_id) DO UPDATE SET canonical = excluded.canonical, names_json = excluded.names_json`,
				ch.ID, ch.Canonical, names,
			); err != nil {
				return fmt.Errorf("upsert character %s: %w", ch.ID, err)
			}
		}
		return nil
	})
}

func listCharacters(ctx context.Context, q querier) ([]corpus.Character, error) {
	rows, err := q.QueryContext(ctx, "SELECT character_id, canonical, names_json FROM characters ORDER BY character_id")
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()
	var chars []corpus.Character
	for rows.Next() {
		var (
			ch    corpus.Character
			names sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.Canonical, &names); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		if names.Valid && names.String != "" {
			if err := json.Unmarshal([]byte(names.String), &ch.Names); err != nil {
				return nil, fmt.Errorf("character %s names: %w", ch.ID, err)
			}
		}
		chars = append(chars, ch)
	}
	return chars, rows.Err()
}

// ListCharacters returns the catalog ordered by id.
func (s *Store) ListCharacters(ctx context.Context) ([]corpus.Character, error) {
	var chars []corpus.Character
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		chars, err = listCharacters(ctx, q)
		return err
	})
	return chars, err
}

// SetAssignment maps a segment or cue to a catalog character, replacing any
// previous assignment of the same source.
func (s *Store) SetAssignment(ctx context.Context, a corpus.Assignment) error {
	switch a.SourceType {
	case corpus.SourceSegment:
		if _, err := corpus.ParseSegmentID(a.SourceID); err != nil {
			return err
		}
	case corpus.SourceCue:
		if _, err := corpus.ParseCueID(a.SourceID); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown assignment source type %q", a.SourceType)
	}
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM characters WHERE character_id = ?", a.CharacterID).Scan(&exists); err != nil {
			return fmt.Errorf("check character %s: %w", a.CharacterID, err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", ErrCharacterNotFound, a.CharacterID)
		}
		if err := ensureEpisode(ctx, tx, a.EpisodeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO character_assignments (episode_id, source_type, source_id, character_id) VALUES (?, ?, ?, ?)
			 ON CONFLICT(episode_id, source_type, source_id) DO UPDATE SET character_id = excluded.character_id`,
			a.EpisodeID, string(a.SourceType), a.SourceID, a.CharacterID,
		); err != nil {
			return fmt.Errorf("set assignment %s: %w", a.SourceID, err)
		}
		return nil
	})
}

// DeleteAssignment removes the assignment of one source. Missing
// assignments are not an error.
func (s *Store) DeleteAssignment(ctx context.Context, episodeID string, sourceType corpus.SourceType, sourceID string) error {
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM character_assignments WHERE episode_id = ? AND source_type = ? AND source_id = ?",
			episodeID, string(sourceType), sourceID,
		); err != nil {
			return fmt.Errorf("delete assignment %s: %w", sourceID, err)
		}
		return nil
	})
}

func listAssignments(ctx context.Context, q querier, episodeID string) ([]corpus.Assignment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT episode_id, source_type, source_id, character_id FROM character_assignments
		 WHERE episode_id = ? ORDER BY source_type, source_id`, episodeID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	var out []corpus.Assignment
	for rows.Next() {
		var (
			a          corpus.Assignment
			sourceType string
		)
		if err := rows.Scan(&a.EpisodeID, &sourceType, &a.SourceID, &a.CharacterID); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.SourceType = corpus.SourceType(sourceType)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAssignments returns the character assignments of an episode.
func (s *Store) ListAssignments(ctx context.Context, episodeID string) ([]corpus.Assignment, error) {
	var out []corpus.Assignment
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		out, err = listAssignments(ctx, q, episodeID)
		return err
	})
	return out, err
}
