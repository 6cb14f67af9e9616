package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"himyc/internal/align"
	"himyc/internal/corpus"
)

const linkColumns = "link_id, segment_id, cue_id, cue_id_target, lang, role, confidence, status, meta_json"

// prepareLinks validates links and assigns ids to those without one.
func prepareLinks(links []align.Link) ([]align.Link, error) {
	prepared := make([]align.Link, len(links))
	for i, link := range links {
		if link.LinkID == "" {
			link.LinkID = uuid.NewString()
		}
		if link.Status == "" {
			link.Status = align.StatusAuto
		}
		link.Lang = corpus.NormalizeLang(link.Lang)
		if err := link.Validate(); err != nil {
			return nil, err
		}
		prepared[i] = link
	}
	return prepared, nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, runID, episodeID string, links []align.Link) error {
	if len(links) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO align_links (link_id, align_run_id, episode_id, segment_id, cue_id, cue_id_target, lang, role, confidence, status, meta_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare link insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		var segmentID, targetID any
		if link.Segment != nil {
			segmentID = link.Segment.String()
		}
		if link.CueTarget != nil {
			targetID = link.CueTarget.String()
		}
		meta, err := marshalMap(link.Meta)
		if err != nil {
			return fmt.Errorf("link %s meta: %w", link.LinkID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			link.LinkID, runID, episodeID, segmentID, link.Cue.String(), targetID,
			link.Lang, string(link.Role), link.Confidence, string(link.Status), meta,
		); err != nil {
			return fmt.Errorf("insert link %s: %w", link.LinkID, err)
		}
	}
	return nil
}

// UpsertLinks appends links to an existing run. It never merges with the
// run's current links; callers wanting a clean slate delete first.
func (s *Store) UpsertLinks(ctx context.Context, runID, episodeID string, links []align.Link) ([]align.Link, error) {
	prepared, err := prepareLinks(links)
	if err != nil {
		return nil, err
	}
	err = s.writeTx(ctx, func(tx *sql.Tx) error {
		run, err := getRun(ctx, tx, runID)
		if err != nil {
			return err
		}
		if run.EpisodeID != episodeID {
			return fmt.Errorf("%w: %s in episode %s", ErrRunNotFound, runID, episodeID)
		}
		return insertLinks(ctx, tx, runID, episodeID, prepared)
	})
	if err != nil {
		return nil, err
	}
	return prepared, nil
}

func scanLink(scanner interface{ Scan(dest ...any) error }) (align.Link, error) {
	var (
		link      align.Link
		segmentID sql.NullString
		cueID     string
		targetID  sql.NullString
		role      string
		status    string
		meta      sql.NullString
	)
	if err := scanner.Scan(&link.LinkID, &segmentID, &cueID, &targetID, &link.Lang, &role, &link.Confidence, &status, &meta); err != nil {
		return align.Link{}, err
	}
	if segmentID.Valid {
		id, err := corpus.ParseSegmentID(segmentID.String)
		if err != nil {
			return align.Link{}, fmt.Errorf("link %s: %w", link.LinkID, err)
		}
		link.Segment = &id
	}
	cue, err := corpus.ParseCueID(cueID)
	if err != nil {
		return align.Link{}, fmt.Errorf("link %s: %w", link.LinkID, err)
	}
	link.Cue = cue
	if targetID.Valid {
		id, err := corpus.ParseCueID(targetID.String)
		if err != nil {
			return align.Link{}, fmt.Errorf("link %s: %w", link.LinkID, err)
		}
		link.CueTarget = &id
	}
	link.Role = align.Role(role)
	link.Status = align.Status(status)
	if link.Meta, err = unmarshalMap(meta.String); err != nil {
		return align.Link{}, fmt.Errorf("link %s meta: %w", link.LinkID, err)
	}
	return link, nil
}

func (f LinkFilter) where() (string, []any, error) {
	if strings.TrimSpace(f.EpisodeID) == "" {
		return "", nil, errors.New("link filter requires an episode id")
	}
	clauses := []string{"episode_id = ?"}
	args := []any{f.EpisodeID}
	if f.RunID != "" {
		clauses = append(clauses, "align_run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Status != "" {
		if !f.Status.Valid() {
			return "", nil, fmt.Errorf("unknown link status %q", f.Status)
		}
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.MinConfidence != nil {
		clauses = append(clauses, "confidence >= ?")
		args = append(args, *f.MinConfidence)
	}
	if f.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Lang != "" {
		clauses = append(clauses, "lang = ?")
		args = append(args, corpus.NormalizeLang(f.Lang))
	}
	return strings.Join(clauses, " AND "), args, nil
}

func queryLinks(ctx context.Context, q querier, filter LinkFilter) ([]align.Link, error) {
	where, args, err := filter.where()
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM align_links WHERE `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()
	var links []align.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// QueryLinks returns the links matching every set filter field, in insertion
// order.
func (s *Store) QueryLinks(ctx context.Context, filter LinkFilter) ([]align.Link, error) {
	var links []align.Link
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		var err error
		links, err = queryLinks(ctx, q, filter)
		return err
	})
	return links, err
}

// GetLink fetches one link by id.
func (s *Store) GetLink(ctx context.Context, linkID string) (align.Link, error) {
	var link align.Link
	err := s.read(ctx, func(ctx context.Context, q querier) error {
		row := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM align_links WHERE link_id = ?`, linkID)
		var err error
		link, err = scanLink(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrLinkNotFound, linkID)
		}
		return err
	})
	return link, err
}

// UpdateLinkStatus overwrites the status of one link. Every transition is
// allowed.
func (s *Store) UpdateLinkStatus(ctx context.Context, linkID string, status align.Status) error {
	if !status.Valid() {
		return fmt.Errorf("unknown link status %q", status)
	}
	return s.writeTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "UPDATE align_links SET status = ? WHERE link_id = ?", string(status), linkID)
		if err != nil {
			return fmt.Errorf("update link %s: %w", linkID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrLinkNotFound, linkID)
		}
		return nil
	})
}

// BulkUpdateStatus sets status on every link matching filter and returns
// how many were changed.
func (s *Store) BulkUpdateStatus(ctx context.Context, filter LinkFilter, status align.Status) (int64, error) {
	if !status.Valid() {
		return 0, fmt.Errorf("unknown link status %q", status)
	}
	where, args, err := filter.where()
	if err != nil {
		return 0, err
	}
	var updated int64
	err = s.writeTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE align_links SET status = ? WHERE `+where,
			append([]any{string(status)}, args...)...)
		if err != nil {
			return fmt.Errorf("bulk update links: %w", err)
		}
		updated, _ = res.RowsAffected()
		return nil
	})
	return updated, err
}
