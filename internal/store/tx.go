package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"himyc/internal/align"
	"himyc/internal/corpus"
)

// Tx is an explicit write transaction holding the store's writer lock until
// Commit or Rollback. Callers that must coordinate database changes with
// file system work (propagation) use it instead of the per-call methods.
type Tx struct {
	tx      *sql.Tx
	release func()
}

// Begin starts a write transaction. Store methods must not be called on the
// same goroutine until the Tx ends.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	var tx *sql.Tx
	err := retryOnBusy(ctx, func() error {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx, release: sync.OnceFunc(s.mu.Unlock)}, nil
}

// WithTx runs fn in a transaction, committing when it returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit commits the transaction and releases the writer lock.
func (t *Tx) Commit() error {
	defer t.release()
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Rollback aborts the transaction and releases the writer lock. Rolling back
// a finished transaction is a no-op.
func (t *Tx) Rollback() error {
	defer t.release()
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

// GetRun fetches a run inside the transaction.
func (t *Tx) GetRun(ctx context.Context, runID string) (*Run, error) {
	return getRun(ensureContext(ctx), t.tx, runID)
}

// QueryLinks queries links inside the transaction.
func (t *Tx) QueryLinks(ctx context.Context, filter LinkFilter) ([]align.Link, error) {
	return queryLinks(ensureContext(ctx), t.tx, filter)
}

// ListSegments lists segments inside the transaction.
func (t *Tx) ListSegments(ctx context.Context, episodeID string, kind corpus.SegmentKind) ([]corpus.Segment, error) {
	return listSegments(ensureContext(ctx), t.tx, episodeID, kind)
}

// ListCues lists cues inside the transaction, reflecting its own updates.
func (t *Tx) ListCues(ctx context.Context, episodeID, lang string) ([]corpus.Cue, error) {
	return listCues(ensureContext(ctx), t.tx, episodeID, lang)
}

// GetTrack fetches a track inside the transaction.
func (t *Tx) GetTrack(ctx context.Context, episodeID, lang string) (*corpus.Track, error) {
	return getTrack(ensureContext(ctx), t.tx, episodeID, lang)
}

// ListAssignments lists assignments inside the transaction.
func (t *Tx) ListAssignments(ctx context.Context, episodeID string) ([]corpus.Assignment, error) {
	return listAssignments(ensureContext(ctx), t.tx, episodeID)
}

// ListCharacters lists the catalog inside the transaction.
func (t *Tx) ListCharacters(ctx context.Context) ([]corpus.Character, error) {
	return listCharacters(ensureContext(ctx), t.tx)
}

// SetSegmentSpeaker writes speaker_explicit and reports whether the value
// changed.
func (t *Tx) SetSegmentSpeaker(ctx context.Context, id corpus.SegmentID, speaker string) (bool, error) {
	return updateSegmentSpeaker(ensureContext(ctx), t.tx, id, speaker)
}

// SetCueText writes text_clean and reports whether the value changed.
func (t *Tx) SetCueText(ctx context.Context, id corpus.CueID, text string) (bool, error) {
	return updateCueText(ensureContext(ctx), t.tx, id, text)
}

// SetTrackFile records the rewritten file location and digest of a track.
func (t *Tx) SetTrackFile(ctx context.Context, episodeID, lang, filePath, digest string) error {
	return updateTrackFile(ensureContext(ctx), t.tx, episodeID, lang, filePath, digest)
}
