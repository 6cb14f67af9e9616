package workbench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"himyc/internal/config"
	"himyc/internal/logging"
	"himyc/internal/propagate"
	"himyc/internal/store"
)

// Workbench coordinates the project store and enforces single-writer
// access across processes.
type Workbench struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	propagator *propagate.Service

	lockPath string
	lock     *flock.Flock

	now func() time.Time
}

// Open creates the project directories, takes the project lock, and opens
// the store. The lock is held until Close.
func Open(cfg *config.Config, logger *slog.Logger) (*Workbench, error) {
	if cfg == nil {
		return nil, errors.New("workbench requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lockPath := cfg.LockPath()
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, Wrap(ErrLocked, "open", lockPath, nil)
	}

	st, err := store.Open(cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	w := &Workbench{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "workbench"),
		store:    st,
		lockPath: lockPath,
		lock:     lock,
		now:      time.Now,
	}
	w.propagator = propagate.New(st, cfg, logger)
	w.logger.Debug("project opened", logging.String("db", st.Path()), logging.String("lock", lockPath))
	return w, nil
}

// Close closes the store and releases the project lock.
func (w *Workbench) Close() error {
	if w == nil {
		return nil
	}
	var errs []error
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	if w.lock != nil {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release project lock", logging.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store exposes the underlying store for read-only listings.
func (w *Workbench) Store() *store.Store {
	return w.store
}

// Config returns the configuration the workbench was opened with.
func (w *Workbench) Config() *config.Config {
	return w.cfg
}

// requireRun loads runID and checks it belongs to episodeID.
func (w *Workbench) requireRun(ctx context.Context, runID, episodeID string) (*store.Run, error) {
	run, err := w.store.GetRun(ctx, runID)
	if err != nil {
		return nil, Wrap(ErrPrecondition, "load run", runID, err)
	}
	if episodeID != "" && run.EpisodeID != episodeID {
		return nil, Wrap(ErrPrecondition, "load run", runID,
			fmt.Errorf("%w: belongs to episode %s, not %s", store.ErrRunNotFound, run.EpisodeID, episodeID))
	}
	return run, nil
}
