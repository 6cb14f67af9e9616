package subtitles

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type stagedFile struct {
	target    string
	temp      string
	backup    string
	hadTarget bool
	swapped   bool
}

// FileSet rewrites several files as a unit. Stage writes each replacement
// next to its target; Commit swaps them all in, keeping the previous
// contents as backups; Restore undoes a committed swap; Cleanup drops the
// backups and any leftover temp files. Stage is safe for concurrent use.
type FileSet struct {
	mu     sync.Mutex
	staged []*stagedFile
}

// NewFileSet returns an empty file set.
func NewFileSet() *FileSet {
	return &FileSet{}
}

// Stage writes data to a temp file beside target.
func (fs *FileSet) Stage(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.staged = append(fs.staged, &stagedFile{target: target, temp: tmpName})
	return nil
}

// Len returns the number of staged files.
func (fs *FileSet) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.staged)
}

// Commit moves every staged file into place. On failure the files already
// swapped are restored and the error is returned.
func (fs *FileSet) Commit() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, file := range fs.staged {
		if err := file.swap(); err != nil {
			restoreErr := fs.restoreLocked()
			fs.removeTempsLocked()
			return errors.Join(fmt.Errorf("replace %s: %w", file.target, err), restoreErr)
		}
	}
	return nil
}

func (f *stagedFile) swap() error {
	if _, err := os.Stat(f.target); err == nil {
		f.backup = f.temp + ".bak"
		if err := os.Rename(f.target, f.backup); err != nil {
			return fmt.Errorf("back up: %w", err)
		}
		f.hadTarget = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat: %w", err)
	}
	if err := os.Rename(f.temp, f.target); err != nil {
		if f.hadTarget {
			_ = os.Rename(f.backup, f.target)
			f.hadTarget = false
		}
		return err
	}
	f.swapped = true
	return nil
}

// Restore puts the previous contents back after a successful Commit.
func (fs *FileSet) Restore() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.restoreLocked()
}

func (fs *FileSet) restoreLocked() error {
	var errs []error
	for i := len(fs.staged) - 1; i >= 0; i-- {
		file := fs.staged[i]
		if !file.swapped {
			continue
		}
		if file.hadTarget {
			if err := os.Rename(file.backup, file.target); err != nil {
				errs = append(errs, fmt.Errorf("restore %s: %w", file.target, err))
				continue
			}
			file.hadTarget = false
		} else if err := os.Remove(file.target); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", file.target, err))
			continue
		}
		file.swapped = false
	}
	return errors.Join(errs...)
}

// Cleanup removes backups and unswapped temp files. Call it once the
// caller no longer needs Restore.
func (fs *FileSet) Cleanup() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.removeTempsLocked()
	for _, file := range fs.staged {
		if file.hadTarget && file.backup != "" {
			_ = os.Remove(file.backup)
			file.hadTarget = false
		}
	}
}

func (fs *FileSet) removeTempsLocked() {
	for _, file := range fs.staged {
		if !file.swapped {
			_ = os.Remove(file.temp)
		}
	}
}
