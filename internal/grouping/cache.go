package grouping

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"himyc/internal/fileutil"
	"himyc/internal/textutil"
)

const cacheVersion = 1

var (
	// ErrCacheMiss reports that no cached grouping exists for a run.
	ErrCacheMiss = errors.New("grouping cache miss")
	// ErrCacheCorrupt reports a cache file that fails to decode or whose
	// digest does not match its payload.
	ErrCacheCorrupt = errors.New("grouping cache corrupt")
)

type cacheEnvelope struct {
	Version int             `json:"version"`
	BLAKE3  string          `json:"blake3"`
	Payload json.RawMessage `json:"payload"`
}

// CachePath returns the cache file location for runID under dir.
func CachePath(dir, runID string) string {
	return filepath.Join(dir, textutil.SanitizeFileName(runID)+".grouping.json.xz")
}

// SaveCache writes the grouping to dir and returns the file path.
func SaveCache(dir string, result *Result) (string, error) {
	if result == nil {
		return "", errors.New("nil grouping result")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode grouping: %w", err)
	}
	sum := blake3.Sum256(payload)
	envelope, err := json.Marshal(cacheEnvelope{
		Version: cacheVersion,
		BLAKE3:  hex.EncodeToString(sum[:]),
		Payload: payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode cache envelope: %w", err)
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return "", fmt.Errorf("create xz writer: %w", err)
	}
	if _, err := w.Write(envelope); err != nil {
		return "", fmt.Errorf("compress grouping: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress grouping: %w", err)
	}

	path := CachePath(dir, result.RunID)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write grouping cache: %w", err)
	}
	return path, nil
}

// LoadCache reads the cached grouping of runID from dir.
func LoadCache(dir, runID string) (*Result, error) {
	path := CachePath(dir, runID)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read grouping cache: %w", err)
	}

	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	var envelope cacheEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if envelope.Version != cacheVersion {
		return nil, fmt.Errorf("%w: version %d", ErrCacheCorrupt, envelope.Version)
	}
	sum := blake3.Sum256(envelope.Payload)
	if hex.EncodeToString(sum[:]) != envelope.BLAKE3 {
		return nil, fmt.Errorf("%w: digest mismatch", ErrCacheCorrupt)
	}
	var result Result
	if err := json.Unmarshal(envelope.Payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if result.RunID != runID {
		return nil, fmt.Errorf("%w: cached run %s", ErrCacheCorrupt, result.RunID)
	}
	return &result, nil
}

// RemoveCache deletes the cached grouping of runID. A missing file is not
// an error.
func RemoveCache(dir, runID string) error {
	if err := os.Remove(CachePath(dir, runID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
