package testsupport

import (
	"path/filepath"
	"testing"

	"himyc/internal/config"
)

// ConfigOption adjusts a test configuration. base is the temp directory the
// configuration's paths live under.
type ConfigOption func(cfg *config.Config, base string)

// NewConfig returns the default configuration with data, logs, subtitles and
// cache directories side by side under a fresh temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.SubtitlesDir = filepath.Join(base, "subtitles")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	for _, opt := range opts {
		opt(&cfg, base)
	}
	return &cfg
}

// WithCatalogFile writes contents as characters.yaml and makes it the
// configured catalog.
func WithCatalogFile(t testing.TB, contents string) ConfigOption {
	return func(cfg *config.Config, base string) {
		path := filepath.Join(base, "characters.yaml")
		WriteFile(t, path, contents)
		cfg.Catalog.Path = path
	}
}

// BaseDir returns the temp directory backing cfg.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
