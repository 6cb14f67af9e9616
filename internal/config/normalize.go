package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAlignment()
	c.normalizePropagation()
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("HIMYC_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	derived := []struct {
		key   string
		value *string
		name  string
	}{
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDirName},
		{"paths.subtitles_dir", &c.Paths.SubtitlesDir, defaultSubtitlesDirName},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDirName},
	}
	for _, entry := range derived {
		if strings.TrimSpace(*entry.value) == "" {
			*entry.value = filepath.Join(c.Paths.DataDir, entry.name)
		}
		if *entry.value, err = expandPath(*entry.value); err != nil {
			return fmt.Errorf("%s: %w", entry.key, err)
		}
	}
	return nil
}

func (c *Config) normalizeAlignment() {
	c.Alignment.PivotLang = strings.ToLower(strings.TrimSpace(c.Alignment.PivotLang))
	if c.Alignment.PivotLang == "" {
		c.Alignment.PivotLang = defaultPivotLang
	}
	c.Alignment.SegmentKind = strings.ToLower(strings.TrimSpace(c.Alignment.SegmentKind))
	if c.Alignment.SegmentKind == "" {
		c.Alignment.SegmentKind = defaultSegmentKind
	}
	if c.Alignment.MaxWindow <= 0 {
		c.Alignment.MaxWindow = defaultMaxWindow
	}
	if c.Alignment.OverlapMSThreshold <= 0 {
		c.Alignment.OverlapMSThreshold = defaultOverlapMSThreshold
	}
	c.Alignment.CueStrategy = strings.ToLower(strings.TrimSpace(c.Alignment.CueStrategy))
	if c.Alignment.CueStrategy == "" {
		c.Alignment.CueStrategy = defaultCueStrategy
	}
	c.Alignment.Similarity = strings.ToLower(strings.TrimSpace(c.Alignment.Similarity))
	if c.Alignment.Similarity == "" {
		c.Alignment.Similarity = defaultSimilarity
	}
	if c.Alignment.MinTextRatio <= 0 {
		c.Alignment.MinTextRatio = defaultMinTextRatio
	}
}

func (c *Config) normalizePropagation() {
	c.Propagation.SubtitleFormat = strings.ToLower(strings.TrimSpace(c.Propagation.SubtitleFormat))
	if c.Propagation.SubtitleFormat == "" {
		c.Propagation.SubtitleFormat = defaultSubtitleFormat
	}
}

func (c *Config) normalizeCatalog() error {
	var err error
	if c.Catalog.Path, err = expandPath(strings.TrimSpace(c.Catalog.Path)); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
