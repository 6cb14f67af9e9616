package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validatePropagation(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	a := c.Alignment
	switch a.SegmentKind {
	case "sentence", "utterance":
	default:
		return fmt.Errorf("alignment.segment_kind must be sentence or utterance, got %q", a.SegmentKind)
	}
	if err := ensurePositiveMap(map[string]int{
		"alignment.max_window":           a.MaxWindow,
		"alignment.overlap_ms_threshold": int(a.OverlapMSThreshold),
	}); err != nil {
		return err
	}
	if a.MinConfidence < 0 || a.MinConfidence > 1 {
		return errors.New("alignment.min_confidence must be between 0 and 1")
	}
	if a.MinTextRatio < 0 || a.MinTextRatio > 1 {
		return errors.New("alignment.min_text_ratio must be between 0 and 1")
	}
	switch a.CueStrategy {
	case "auto", "by_time", "by_order", "by_similarity":
	default:
		return fmt.Errorf("alignment.cue_strategy must be auto, by_time, by_order, or by_similarity, got %q", a.CueStrategy)
	}
	switch a.Similarity {
	case "levenshtein", "jaccard":
	default:
		return fmt.Errorf("alignment.similarity must be levenshtein or jaccard, got %q", a.Similarity)
	}
	return nil
}

func (c *Config) validatePropagation() error {
	switch c.Propagation.SubtitleFormat {
	case "srt", "vtt":
		return nil
	}
	return fmt.Errorf("propagation.subtitle_format must be srt or vtt, got %q", c.Propagation.SubtitleFormat)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
